package billdocs

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// BillResult is the full output of one pipeline run.
type BillResult struct {
	Bundle     *WorkbookBundle
	Validation Report
	Documents  DocumentSet
	PDFs       PDFSet
	Merged     []byte
}

// GenerateOptions configures a pipeline run.
type GenerateOptions struct {
	Normalize NormalizeOptions

	// Notes overrides the generated Note Sheet body (Markdown).
	Notes string

	// Merge controls whether a combined PDF is produced in addition to
	// the per-document set.
	Merge bool
}

// GenerateBill runs the whole pipeline for one workbook: normalize,
// render, convert, and optionally merge. Normalization and rendering
// errors abort the run; conversion never does, per the engine contract.
func (s *Service) GenerateBill(ctx context.Context, workbook io.Reader, opts GenerateOptions) (*BillResult, error) {
	normalizer := NewNormalizer(WithNormalizerLogger(s.cfg.log))
	bundle, err := normalizer.Normalize(workbook, opts.Normalize)
	if err != nil {
		return nil, fmt.Errorf("normalizing workbook: %w", err)
	}

	result := &BillResult{
		Bundle:     bundle,
		Validation: ValidateBundle(bundle),
	}
	if !result.Validation.Valid {
		return result, fmt.Errorf("workbook failed validation: %v", result.Validation.Errors)
	}

	var rendererOpts []RendererOption
	if opts.Notes != "" {
		rendererOpts = append(rendererOpts, WithNotes(opts.Notes))
	}
	result.Documents, err = NewRenderer(rendererOpts...).RenderDocuments(bundle)
	if err != nil {
		return result, fmt.Errorf("rendering documents: %w", err)
	}

	result.PDFs = s.Convert(ctx, result.Documents)

	if opts.Merge {
		merged, err := NewMerger(ProbeCapabilities()).Merge(result.PDFs)
		if err != nil {
			return result, fmt.Errorf("merging documents: %w", err)
		}
		result.Merged = merged
	}

	return result, nil
}

// GenerateBills runs the pipeline for several workbooks concurrently
// using a service pool. Results preserve input order; the first pipeline
// error aborts outstanding work.
func GenerateBills(ctx context.Context, pool *ServicePool, workbooks []io.Reader, opts GenerateOptions) ([]*BillResult, error) {
	results := make([]*BillResult, len(workbooks))

	g, ctx := errgroup.WithContext(ctx)
	for i, wb := range workbooks {
		g.Go(func() error {
			svc := pool.Acquire()
			defer pool.Release(svc)

			res, err := svc.GenerateBill(ctx, wb, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
