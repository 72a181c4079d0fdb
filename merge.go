package billdocs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// mergeBackend abstracts the PDF-manipulation library performing the
// concatenation. All backends behave identically: read each input's pages
// in file order, append to one writer, serialize. Which backend runs is
// decided by the capability probe, never re-probed at call time.
type mergeBackend interface {
	Name() string
	Merge(inputs []io.ReadSeeker, w io.Writer) error
}

// Merger concatenates an ordered PDFSet into one document, preserving set
// order as page order.
type Merger struct {
	backend mergeBackend
}

// NewMerger selects a merge backend from the probed capabilities. A
// Merger with no backend is still usable; Merge then reports
// ErrNoMergeBackend instead of a partial result.
func NewMerger(caps Capabilities) *Merger {
	m := &Merger{}
	if caps.Merge {
		m.backend = pdfcpuBackend{}
	}
	return m
}

// Merge concatenates every document in set order into a single PDF.
func (m *Merger) Merge(set PDFSet) ([]byte, error) {
	if m.backend == nil {
		return nil, ErrNoMergeBackend
	}
	if len(set) == 0 {
		return nil, ErrNothingToMerge
	}

	inputs := make([]io.ReadSeeker, 0, len(set))
	for _, doc := range set {
		if len(doc.Data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPDF, doc.Name)
		}
		inputs = append(inputs, bytes.NewReader(doc.Data))
	}

	var out bytes.Buffer
	if err := m.backend.Merge(inputs, &out); err != nil {
		return nil, fmt.Errorf("merging %d documents: %w", len(set), err)
	}
	return out.Bytes(), nil
}

// pdfcpuBackend merges with pdfcpu.
type pdfcpuBackend struct{}

func (pdfcpuBackend) Name() string { return "pdfcpu" }

func (pdfcpuBackend) Merge(inputs []io.ReadSeeker, w io.Writer) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.MergeRaw(inputs, w, false, conf)
}

// Info describes one PDF for diagnostics, independent of merging.
type Info struct {
	PageCount int
	ByteSize  int
	Title     string
}

// Inspect reports page count, byte size and title metadata of a PDF.
func Inspect(pdf []byte) (Info, error) {
	if len(pdf) == 0 {
		return Info{}, ErrEmptyPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return Info{}, fmt.Errorf("reading pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, fmt.Errorf("validating pdf: %w", err)
	}

	return Info{
		PageCount: ctx.PageCount,
		ByteSize:  len(pdf),
		Title:     ctx.Title,
	}, nil
}

// PageCount is a convenience wrapper over Inspect for tests and callers
// that only need the page total.
func PageCount(pdf []byte) (int, error) {
	info, err := Inspect(pdf)
	if err != nil {
		return 0, err
	}
	return info.PageCount, nil
}
