package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	billdocs "github.com/alnah/go-billdocs"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput            = errors.New("no input workbook specified")
	ErrReadWorkbook       = errors.New("failed to read workbook")
	ErrWritePDF           = errors.New("failed to write PDF file")
	ErrInvalidWorkbook    = errors.New("workbook failed validation")
	ErrInvalidExtension   = errors.New("file must have .xlsx or .xlsm extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Generator is the interface for the bill generation service.
type Generator interface {
	GenerateBill(ctx context.Context, workbook io.Reader, opts billdocs.GenerateOptions) (*billdocs.BillResult, error)
}

// Compile-time interface implementation check.
var _ Generator = (*billdocs.Service)(nil)

// Pool abstracts service pool operations for testability.
type Pool interface {
	Acquire() Generator
	Release(Generator)
	Size() int
}

// poolAdapter adapts billdocs.ServicePool to the Pool interface.
type poolAdapter struct {
	pool *billdocs.ServicePool
}

func (a *poolAdapter) Acquire() Generator { return a.pool.Acquire() }

func (a *poolAdapter) Release(g Generator) {
	svc, ok := g.(*billdocs.Service)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: expected *billdocs.Service, got %T", g))
	}
	a.pool.Release(svc)
}

func (a *poolAdapter) Size() int { return a.pool.Size() }

// WorkbookToProcess represents a single workbook to process.
type WorkbookToProcess struct {
	InputPath string
	OutputDir string
}

// GenerationResult holds the outcome of a single workbook run.
type GenerationResult struct {
	InputPath  string
	OutputDir  string
	MergedPath string
	Documents  int
	Failed     []string
	Err        error
	Duration   time.Duration
}

// runGenerate orchestrates bill generation for one or more workbooks.
func runGenerate(ctx context.Context, flags *cliFlags, pool Pool, stdout, stderr io.Writer) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	// Load configuration
	cfg := DefaultConfig()
	var err error
	if flags.config != "" {
		cfg, err = LoadConfig(flags.config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	// Merge CLI flags into config (CLI wins)
	mergeFlags(flags, cfg)

	inputPath, err := resolveInputPath(flags.input, cfg)
	if err != nil {
		return err
	}
	outputDir := resolveOutputDir(flags.outputDir, cfg)

	workbooks, err := discoverWorkbooks(inputPath, outputDir)
	if err != nil {
		return fmt.Errorf("discovering workbooks: %w", err)
	}
	if len(workbooks) == 0 {
		return fmt.Errorf("no workbooks found in %s", inputPath)
	}

	notes, err := loadNotes(cfg.Notes.File)
	if err != nil {
		return err
	}

	opts := billdocs.GenerateOptions{
		Normalize: billdocs.NormalizeOptions{
			AllowMissingBillQuantity: cfg.Normalize.AllowMissingBillQuantity,
		},
		Notes: notes,
		Merge: cfg.Output.Merged != "",
	}

	if flags.validate {
		return runValidateOnly(workbooks, opts, stdout, stderr)
	}

	results := generateBatch(ctx, pool, workbooks, opts, cfg.Output.Merged)

	failedCount := printResults(results, flags.quiet, flags.verbose, stdout, stderr)
	if failedCount > 0 {
		return fmt.Errorf("%d workbook(s) failed", failedCount)
	}
	return nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *cliFlags, cfg *Config) {
	if flags.input != "" {
		cfg.Input.DefaultDir = flags.input
	}
	if flags.outputDir != "" {
		cfg.Output.DefaultDir = flags.outputDir
	}
	if flags.mergedPath != "" {
		cfg.Output.Merged = flags.mergedPath
	}
	if flags.notes != "" {
		cfg.Notes.File = flags.notes
	}
	if flags.allowNoBQ {
		cfg.Normalize.AllowMissingBillQuantity = true
	}
}

// resolveInputPath determines the input path from flag or config.
func resolveInputPath(flagInput string, cfg *Config) (string, error) {
	if flagInput != "" {
		return flagInput, nil
	}
	if cfg.Input.DefaultDir != "" {
		return cfg.Input.DefaultDir, nil
	}
	return "", ErrNoInput
}

// resolveOutputDir determines the output directory from flag or config.
func resolveOutputDir(flagOutput string, cfg *Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	if cfg.Output.DefaultDir != "" {
		return cfg.Output.DefaultDir
	}
	return "."
}

// loadNotes reads the Note Sheet markdown body, if configured.
func loadNotes(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return "", fmt.Errorf("reading notes file: %w", err)
	}
	return string(content), nil
}

// discoverWorkbooks finds all workbooks to process. A single file maps
// its documents directly into outputDir; a directory maps each workbook
// into outputDir/<workbook-stem>/.
func discoverWorkbooks(inputPath, outputDir string) ([]WorkbookToProcess, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateWorkbookExtension(inputPath); err != nil {
			return nil, err
		}
		return []WorkbookToProcess{{InputPath: inputPath, OutputDir: outputDir}}, nil
	}

	var workbooks []WorkbookToProcess
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".xlsx" && ext != ".xlsm" {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		workbooks = append(workbooks, WorkbookToProcess{
			InputPath: path,
			OutputDir: filepath.Join(outputDir, stem),
		})
		return nil
	})
	return workbooks, err
}

// validateWorkbookExtension checks that the file has a spreadsheet extension.
func validateWorkbookExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > billdocs.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, billdocs.MaxPoolSize)
	}
	return nil
}

// runValidateOnly normalizes each workbook and prints its validation
// report without generating any PDFs.
func runValidateOnly(workbooks []WorkbookToProcess, opts billdocs.GenerateOptions, stdout, stderr io.Writer) error {
	normalizer := billdocs.NewNormalizer()

	var failed int
	for _, wb := range workbooks {
		f, err := os.Open(wb.InputPath) // #nosec G304 -- discovered path
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "FAILED %s: %v\n", wb.InputPath, err)
			continue
		}
		bundle, err := normalizer.Normalize(f, opts.Normalize)
		_ = f.Close()
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "FAILED %s: %v\n", wb.InputPath, err)
			continue
		}

		report := billdocs.ValidateBundle(bundle)
		for _, w := range report.Warnings {
			fmt.Fprintf(stdout, "%s: warning: %s\n", wb.InputPath, w)
		}
		for _, e := range report.Errors {
			fmt.Fprintf(stderr, "%s: error: %s\n", wb.InputPath, e)
		}
		if !report.Valid {
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s: OK (%d work order items, %d bill quantity items, %d extra items)\n",
			wb.InputPath, len(bundle.WorkOrder), len(bundle.BillQuantity), len(bundle.ExtraItems))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d workbook(s)", ErrInvalidWorkbook, failed)
	}
	return nil
}

// generateBatch processes workbooks concurrently using the service pool.
func generateBatch(ctx context.Context, pool Pool, workbooks []WorkbookToProcess, opts billdocs.GenerateOptions, mergedPath string) []GenerationResult {
	if len(workbooks) == 0 {
		return nil
	}

	concurrency := pool.Size()
	if concurrency > len(workbooks) {
		concurrency = len(workbooks)
	}

	results := make([]GenerationResult, len(workbooks))
	var wg sync.WaitGroup
	jobs := make(chan int, len(workbooks))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			svc := pool.Acquire()
			defer pool.Release(svc)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = GenerationResult{
						InputPath: workbooks[idx].InputPath,
						Err:       ctx.Err(),
					}
					continue
				}
				results[idx] = generateOne(ctx, svc, workbooks[idx], opts, mergedPath, len(workbooks) > 1)
			}
		}()
	}

	for i := range workbooks {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// generateOne processes a single workbook and writes its PDFs.
func generateOne(ctx context.Context, svc Generator, wb WorkbookToProcess, opts billdocs.GenerateOptions, mergedPath string, multi bool) GenerationResult {
	start := time.Now()
	result := GenerationResult{
		InputPath: wb.InputPath,
		OutputDir: wb.OutputDir,
	}

	f, err := os.Open(wb.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrReadWorkbook, err)
		result.Duration = time.Since(start)
		return result
	}
	defer func() { _ = f.Close() }()

	bill, err := svc.GenerateBill(ctx, f, opts)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := os.MkdirAll(wb.OutputDir, dirPermissions); err != nil {
		result.Err = fmt.Errorf("creating output directory: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	for _, pdf := range bill.PDFs {
		if pdf.Err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", pdf.Name, pdf.Err))
		}
		outPath := filepath.Join(wb.OutputDir, pdf.Name)
		// #nosec G306 -- PDFs are meant to be readable
		if err := os.WriteFile(outPath, pdf.Data, filePermissions); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWritePDF, err)
			result.Duration = time.Since(start)
			return result
		}
		result.Documents++
	}

	if opts.Merge && len(bill.Merged) > 0 {
		dest := mergedPath
		if dest == "" || multi {
			dest = filepath.Join(wb.OutputDir, "combined.pdf")
		}
		// #nosec G306 -- PDFs are meant to be readable
		if err := os.WriteFile(dest, bill.Merged, filePermissions); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWritePDF, err)
			result.Duration = time.Since(start)
			return result
		}
		result.MergedPath = dest
	}

	result.Duration = time.Since(start)
	return result
}

// printResults outputs generation results and returns the failure count.
func printResults(results []GenerationResult, quiet, verbose bool, stdout, stderr io.Writer) int {
	var succeeded, failed int

	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		succeeded++
		for _, f := range r.Failed {
			fmt.Fprintf(stderr, "WARNING %s: document %s\n", r.InputPath, f)
		}
		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(stdout, "%s -> %s (%d documents, %v)\n",
				r.InputPath, r.OutputDir, r.Documents, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(stdout, "Created %d documents in %s\n", r.Documents, r.OutputDir)
		}
		if r.MergedPath != "" && !quiet {
			fmt.Fprintf(stdout, "Merged %s\n", r.MergedPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
	}

	return failed
}
