// Package billdocs turns loosely-structured construction billing
// workbooks into statutory PDF documents.
//
// # Quick Start
//
// Create a service, run the pipeline, and close when done:
//
//	svc := billdocs.New()
//	defer svc.Close()
//
//	f, err := os.Open("bill.xlsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	result, err := svc.GenerateBill(ctx, f, billdocs.GenerateOptions{Merge: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("bill.pdf", result.Merged, 0644)
//
// # Pipeline
//
// The pipeline has four stages:
//
//  1. Normalization: the workbook's Title, Work Order, Bill Quantity and
//     Extra Items sheets are parsed with header-discovery heuristics into
//     typed tables (excelize).
//  2. Rendering: eight fixed statutory documents are rendered to HTML
//     from embedded templates.
//  3. Conversion: each document is converted to PDF through an ordered
//     engine fallback chain (headless Chrome via go-rod, then chromedp,
//     then a native table reconstruction), degrading to a synthetic
//     error page rather than dropping a document.
//  4. Merge: the per-document PDFs are concatenated in statutory order
//     (pdfcpu).
//
// Stages are usable separately: NewNormalizer, NewRenderer,
// Service.Convert and NewMerger expose each boundary.
//
// # Engine Availability
//
// The environment is probed once at Service construction
// (ProbeCapabilities); engines without a usable browser are left out of
// the chain. Conversion itself never fails past its boundary: a document
// whose conversion fails on every engine yields a one-page error PDF so
// the output set stays complete.
//
// # Parallel Processing
//
// For batch runs, ServicePool manages multiple browser-backed services:
//
//	pool := billdocs.NewServicePool(4)
//	defer pool.Close()
//	results, err := billdocs.GenerateBills(ctx, pool, workbooks, opts)
//
// # Browser Requirements
//
// The Chrome engines need a Chrome/Chromium binary (ROD_BROWSER_BIN or
// CHROME_BIN override the search path). Without one, conversion falls
// back to the native table renderer, which preserves text content at the
// cost of layout fidelity.
package billdocs
