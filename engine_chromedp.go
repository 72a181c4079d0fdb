package billdocs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/alnah/go-billdocs/internal/fileutil"
)

// chromedpEngine is the secondary conversion engine. It shares the same
// underlying browser technology as the primary engine but drives it over
// the DevTools protocol directly, which has historically survived renderer
// states that hang the primary path.
//
// Every conversion runs on a single bounded worker under a hard wall-clock
// timeout; on expiry the attempt is abandoned (no retry) and the chain
// falls through to the next engine.
type chromedpEngine struct {
	timeout time.Duration
	binPath string

	// worker serializes conversions: one in flight at a time.
	worker chan struct{}

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func newChromedpEngine(timeout time.Duration, binPath string) *chromedpEngine {
	return &chromedpEngine{
		timeout: timeout,
		binPath: binPath,
		worker:  make(chan struct{}, 1),
	}
}

func (e *chromedpEngine) Name() string { return engineChromedp }

// allocator lazily creates the shared exec allocator.
func (e *chromedpEngine) allocator() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.allocCtx != nil {
		return e.allocCtx
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-sandbox", true),
	)
	if e.binPath != "" {
		opts = append(opts, chromedp.ExecPath(e.binPath))
	}

	e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return e.allocCtx
}

// Convert renders the document with a <!DOCTYPE html> prefix ensured, on
// the bounded worker.
func (e *chromedpEngine) Convert(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Acquire the single worker slot; give up if the batch deadline hits
	// first.
	select {
	case e.worker <- struct{}{}:
		defer func() { <-e.worker }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := e.render(runCtx, EnsureDoctype(doc.HTML))
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrEngineTimeout, e.timeout)
		}
		return nil, err
	}
	return data, nil
}

// render performs the navigation and PDF print in a fresh tab.
func (e *chromedpEngine) render(ctx context.Context, content string) ([]byte, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(content, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	tabCtx, tabCancel := chromedp.NewContext(e.allocator())
	defer tabCancel()

	// Propagate the bounded deadline onto the tab context.
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithMarginTop(marginInches).
				WithMarginRight(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return buf, nil
}

// Close releases the browser allocator.
func (e *chromedpEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCtx = nil
		e.allocCancel = nil
	}
	return nil
}
