package layout

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"chronicle/reorder/internal/document"
	"chronicle/reorder/internal/render"
)

// ErrBrowserUnavailable indicates no Chromium binary could be found.
var ErrBrowserUnavailable = errors.New("layout browser unavailable")

const measureScript = `(() => {
  const rect = (el) => {
    const b = el.getBoundingClientRect();
    return {top: b.top, left: b.left, width: b.width, height: b.height};
  };
  const editor = document.querySelector('[data-editor]');
  const boxes = Array.from(document.querySelectorAll('[data-pos]')).map((el) => ({
    position: Number(el.dataset.pos),
    depth: Number(el.dataset.depth),
    rect: rect(el),
  }));
  return {bounds: rect(editor), boxes};
})()`

// Browser measures rendered documents in headless Chrome.
type Browser struct {
	Left           float64
	Width          float64
	ViewportHeight int64
	Timeout        time.Duration
}

// NewBrowser returns a Browser sized like DefaultMetrics.
func NewBrowser() *Browser {
	m := DefaultMetrics()
	return &Browser{Left: m.Left, Width: m.Width, ViewportHeight: 2000, Timeout: 30 * time.Second}
}

// Available reports whether a Chromium binary is on PATH.
func Available() bool {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Measure renders doc and returns the rectangle of every block and item.
func (b *Browser) Measure(ctx context.Context, doc *document.Document) (*Snapshot, error) {
	if !Available() {
		return nil, fmt.Errorf("%w: chromium not installed", ErrBrowserUnavailable)
	}

	page, err := render.Page(doc, render.PageOptions{Title: "measure", Left: b.Left, Width: b.Width})
	if err != nil {
		return nil, err
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Chrome options for headless mode in container
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	viewportWidth := int64(b.Left*2 + b.Width)
	var snap Snapshot
	err = chromedp.Run(taskCtx,
		emulation.SetDeviceMetricsOverride(viewportWidth, b.ViewportHeight, 1, false),
		chromedp.Navigate(render.DataURL(page)),
		chromedp.WaitReady("[data-editor]"),
		chromedp.Evaluate(measureScript, &snap),
	)
	if err != nil {
		return nil, fmt.Errorf("measure layout: %w", err)
	}
	return &snap, nil
}
