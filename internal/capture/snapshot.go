package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Default viewport for listing snapshots.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 1600
	DefaultTimeoutSec = 30
)

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: OutputPath is required")
)

// readySelector is set by the listing page template once it has rendered.
const readySelector = `[data-ready="true"]`

// CaptureOptions defines parameters for a snapshot of a listing page.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/javascript".
	URL string

	// OutputPath is where the PNG is written. The file is replaced
	// atomically.
	OutputPath string

	// Viewport size in pixels. Zero means DefaultWidth / DefaultHeight.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o CaptureOptions) withDefaults() (CaptureOptions, error) {
	if o.URL == "" {
		return o, ErrNoURL
	}
	if o.OutputPath == "" {
		return o, ErrNoOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o, nil
}

// CaptureListingPNG opens opts.URL in headless Chromium, waits for the page
// to report data-ready="true" and writes a full-page PNG to opts.OutputPath.
func CaptureListingPNG(parentCtx context.Context, opts CaptureOptions) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	return writeAtomic(opts.OutputPath, png)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return fmt.Errorf("capture: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("capture: close PNG: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("capture: rename PNG: %w", err)
	}
	return nil
}
