// Package capture renders site pages with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Output formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// Default render parameters. A4 paper in inches; the viewport matches the
// print page width at 96 dpi.
const (
	DefaultPaperWidth  = 8.27
	DefaultPaperHeight = 11.69
	DefaultWidth       = 794
	DefaultHeight      = 1123
	DefaultTimeout     = 30 * time.Second
)

// ReadySelector is set by pages once their content is laid out.
const ReadySelector = `[data-ready="true"]`

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: output path is required")
	ErrFormat   = errors.New("capture: format must be pdf or png")
)

// Options defines a render of one page.
type Options struct {
	// URL to render, e.g. "http://127.0.0.1:8080/calendar/print".
	URL string

	// OutputPath is where the file is written, e.g.
	// "./documents/academic-calendar-2024-25.pdf".
	OutputPath string

	// Format is FormatPDF (default) or FormatPNG.
	Format string

	// Landscape prints the PDF sideways.
	Landscape bool

	// Width and Height are the viewport in pixels.
	Width  int
	Height int

	// Timeout bounds the whole render.
	Timeout time.Duration
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, ErrNoURL
	}
	if o.OutputPath == "" {
		return o, ErrNoOutput
	}
	switch o.Format {
	case "":
		o.Format = FormatPDF
		if filepath.Ext(o.OutputPath) == ".png" {
			o.Format = FormatPNG
		}
	case FormatPDF, FormatPNG:
	default:
		return o, ErrFormat
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// Render launches a headless Chromium via chromedp, navigates to opts.URL,
// waits until ReadySelector is visible and writes a PDF (or a full-page
// PNG) to opts.OutputPath.
func Render(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var out []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts finish painting.
		chromedp.Sleep(300 * time.Millisecond),
	}
	if opts.Format == FormatPNG {
		tasks = append(tasks, chromedp.FullScreenshot(&out, 100))
	} else {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(DefaultPaperWidth).
				WithPaperHeight(DefaultPaperHeight).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write %s: %w", opts.Format, err)
	}
	return nil
}
