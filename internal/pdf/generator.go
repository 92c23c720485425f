package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Paper sizes in inches, as Chromium's print API expects them.
type Paper struct {
	Width  float64
	Height float64
}

var (
	PaperA4     = Paper{Width: 8.27, Height: 11.69}
	PaperLetter = Paper{Width: 8.5, Height: 11}
)

// Renderer prints HTML documents to PDF with a fresh headless Chromium per call.
type Renderer struct {
	timeout time.Duration
	paper   Paper
	margin  float64
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithTimeout bounds page creation, load and print.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPaper selects the page size.
func WithPaper(p Paper) Option {
	return func(r *Renderer) { r.paper = p }
}

// NewRenderer defaults to A4 with 0.4in margins and a 30s budget.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{timeout: 30 * time.Second, paper: PaperA4, margin: 0.4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// printOptions emulates the results page's print stylesheet, so buttons marked no-print are dropped.
func (r *Renderer) printOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &r.paper.Width,
		PaperHeight:     &r.paper.Height,
		MarginTop:       &r.margin,
		MarginBottom:    &r.margin,
		MarginLeft:      &r.margin,
		MarginRight:     &r.margin,
	}
}

// Render loads htmlContent with print media emulated and returns the PDF bytes.
func (r *Renderer) Render(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Timeout(r.timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()
	page = page.Timeout(r.timeout)

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("emulate print media: %w", err)
	}
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(r.printOptions())
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}
