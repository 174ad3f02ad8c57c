package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"uebergabe/models"
	"uebergabe/pagination"
	"uebergabe/render"
)

var ErrChromeUnavailable = errors.New("headless chrome not found; install chromium or set CHROME_PATH")

const (
	// 210mm at 96dpi
	viewportWidth  = 794
	viewportHeight = 1123

	captureScale   = 2
	captureQuality = 70
)

var chromeCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// Artifact is a finished protocol PDF.
type Artifact struct {
	PDF      []byte
	Filename string
	Pages    int
	Shifts   []pagination.Shift
}

// PDFGenerator lays the protocol out in a throwaway headless-browser tab,
// keeps atomic blocks off page boundaries, captures the page once and cuts
// the capture into A4 pages.
type PDFGenerator struct {
	ExecPath string
	Brand    string
	Settle   time.Duration
	Logger   *zap.Logger
}

// Generate renders doc into a paged PDF.
func (g *PDFGenerator) Generate(ctx context.Context, doc *models.Document) (*Artifact, error) {
	execPath, err := g.browserPath()
	if err != nil {
		return nil, err
	}
	log := g.logger().With(zap.String("document_id", doc.ID))
	started := time.Now()

	blocks := render.Build(doc)
	finalHTML, err := render.HTML(blocks, render.PageOptions{Brand: g.Brand})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	// Create temp HTML file; the name never carries document data
	tmp, err := os.CreateTemp("", "protocol_*.html")
	if err != nil {
		return nil, fmt.Errorf("create render surface: %w", err)
	}
	tmpHTML := tmp.Name()
	defer os.Remove(tmpHTML)
	_, err = tmp.Write(finalHTML)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write render surface: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(execPath))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	surface := &browserSurface{}
	var (
		shifts  []pagination.Shift
		capture []byte
	)
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate("file://"+tmpHTML),
		chromedp.WaitReady(containerSelector, chromedp.ByQuery),
		chromedp.Sleep(g.settle()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			width, _, err := surface.container(ctx)
			if err != nil {
				return err
			}
			geometry, err := pagination.GeometryFromWidth(width)
			if err != nil {
				return err
			}
			shifts, err = pagination.Reflow(ctx, surface, geometry)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			width, height, err := surface.container(ctx)
			if err != nil {
				return err
			}
			capture, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(captureQuality).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: width, Height: height, Scale: captureScale}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("capture protocol: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(capture))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	sheet, err := pagination.Slice(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	pdfBytes, pages, err := AssemblePDF(capture, sheet, PDFInfo{Title: "Übergabeprotokoll " + doc.Address, Subject: doc.ID})
	if err != nil {
		return nil, err
	}

	log.Info("protocol rendered",
		zap.Int("pages", pages),
		zap.Int("shifted_blocks", len(shifts)),
		zap.Float64("shift_px", pagination.Total(shifts)),
		zap.Duration("duration", time.Since(started)))

	return &Artifact{
		PDF:      pdfBytes,
		Filename: ArtifactFilename(doc),
		Pages:    pages,
		Shifts:   shifts,
	}, nil
}

// browserPath fails fast when no browser is installed, before any capture
// work starts.
func (g *PDFGenerator) browserPath() (string, error) {
	if g.ExecPath != "" {
		if _, err := os.Stat(g.ExecPath); err != nil {
			return "", fmt.Errorf("%w: %v", ErrChromeUnavailable, err)
		}
		return g.ExecPath, nil
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrChromeUnavailable
}

func (g *PDFGenerator) settle() time.Duration {
	if g.Settle > 0 {
		return g.Settle
	}
	return 500 * time.Millisecond
}

func (g *PDFGenerator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
