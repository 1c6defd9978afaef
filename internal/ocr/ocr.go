package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/caselaw-ingest/internal/document"
)

// RemarkWhitelist limits the secondary pass to the characters remark codes are made of.
const RemarkWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ/-0123456789"

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 400
	MaxPages      int // 0 = no limit

	PSM      int     // primary pass page segmentation mode, default 4 (single column, variable sizes)
	StripPSM int     // secondary pass PSM, default 6 (uniform block)
	Strip    float64 // right-hand fraction of the page OCR'd again for remark codes; 0 disables
}

// RecognizeOptions tune one OCR call.
type RecognizeOptions struct {
	PSM       int
	Whitelist string
}

// Engine turns one page image into positioned word tokens.
type Engine interface {
	Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]Token, error)
}

// Page is the OCR output of one PDF page.
type Page struct {
	Number int
	Width  int
	Height int

	Lines []Line

	// StripLines come from the secondary pass over the right-hand strip, already in page coordinates.
	StripLines []Line
	StripLeft  int
}

type Extractor struct {
	cfg     Config
	runner  Runner
	engine  Engine
	inspect func(path string) (document.Info, error)
	logger  *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner (pdftoppm and the CLI engine).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithEngine replaces the OCR engine.
func WithEngine(en Engine) Option {
	return func(e *Extractor) {
		if en != nil {
			e.engine = en
		}
	}
}

// WithInspector replaces the PDF inspector used for page sizes.
func WithInspector(f func(path string) (document.Info, error)) Option {
	return func(e *Extractor) {
		if f != nil {
			e.inspect = f
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 400
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 4
	}
	if cfg.StripPSM <= 0 {
		cfg.StripPSM = 6
	}
	e := &Extractor{
		cfg:     cfg,
		runner:  ExecRunner{Logger: logger},
		inspect: document.Inspect,
		logger:  logger,
	}
	for _, o := range opts {
		o(e)
	}
	if e.engine == nil {
		e.engine = NewCLIEngine(cfg, e.runner)
	}
	return e
}

// DPI is the rendering resolution pixel coordinates are expressed in.
func (e *Extractor) DPI() int { return e.cfg.DPI }

// Pages renders the PDF and returns the grouped OCR lines of every page in document order.
// Pages are processed one at a time.
func (e *Extractor) Pages(ctx context.Context, pdfPath string) ([]Page, error) {
	return e.pages(ctx, pdfPath, e.cfg.Strip > 0)
}

func (e *Extractor) pages(ctx context.Context, pdfPath string, strip bool) ([]Page, error) {
	start := time.Now()
	info, err := e.inspect(pdfPath)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "cl-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	images, err := e.render(ctx, pdfPath, tmpDir)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens, err := e.engine.Recognize(ctx, img.path, RecognizeOptions{PSM: e.cfg.PSM})
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", img.page, err)
		}
		page := Page{Number: img.page, Lines: GroupLines(tokens)}
		if img.page-1 < len(info.Dims) {
			page.Width, page.Height = info.Dims[img.page-1].PixelSize(e.cfg.DPI)
		}

		if strip && page.Width > 0 {
			strip, left, err := e.stripPass(ctx, pdfPath, tmpDir, page)
			if err != nil {
				e.logger.Warn("remarks strip pass failed", "page", img.page, "error", err)
			} else {
				page.StripLines, page.StripLeft = strip, left
			}
		}

		e.logger.Debug("ocr.page.ok",
			"page", page.Number,
			"lines", len(page.Lines),
			"strip_lines", len(page.StripLines),
		)
		pages = append(pages, page)
	}

	e.logger.Info("ocr.document.ok",
		"path", pdfPath,
		"pages", len(pages),
		"dpi", e.cfg.DPI,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

// PageText returns the OCR text of each page, lines separated by newlines.
func (e *Extractor) PageText(ctx context.Context, pdfPath string) ([]string, error) {
	pages, err := e.pages(ctx, pdfPath, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		texts := make([]string, len(p.Lines))
		for j, ln := range p.Lines {
			texts[j] = ln.Text
		}
		out[i] = strings.Join(texts, "\n")
	}
	return out, nil
}

type renderedPage struct {
	page int
	path string
}

func (e *Extractor) render(ctx context.Context, pdfPath, dir string) ([]renderedPage, error) {
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 400 -png <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, pdfPath, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero-padded by pdftoppm)
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	out := make([]renderedPage, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "page-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		out = append(out, renderedPage{page: n, path: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].page < out[j].page })
	return out, nil
}

// stripPass renders the right-hand strip of a page and OCRs it with a narrow whitelist,
// recovering short remark codes the whole-page pass tends to drop.
func (e *Extractor) stripPass(ctx context.Context, pdfPath, dir string, page Page) ([]Line, int, error) {
	left := int(float64(page.Width) * (1 - e.cfg.Strip))
	width := page.Width - left
	prefix := filepath.Join(dir, fmt.Sprintf("strip-%d", page.Number))
	n := strconv.Itoa(page.Number)

	args := []string{
		"-f", n, "-l", n,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-x", strconv.Itoa(left), "-y", "0",
		"-W", strconv.Itoa(width), "-H", strconv.Itoa(page.Height),
		"-png", "-singlefile",
		pdfPath, prefix,
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, 0, fmt.Errorf("pdftoppm strip: %w: %s", err, truncate(string(errb), 512))
	}

	tokens, err := e.engine.Recognize(ctx, prefix+".png", RecognizeOptions{
		PSM:       e.cfg.StripPSM,
		Whitelist: RemarkWhitelist,
	})
	if err != nil {
		return nil, 0, err
	}
	lines := GroupLines(tokens)
	ShiftLeft(lines, left)
	return lines, left, nil
}
