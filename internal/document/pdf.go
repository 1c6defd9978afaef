// Package document inspects PDF files before they reach the OCR and parsing stages.
package document

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
)

// PageDim is a page size in PDF points (1/72 inch).
type PageDim struct {
	Width  float64
	Height float64
}

// PixelSize returns the page size in pixels when rendered at dpi.
func (d PageDim) PixelSize(dpi int) (int, int) {
	return int(d.Width * float64(dpi) / 72.0), int(d.Height * float64(dpi) / 72.0)
}

// Info is what the pipeline needs to know about a PDF before rendering it.
type Info struct {
	Path  string
	Pages int
	Dims  []PageDim
}

// Inspect opens path with pdfcpu in relaxed validation mode and reads the page count and sizes.
// Any failure is reported as common.ErrUnreadableDocument.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return Info{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: read pdf context: %v", common.ErrUnreadableDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("%w: page count: %v", common.ErrUnreadableDocument, err)
	}
	if ctx.PageCount == 0 {
		return Info{}, fmt.Errorf("%w: document has no pages", common.ErrUnreadableDocument)
	}

	info := Info{Path: path, Pages: ctx.PageCount}
	dims, err := ctx.PageDims()
	if err == nil {
		for _, d := range dims {
			info.Dims = append(info.Dims, PageDim{Width: d.Width, Height: d.Height})
		}
	}
	return info, nil
}

// TextPages returns the embedded text layer of every page. Scanned documents come back
// with blank strings; callers decide whether to fall back to OCR.
func TextPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf text layer: %v", common.ErrUnreadableDocument, err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// HasText reports whether any page carries a usable text layer.
func HasText(pages []string) bool {
	for _, p := range pages {
		if len(strings.Fields(p)) > 3 {
			return true
		}
	}
	return false
}
