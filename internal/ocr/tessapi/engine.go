// Package tessapi runs tesseract in-process through the gosseract bindings.
package tessapi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
)

// Engine is an ocr.Engine backed by libtesseract. A tesseract client is not safe for
// concurrent use, so calls are serialized.
type Engine struct {
	lang        []string
	tessdataDir string
	mu          sync.Mutex
}

func New(lang, tessdataDir string) *Engine {
	if lang == "" {
		lang = "eng"
	}
	return &Engine{lang: strings.Split(lang, "+"), tessdataDir: tessdataDir}
}

func (e *Engine) Recognize(ctx context.Context, imagePath string, opts ocr.RecognizeOptions) ([]ocr.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataDir != "" {
		if err := client.SetTessdataPrefix(e.tessdataDir); err != nil {
			return nil, fmt.Errorf("tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.lang...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if opts.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}
	return toTokens(boxes), nil
}

func toTokens(boxes []gosseract.BoundingBox) []ocr.Token {
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, ocr.Token{
			Text:   text,
			Left:   b.Box.Min.X,
			Top:    b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
			Conf:   b.Confidence,
			Block:  b.BlockNum,
			Par:    b.ParNum,
			Line:   b.LineNum,
			Word:   b.WordNum,
		})
	}
	return tokens
}
