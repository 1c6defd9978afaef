package tessapi

import (
	"log/slog"

	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
)

// NewExtractor builds the page extractor cfg describes. Engine "api" recognizes in-process
// through libtesseract; anything else shells out to the tesseract binary.
func NewExtractor(cfg common.OCRConfig, logger *slog.Logger) *ocr.Extractor {
	var opts []ocr.Option
	if cfg.Engine == "api" {
		opts = append(opts, ocr.WithEngine(New(cfg.TesseractLang, cfg.TessdataDir)))
	}
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.Pdftoppm,
		Tesseract:     cfg.Tesseract,
		TesseractLang: cfg.TesseractLang,
		TessdataDir:   cfg.TessdataDir,
		DPI:           cfg.DPI,
		Strip:         cfg.StripFraction,
	}, logger, opts...)
}
