package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr/tessapi"
)

func main() {
	var (
		page     = pflag.Int("page", 0, "only dump this page (1-based); 0 dumps every page")
		classify = pflag.Bool("classify", false, "prefix each line with the recognizer's classification")
		strip    = pflag.Bool("strip", true, "also dump the remark strip pass")
	)
	pflag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if pflag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [--page N] [--classify] <file.pdf>")
		os.Exit(2)
	}
	path := pflag.Arg(0)

	rules, err := causelist.LoadRules(cfg.Import.CorrectionRulesFile)
	if err != nil {
		logger.Error("load correction rules", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	extractor := tessapi.NewExtractor(cfg.OCR, logger)
	start := time.Now()
	pages, err := extractor.Pages(ctx, path)
	if err != nil {
		logger.Error("ocr failed", "path", path, "error", err)
		os.Exit(1)
	}

	for _, p := range pages {
		if *page > 0 && p.Number != *page {
			continue
		}
		fmt.Printf("=== page %d (%dx%d px, %d lines)\n", p.Number, p.Width, p.Height, len(p.Lines))
		for _, l := range p.Lines {
			text := causelist.NormalizeLine(l.Text)
			if *classify {
				fmt.Printf("%5d %5d  %-10s %s\n", l.Top, l.Left, causelist.Classify(text, rules).Kind, text)
				continue
			}
			fmt.Printf("%5d %5d  %s\n", l.Top, l.Left, text)
		}
		if *strip && len(p.StripLines) > 0 {
			fmt.Printf("--- strip from x=%d\n", p.StripLeft)
			for _, l := range p.StripLines {
				fmt.Printf("%5d %5d  %s\n", l.Top, l.Left, l.Text)
			}
		}
	}

	logger.Info("ocr done", "path", path, "pages", len(pages), "duration_ms", time.Since(start).Milliseconds())
}
