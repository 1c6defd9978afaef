package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/export"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ingest"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr/tessapi"
	"github.com/joseph-ayodele/caselaw-ingest/internal/pipeline"
	repo "github.com/joseph-ayodele/caselaw-ingest/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem         = pflag.Bool("inmem", false, "use in-memory SQLite database")
		exportPath    = pflag.String("export", "", "write the stored cause list to this XLSX file after importing")
		rulesPath     = pflag.String("rules", "", "correction rules YAML (defaults to CORRECTION_RULES_FILE or the built-in table)")
		skipUnchanged = pflag.Bool("skip-unchanged", false, "skip documents already imported with the same content")
	)
	pflag.Usage = func() {
		printError("Usage: causelist-import [flags] <pdf_path|directory>\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	pdfPath := pflag.Arg(0)

	cfg := common.LoadConfig()
	if err := cfg.Validate(!*inmem); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if *rulesPath == "" {
		*rulesPath = cfg.Import.CorrectionRulesFile
	}
	rules, err := causelist.LoadRules(*rulesPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, cleanup, err := repo.InitDatabase(ctx, cfg.Database, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	entries := repo.NewCauseListRepository(db, logger)
	runs := repo.NewImportRunRepository(db, logger)

	var opts []pipeline.CauseListOption
	if *skipUnchanged {
		opts = append(opts, pipeline.WithSkipUnchanged())
	}
	importer := pipeline.NewCauseListImporter(tessapi.NewExtractor(cfg.OCR, logger), rules, cfg.Import.RemarksMaxDistance, entries, runs, logger, opts...)

	if st, err := os.Stat(pdfPath); err == nil && st.IsDir() {
		if err := importDirectory(ctx, importer, pdfPath, logger); err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		sum, err := importer.Import(ctx, pdfPath)
		if err != nil {
			printError("Error: import %s: %v\n", pdfPath, err)
			os.Exit(1)
		}
		printSummary(sum)
	}

	if *exportPath != "" {
		xlsx, err := export.NewService(entries, logger).ExportCauseListXLSX(ctx, nil, nil)
		if err != nil {
			printError("Error: export: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*exportPath, xlsx, 0o644); err != nil {
			printError("Error: write %s: %v\n", *exportPath, err)
			os.Exit(1)
		}
		fmt.Printf("- Export: %s\n", *exportPath)
	}
}

// importDirectory imports every cause-list PDF under dir, one document at a time.
func importDirectory(ctx context.Context, importer *pipeline.CauseListImporter, dir string, logger *slog.Logger) error {
	processor := pipeline.NewProcessor(logger, importer, nil)
	var total pipeline.ImportSummary
	results, stats, err := ingest.ScanDirectory(ctx, dir, true, func(ctx context.Context, path string) error {
		out, err := processor.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		printSummary(*out.CauseList)
		total.Pages += out.CauseList.Pages
		total.Parsed += out.CauseList.Parsed
		total.Created += out.CauseList.Created
		total.Updated += out.CauseList.Updated
		total.Skipped += out.CauseList.Skipped
		return nil
	})
	for _, r := range results {
		if r.Err != "" {
			printError("Failed: %s: %s\n", r.Path, r.Err)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("Directory complete: %s\n", dir)
	fmt.Printf("- Documents: %d matched, %d imported, %d failed\n", stats.Matched, stats.Succeeded, stats.Failed)
	fmt.Printf("- Parsed: %d\n", total.Parsed)
	fmt.Printf("- Created: %d\n", total.Created)
	fmt.Printf("- Updated: %d\n", total.Updated)
	fmt.Printf("- Skipped: %d\n", total.Skipped)
	return nil
}

func printSummary(sum pipeline.ImportSummary) {
	fmt.Printf("Import complete: %s\n", sum.Document)
	if sum.Unchanged {
		fmt.Printf("- Unchanged since run %s, nothing imported\n", sum.RunID)
		return
	}
	fmt.Printf("- Pages: %d\n", sum.Pages)
	fmt.Printf("- Parsed: %d\n", sum.Parsed)
	fmt.Printf("- Created: %d\n", sum.Created)
	fmt.Printf("- Updated: %d\n", sum.Updated)
	fmt.Printf("- Skipped: %d\n", sum.Skipped)
}
