package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/gazette"
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
		inmem   = pflag.Bool("inmem", false, "use in-memory SQLite database")
		typeStr = pflag.String("type", "", "gazette type: "+strings.Join(constants.GazetteTypesAsStrings(), " | "))
	)
	pflag.Usage = func() {
		printError("Usage: gazette-import --type <GAZETTE_TYPE> [--inmem] <file.xlsx|xls|pdf>\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	path := pflag.Arg(0)

	gazetteType, ok := constants.ParseGazetteType(*typeStr)
	if !ok {
		printError("Error: --type must be one of %s\n", strings.Join(constants.GazetteTypesAsStrings(), ", "))
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(!*inmem); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, cleanup, err := repo.InitDatabase(ctx, cfg.Database, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	importer := pipeline.NewGazetteImporter(
		db,
		repo.NewPeopleRepository(db, logger),
		repo.NewGazetteRepository(db, logger),
		repo.NewImportRunRepository(db, logger),
		gazette.NewPDFReader(tessapi.NewExtractor(cfg.OCR, logger), logger),
		logger,
	)

	f, err := os.Open(path)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	res, err := importer.Import(ctx, f, filepath.Base(path), gazetteType)
	if err != nil {
		printError("Error: import %s: %v\n", path, err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
