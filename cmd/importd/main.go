package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/caselaw-ingest/internal/async"
	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/export"
	"github.com/joseph-ayodele/caselaw-ingest/internal/gazette"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ingest"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr/tessapi"
	"github.com/joseph-ayodele/caselaw-ingest/internal/pipeline"
	repo "github.com/joseph-ayodele/caselaw-ingest/internal/repository"
	"github.com/joseph-ayodele/caselaw-ingest/internal/server"
)

func main() {
	var (
		inmem   = pflag.Bool("inmem", false, "use in-memory SQLite database")
		workers = pflag.Int("workers", 1, "concurrent document imports")
	)
	pflag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)
	if err := cfg.Validate(!*inmem); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rules, err := causelist.LoadRules(cfg.Import.CorrectionRulesFile)
	if err != nil {
		logger.Error("failed to load correction rules", "error", err)
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
	people := repo.NewPeopleRepository(db, logger)
	gazettes := repo.NewGazetteRepository(db, logger)
	runs := repo.NewImportRunRepository(db, logger)

	extractor := tessapi.NewExtractor(cfg.OCR, logger)
	// the watcher fires on every rewrite, so re-imports of identical bytes are skipped
	causeLists := pipeline.NewCauseListImporter(extractor, rules, cfg.Import.RemarksMaxDistance, entries, runs, logger,
		pipeline.WithSkipUnchanged())
	gazetteImporter := pipeline.NewGazetteImporter(db, people, gazettes, runs, gazette.NewPDFReader(extractor, logger), logger)
	processor := pipeline.NewProcessor(logger, causeLists, gazetteImporter)

	// queued jobs outlive the signal so Shutdown can drain them
	queue := async.NewWorkerQueue(context.WithoutCancel(ctx), *workers, 128, func(ctx context.Context, job async.Job) error {
		defer server.RemoveUpload(job.Path)
		_, err := processor.ProcessFile(ctx, job.Path)
		return err
	}, logger, async.WithOnDrop(func(job async.Job) { server.RemoveUpload(job.Path) }))

	srv := server.NewServer(server.Deps{
		Gazettes:   gazetteImporter,
		CauseLists: causeLists,
		Exporter:   export.NewService(entries, logger),
		Runs:       runs,
		Health:     db,
		Queue:      queue,
	}, cfg.Server, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("caselaw-ingest listening", "addr", cfg.Server.HTTPAddr, "auth", cfg.Server.APIKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Server.InboxDir != "" {
		paths, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
			Roots:       []string{cfg.Server.InboxDir},
			InitialScan: true,
			Debounce:    2 * time.Second,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Server.InboxDir, "error", err)
			os.Exit(1)
		}
		logger.Info("watching inbox", "dir", cfg.Server.InboxDir)
		g.Go(func() error {
			return forwardInbox(gctx, paths, errs, queue, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}

// forwardInbox queues every file the watcher reports until the watcher closes.
func forwardInbox(ctx context.Context, paths <-chan string, errs <-chan error, queue async.Queue, logger *slog.Logger) error {
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			job := async.Job{Path: p, SubmittedAt: time.Now().UTC()}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("inbox file not queued", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("inbox watcher error", "error", err)
		}
	}
}
