package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
)

const importRunTable = "import_runs"

var importRunColumns = []string{
	"id", "kind", "source_path", "source_hash", "format", "gazette_type", "status",
	"pages", "parsed", "created", "updated", "skipped", "error_message", "started_at", "finished_at",
}

// RunCounts are the totals recorded when a run finishes.
type RunCounts struct {
	Pages   int
	Parsed  int
	Created int
	Updated int
	Skipped int
}

type ImportRunRepository interface {
	Start(ctx context.Context, run *entity.ImportRun) error
	Finish(ctx context.Context, id uuid.UUID, counts RunCounts) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ImportRun, error)
	// FindSucceededByHash returns the latest successful run of kind over a file with this hash.
	FindSucceededByHash(ctx context.Context, kind, hash string) (*entity.ImportRun, error)
}

type importRunRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewImportRunRepository(db *DB, logger *slog.Logger) ImportRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &importRunRepository{db: db, logger: logger}
}

func (r *importRunRepository) Start(ctx context.Context, run *entity.ImportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Status = string(constants.RunStatusRunning)
	run.StartedAt = time.Now().UTC()

	q, args := r.db.builder().Insert(importRunTable).
		Columns("id", "kind", "source_path", "source_hash", "format", "gazette_type", "status", "started_at").
		Values(run.ID.String(), run.Kind, run.SourcePath, run.SourceHash, run.Format, strArg(run.GazetteType), run.Status, run.StartedAt).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to start import run", "source_path", run.SourcePath, "error", err)
		return err
	}
	r.logger.Debug("import run started", "run_id", run.ID, "kind", run.Kind, "source_path", run.SourcePath)
	return nil
}

func (r *importRunRepository) Finish(ctx context.Context, id uuid.UUID, c RunCounts) error {
	q, args := r.db.builder().Update(importRunTable).
		Set("status", string(constants.RunStatusSucceeded)).
		Set("pages", c.Pages).
		Set("parsed", c.Parsed).
		Set("created", c.Created).
		Set("updated", c.Updated).
		Set("skipped", c.Skipped).
		Set("finished_at", time.Now().UTC()).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.finish(ctx, id, q, args)
}

func (r *importRunRepository) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	q, args := r.db.builder().Update(importRunTable).
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", msg).
		Set("finished_at", time.Now().UTC()).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.finish(ctx, id, q, args)
}

func (r *importRunRepository) finish(ctx context.Context, id uuid.UUID, q string, args []any) error {
	res, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to close import run", "run_id", id, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: import run %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *importRunRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ImportRun, error) {
	q, args := r.db.builder().Select(importRunColumns...).
		From(entsql.Table(importRunTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.one(ctx, q, args, fmt.Sprintf("import run %s", id))
}

func (r *importRunRepository) FindSucceededByHash(ctx context.Context, kind, hash string) (*entity.ImportRun, error) {
	q, args := r.db.builder().Select(importRunColumns...).
		From(entsql.Table(importRunTable)).
		Where(entsql.And(
			entsql.EQ("kind", kind),
			entsql.EQ("source_hash", hash),
			entsql.EQ("status", string(constants.RunStatusSucceeded)),
		)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1).
		Query()
	return r.one(ctx, q, args, fmt.Sprintf("succeeded %s run for %s", kind, hash))
}

func (r *importRunRepository) one(ctx context.Context, q string, args []any, what string) (*entity.ImportRun, error) {
	var found *entity.ImportRun
	err := r.db.query(ctx, q, args, func(rows entsql.ColumnScanner) error {
		var (
			run      entity.ImportRun
			started  timestamp
			finished timestamp
		)
		err := rows.Scan(&run.ID, &run.Kind, &run.SourcePath, &run.SourceHash, &run.Format, &run.GazetteType,
			&run.Status, &run.Pages, &run.Parsed, &run.Created, &run.Updated, &run.Skipped,
			&run.ErrorMessage, &started, &finished)
		if err != nil {
			return err
		}
		run.StartedAt = started.Time
		run.FinishedAt = finished.ptr()
		found = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, what)
	}
	return found, nil
}
