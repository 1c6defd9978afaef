package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
)

// Outcome is the result of processing one inbox file. Exactly one of the summaries is set.
type Outcome struct {
	Path      string
	CauseList *ImportSummary
	Gazette   *GazetteImportResult
}

// Processor routes a file to the importer for its kind. A file whose parent directory is
// named after a gazette type is a gazette; any other PDF is a cause list.
type Processor struct {
	Logger    *slog.Logger
	CauseList *CauseListImporter
	Gazette   *GazetteImporter
}

func NewProcessor(logger *slog.Logger, causeList *CauseListImporter, gz *GazetteImporter) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, CauseList: causeList, Gazette: gz}
}

// ProcessFile imports path with the importer its location selects.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	out := Outcome{Path: path}
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return out, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, filepath.Ext(path))
	}

	if t, ok := constants.ParseGazetteType(filepath.Base(filepath.Dir(path))); ok {
		if p.Gazette == nil {
			return out, fmt.Errorf("%w: gazette imports are not enabled", common.ErrUnsupportedFile)
		}
		f, err := os.Open(path)
		if err != nil {
			return out, fmt.Errorf("open: %w", err)
		}
		defer f.Close()
		res, err := p.Gazette.Import(ctx, f, filepath.Base(path), t)
		if err != nil {
			p.Logger.Error("processor.gazette.failed", "path", path, "err", err)
			return out, err
		}
		out.Gazette = &res
		p.Logger.Info("processor.gazette.ok", "path", path, "imported", res.ImportedCount, "skipped", res.SkippedCount)
		return out, nil
	}

	if format != constants.PDF {
		return out, fmt.Errorf("%w: cause lists must be PDF", common.ErrUnsupportedFile)
	}
	if p.CauseList == nil {
		return out, fmt.Errorf("%w: cause-list imports are not enabled", common.ErrUnsupportedFile)
	}
	sum, err := p.CauseList.Import(ctx, path)
	if err != nil {
		p.Logger.Error("processor.causelist.failed", "path", path, "err", err)
		return out, err
	}
	out.CauseList = &sum
	p.Logger.Info("processor.causelist.ok", "path", path, "created", sum.Created, "updated", sum.Updated, "unchanged", sum.Unchanged)
	return out, nil
}
