package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/document"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
	"github.com/joseph-ayodele/caselaw-ingest/internal/repository"
)

// Import run kinds.
const (
	KindCauseList = "causelist"
	KindGazette   = "gazette"
)

// PageExtractor turns a PDF into positioned OCR lines, one Page per page.
type PageExtractor interface {
	Pages(ctx context.Context, pdfPath string) ([]ocr.Page, error)
	DPI() int
}

// ImportSummary is what one cause-list import did.
type ImportSummary struct {
	RunID     string                  `json:"run_id"`
	Document  string                  `json:"document"`
	Pages     int                     `json:"pages"`
	Parsed    int                     `json:"parsed"`
	Created   int                     `json:"created"`
	Updated   int                     `json:"updated"`
	Skipped   int                     `json:"skipped"`
	Unchanged bool                    `json:"unchanged,omitempty"`
	Records   []entity.CauseListEntry `json:"-"`
}

// CauseListImporter runs one cause-list PDF through OCR, parsing and the upsert.
type CauseListImporter struct {
	pages         PageExtractor
	parser        *causelist.Parser
	entries       repository.CauseListRepository
	runs          repository.ImportRunRepository
	inspect       func(path string) (document.Info, error)
	skipUnchanged bool
	logger        *slog.Logger

	// the upsert is find-then-insert, so two lists sharing a (suit_no, hearing_date)
	// must not run it at the same time
	upsertMu sync.Mutex
}

type CauseListOption func(*CauseListImporter)

// WithSkipUnchanged makes Import return early for a file whose hash already imported cleanly.
func WithSkipUnchanged() CauseListOption {
	return func(i *CauseListImporter) { i.skipUnchanged = true }
}

// WithPDFInspector replaces the pdfcpu check run before OCR.
func WithPDFInspector(f func(path string) (document.Info, error)) CauseListOption {
	return func(i *CauseListImporter) {
		if f != nil {
			i.inspect = f
		}
	}
}

// NewCauseListImporter wires the stages. maxDistance is the remark cutoff in pixels at
// 400 DPI; it is rescaled to the extractor's rendering DPI.
func NewCauseListImporter(
	pages PageExtractor,
	rules *causelist.Rules,
	maxDistance int,
	entries repository.CauseListRepository,
	runs repository.ImportRunRepository,
	logger *slog.Logger,
	opts ...CauseListOption,
) *CauseListImporter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDistance <= 0 {
		maxDistance = causelist.DefaultMaxDistance
	}
	cutoff := causelist.ScaleDistance(maxDistance, pages.DPI())
	i := &CauseListImporter{
		pages:   pages,
		parser:  causelist.NewParser(rules, logger, causelist.WithMaxDistance(cutoff)),
		entries: entries,
		runs:    runs,
		inspect: document.Inspect,
		logger:  logger,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Import processes pdfPath end to end. Whole-document failures (missing file, unreadable
// PDF, OCR or database failure) are returned as errors and nothing is committed; records
// that cannot be placed only change the counts.
func (i *CauseListImporter) Import(ctx context.Context, pdfPath string) (ImportSummary, error) {
	sum := ImportSummary{Document: filepath.Base(pdfPath)}

	abs, err := i.validate(pdfPath)
	if err != nil {
		return sum, err
	}
	hash, err := hashFile(abs)
	if err != nil {
		return sum, err
	}

	if i.skipUnchanged {
		prev, err := i.runs.FindSucceededByHash(ctx, KindCauseList, hash)
		switch {
		case err == nil:
			i.logger.Info("causelist.import.unchanged", "path", abs, "previous_run", prev.ID)
			sum.RunID = prev.ID.String()
			sum.Unchanged = true
			return sum, nil
		case !errors.Is(err, common.ErrNotFound):
			return sum, err
		}
	}

	run := &entity.ImportRun{Kind: KindCauseList, SourcePath: abs, SourceHash: hash, Format: constants.PDF}
	if err := i.runs.Start(ctx, run); err != nil {
		return sum, err
	}
	sum.RunID = run.ID.String()
	ctx = common.WithRunID(ctx, run.ID)
	log := common.LoggerFrom(ctx, i.logger).With("document", sum.Document)

	fail := func(err error) (ImportSummary, error) {
		log.Error("causelist.import.failed", "error", err)
		if ferr := i.runs.Fail(context.WithoutCancel(ctx), run.ID, err); ferr != nil {
			log.Error("failed to record import failure", "error", ferr)
		}
		return sum, err
	}

	pages, err := i.pages.Pages(ctx, abs)
	if err != nil {
		return fail(fmt.Errorf("ocr %s: %w", sum.Document, err))
	}

	res := i.parser.Parse(pages)
	sum.Pages = res.Pages
	sum.Parsed = len(res.Records)
	sum.Skipped = res.Skipped

	entries := make([]entity.CauseListEntry, 0, len(res.Records))
	for _, rec := range res.Records {
		e, ok := toEntry(rec, sum.Document)
		if !ok {
			sum.Skipped++
			log.Debug("causelist.record.skipped", "suit_no", rec.SuitNo, "page", rec.Page)
			continue
		}
		entries = append(entries, e)
	}

	up, err := i.upsert(ctx, entries)
	if err != nil {
		return fail(err)
	}
	sum.Created, sum.Updated = up.Created, up.Updated
	sum.Records = entries

	counts := repository.RunCounts{Pages: sum.Pages, Parsed: sum.Parsed, Created: sum.Created, Updated: sum.Updated, Skipped: sum.Skipped}
	if err := i.runs.Finish(ctx, run.ID, counts); err != nil {
		log.Error("failed to record import result", "error", err)
	}
	log.Info("causelist.import.ok",
		"pages", sum.Pages,
		"parsed", sum.Parsed,
		"created", sum.Created,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

func (i *CauseListImporter) upsert(ctx context.Context, entries []entity.CauseListEntry) (repository.UpsertResult, error) {
	i.upsertMu.Lock()
	defer i.upsertMu.Unlock()
	return i.entries.UpsertBatch(ctx, entries)
}

func (i *CauseListImporter) validate(pdfPath string) (string, error) {
	if strings.TrimSpace(pdfPath) == "" {
		return "", fmt.Errorf("%w: pdf path is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", common.ErrNotFound, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, abs)
	}
	if constants.MapExtToFormat(filepath.Ext(abs)) != constants.PDF {
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFile, filepath.Ext(abs))
	}
	if _, err := i.inspect(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// toEntry maps a parsed record onto a row. Records without a suit number, hearing date or
// title cannot be keyed or displayed and are dropped.
func toEntry(r causelist.Record, doc string) (entity.CauseListEntry, bool) {
	title := strings.TrimSpace(r.CaseTitle)
	if r.SuitNo == "" || !r.HasHearingDate() || title == "" {
		return entity.CauseListEntry{}, false
	}
	e := entity.CauseListEntry{
		SuitNo:          r.SuitNo,
		HearingDate:     r.HearingDate,
		CaseTitle:       title,
		FirstPartyName:  optional(r.FirstParty),
		SecondPartyName: optional(r.SecondParty),
		CaseType:        optional(r.CaseType),
		Remarks:         optional(r.Remarks),
		CourtType:       optional(CourtType(r.Venue)),
		Venue:           optional(r.Venue),
		Location:        optional(r.Location),
		SourceDocument:  doc,
		PageNumber:      r.Page,
	}
	if r.HearingTime != nil {
		e.HearingTime = optional(r.HearingTime.String())
	}
	return e, true
}

var courtTypes = []string{
	"SUPREME COURT",
	"COURT OF APPEAL",
	"COMMERCIAL COURT",
	"LAND COURT",
	"HIGH COURT",
	"CIRCUIT COURT",
	"DISTRICT COURT",
}

// CourtType names the court level mentioned in a venue line, or "" when none is.
func CourtType(venue string) string {
	v := strings.ToUpper(venue)
	for _, c := range courtTypes {
		if strings.Contains(v, c) {
			return c
		}
	}
	return ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
