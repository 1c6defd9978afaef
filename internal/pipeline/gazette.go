package pipeline

import (
	"bytes"
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
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/gazette"
	"github.com/joseph-ayodele/caselaw-ingest/internal/repository"
)

const (
	maxReportedErrors = 10
	maxErrorLength    = 200
)

// Transactor runs fn in one transaction; repository calls made with fn's ctx join it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// GazetteReader reads notices out of a gazette PDF.
type GazetteReader interface {
	Read(ctx context.Context, path string, t constants.GazetteType) (gazette.Header, []gazette.Row, error)
}

// GazetteImportResult is returned to API and CLI callers. Errors holds at most the first
// ten row failures.
type GazetteImportResult struct {
	Success       bool                  `json:"success"`
	ImportedCount int                   `json:"imported_count"`
	SkippedCount  int                   `json:"skipped_count"`
	TotalRows     int                   `json:"total_rows"`
	Errors        []string              `json:"errors"`
	GazetteType   constants.GazetteType `json:"gazette_type"`
}

type GazetteImporter struct {
	tx       Transactor
	people   repository.PeopleRepository
	gazettes repository.GazetteRepository
	runs     repository.ImportRunRepository
	pdf      GazetteReader
	logger   *slog.Logger
}

func NewGazetteImporter(
	tx Transactor,
	people repository.PeopleRepository,
	gazettes repository.GazetteRepository,
	runs repository.ImportRunRepository,
	pdf GazetteReader,
	logger *slog.Logger,
) *GazetteImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GazetteImporter{tx: tx, people: people, gazettes: gazettes, runs: runs, pdf: pdf, logger: logger}
}

// Import reads every notice in file and stores each one in its own transaction. A notice
// that fails is rolled back alone and reported; the rest still commit. Re-importing the
// same filename reuses the gazette rows already stored for it.
func (g *GazetteImporter) Import(ctx context.Context, file io.Reader, filename string, t constants.GazetteType) (GazetteImportResult, error) {
	res := GazetteImportResult{GazetteType: t, Errors: []string{}}
	if _, ok := constants.ParseGazetteType(string(t)); !ok {
		return res, fmt.Errorf("%w: gazette_type must be one of %s", common.ErrInvalidInput, strings.Join(constants.GazetteTypesAsStrings(), ", "))
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	format := constants.MapExtToFormat(filepath.Ext(filename))
	if format == "" {
		return res, fmt.Errorf("%w: %q (want .xlsx, .xls or .pdf)", common.ErrUnsupportedFile, filepath.Ext(filename))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return res, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return res, fmt.Errorf("%w: %s is empty", common.ErrInvalidInput, filename)
	}
	sum := sha256.Sum256(data)

	gt := string(t)
	run := &entity.ImportRun{
		Kind:        KindGazette,
		SourcePath:  filename,
		SourceHash:  hex.EncodeToString(sum[:]),
		Format:      format,
		GazetteType: &gt,
	}
	if err := g.runs.Start(ctx, run); err != nil {
		return res, err
	}
	ctx = common.WithRunID(ctx, run.ID)
	log := common.LoggerFrom(ctx, g.logger).With("document", filename, "gazette_type", t)

	rows, err := g.read(ctx, data, filename, format, t)
	if err != nil {
		log.Error("gazette.import.failed", "error", err)
		if ferr := g.runs.Fail(context.WithoutCancel(ctx), run.ID, err); ferr != nil {
			log.Error("failed to record import failure", "error", ferr)
		}
		return res, err
	}

	res.TotalRows = len(rows)
	created := 0
	for _, row := range rows {
		if row.Err != nil {
			g.skip(&res, row, row.Err)
			continue
		}
		var isNew bool
		err := g.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			isNew, err = g.storeRow(ctx, row.Entry, row.Index, filename)
			return err
		})
		if err != nil {
			log.Warn("gazette.row.rolled_back", "row", row.Index, "error", err)
			g.skip(&res, row, err)
			continue
		}
		res.ImportedCount++
		if isNew {
			created++
		}
	}
	res.Success = true

	counts := repository.RunCounts{
		Parsed:  res.TotalRows,
		Created: created,
		Updated: res.ImportedCount - created,
		Skipped: res.SkippedCount,
	}
	if err := g.runs.Finish(ctx, run.ID, counts); err != nil {
		log.Error("failed to record import result", "error", err)
	}
	log.Info("gazette.import.ok",
		"total_rows", res.TotalRows,
		"imported", res.ImportedCount,
		"new", created,
		"skipped", res.SkippedCount,
	)
	return res, nil
}

func (g *GazetteImporter) read(ctx context.Context, data []byte, filename, format string, t constants.GazetteType) ([]gazette.Row, error) {
	if format == constants.EXCEL {
		return gazette.ReadExcel(bytes.NewReader(data), t)
	}
	if g.pdf == nil {
		return nil, fmt.Errorf("%w: pdf gazettes are not enabled", common.ErrUnsupportedFile)
	}
	// the text layer and OCR readers both need a path
	tmp, err := os.CreateTemp("", "gazette-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	_, rows, err := g.pdf.Read(ctx, tmp.Name(), t)
	return rows, err
}

func (g *GazetteImporter) skip(res *GazetteImportResult, row gazette.Row, err error) {
	res.SkippedCount++
	if len(res.Errors) >= maxReportedErrors {
		return
	}
	res.Errors = append(res.Errors, truncate(fmt.Sprintf("Row %d: %v", row.Index, err), maxErrorLength))
}

// storeRow resolves the person named by e and records the notice against them.
func (g *GazetteImporter) storeRow(ctx context.Context, e gazette.Entry, index int, filename string) (bool, error) {
	name := e.PersonName()
	person, err := g.people.FindByName(ctx, name)
	switch {
	case errors.Is(err, common.ErrNotFound):
		person = &entity.Person{FullName: name}
		mergePerson(person, e)
		if err := g.people.Create(ctx, person); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		if mergePerson(person, e) {
			if err := g.people.Update(ctx, person); err != nil {
				return false, err
			}
		}
	}

	row := toGazette(e, filename, index)
	row.PersonID = &person.ID
	return g.gazettes.GetOrCreate(ctx, row)
}

// mergePerson folds the facts of a notice into p and reports whether anything changed.
func mergePerson(p *entity.Person, e gazette.Entry) bool {
	changed := false
	for _, alias := range e.AliasNames() {
		if strings.EqualFold(alias, p.FullName) || containsFold(p.PreviousNames, alias) {
			continue
		}
		p.PreviousNames = append(p.PreviousNames, alias)
		changed = true
	}
	setStr := func(dst **string, v string) {
		v = strings.TrimSpace(v)
		if v == "" || (*dst != nil && **dst == v) {
			return
		}
		*dst = &v
		changed = true
	}
	setStr(&p.Profession, e.Profession)
	setStr(&p.Address, e.Address)

	switch e.Type {
	case constants.ChangeOfDateOfBirth:
		if !e.DateOfBirth.IsZero() && (p.DateOfBirth == nil || !p.DateOfBirth.Equal(e.DateOfBirth)) {
			d := e.DateOfBirth
			p.DateOfBirth = &d
			changed = true
		}
	case constants.ChangeOfPlaceOfBirth:
		setStr(&p.PlaceOfBirth, e.PlaceOfBirth)
	case constants.AppointmentOfMarriageOfficers:
		if !p.IsMarriageOfficer {
			p.IsMarriageOfficer = true
			changed = true
		}
		setStr(&p.MarriageOfficerChurch, e.Church)
	}
	return changed
}

func toGazette(e gazette.Entry, filename string, index int) *entity.Gazette {
	item := strings.TrimSpace(e.ItemNumber)
	if item == "" {
		item = fmt.Sprintf("row-%d", index)
	}
	return &entity.Gazette{
		GazetteType:      string(e.Type),
		ItemNumber:       item,
		DocumentFilename: filename,
		GazetteNumber:    optional(e.GazetteNumber),
		GazetteDate:      optionalDate(e.GazetteDate),
		FullName:         e.PersonName(),
		OldName:          optional(e.OldName),
		NewName:          optional(e.NewName),
		AliasNames:       e.AliasNames(),
		Profession:       optional(e.Profession),
		Address:          optional(e.Address),
		OldDateOfBirth:   optionalDate(e.OldDateOfBirth),
		NewDateOfBirth:   optionalDate(e.DateOfBirth),
		OldPlaceOfBirth:  optional(e.OldPlaceOfBirth),
		NewPlaceOfBirth:  optional(e.PlaceOfBirth),
		EffectiveDate:    optionalDate(e.EffectiveDate),
		Church:           optional(e.Church),
		Location:         optional(e.Location),
		Remarks:          optional(e.Remarks),
	}
}

func optionalDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
