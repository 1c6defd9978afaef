package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/document"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/gazette"
	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
	"github.com/joseph-ayodele/caselaw-ingest/internal/repository"
)

type fakePages struct {
	pages []ocr.Page
	err   error
	calls int
}

func (f *fakePages) Pages(context.Context, string) ([]ocr.Page, error) {
	f.calls++
	return f.pages, f.err
}

func (f *fakePages) DPI() int { return 400 }

// staticPages is safe for concurrent imports.
type staticPages []ocr.Page

func (p staticPages) Pages(context.Context, string) ([]ocr.Page, error) { return p, nil }

func (staticPages) DPI() int { return 400 }

type countingEntries struct {
	repository.CauseListRepository
	active, peak atomic.Int32
}

func (c *countingEntries) UpsertBatch(ctx context.Context, entries []entity.CauseListEntry) (repository.UpsertResult, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return c.CauseListRepository.UpsertBatch(ctx, entries)
}

func okInspector(path string) (document.Info, error) {
	return document.Info{Path: path, Pages: 1}, nil
}

func line(top int, text string) ocr.Line {
	var words []ocr.Token
	x := 100
	for _, w := range strings.Fields(text) {
		words = append(words, ocr.Token{Text: w, Left: x, Top: top})
		x += 20*len(w) + 20
	}
	return ocr.Line{Top: top, Left: 100, Text: text, Words: words}
}

func causeListPages() []ocr.Page {
	return []ocr.Page{
		{Number: 1, Lines: []ocr.Line{
			line(50, "IN THE HIGH COURT OF JUSTICE, ACCRA"),
			line(80, "MONDAY, 15TH JANUARY, 2024"),
			line(110, "TIME: 9:00 AM"),
			line(150, "MOTIONS"),
			line(200, "1. 38/122/21 KOFI MENSAH VRS AMA SERWAA F/H"),
			line(260, "2. E12/123/2023 GHANA COMMERCIAL BANK LTD"),
			line(290, "VRS KOFI ENTERPRISES"),
		}},
		{Number: 2, Lines: []ocr.Line{
			line(60, "JUDGMENTS"),
			line(100, "3. J1/7/2020 THE REPUBLIC VRS YAW BOATENG ADJ"),
		}},
	}
}

type env struct {
	db      *repository.DB
	entries repository.CauseListRepository
	people  repository.PeopleRepository
	gz      repository.GazetteRepository
	runs    repository.ImportRunRepository
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, repository.Migrate(ctx, db))
	return env{
		db:      db,
		entries: repository.NewCauseListRepository(db, nil),
		people:  repository.NewPeopleRepository(db, nil),
		gz:      repository.NewGazetteRepository(db, nil),
		runs:    repository.NewImportRunRepository(db, nil),
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestCauseListImportsSerializeUpserts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	entries := &countingEntries{CauseListRepository: e.entries}
	imp := NewCauseListImporter(staticPages(causeListPages()), nil, 0, entries, e.runs, nil, WithPDFInspector(okInspector))

	const lists = 4
	var wg sync.WaitGroup
	errs := make([]error, lists)
	created := make([]int, lists)
	for n := 0; n < lists; n++ {
		pdf := writeFile(t, "list.pdf", []byte("%PDF-1.4 fake"))
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sum, err := imp.Import(ctx, pdf)
			errs[n], created[n] = err, sum.Created
		}(n)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, entries.peak.Load())
	total := 0
	for _, c := range created {
		total += c
	}
	assert.Equal(t, 3, total, "each (suit_no, hearing_date) is created once")

	got, err := e.entries.ListByHearingDate(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCauseListImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pages := &fakePages{pages: causeListPages()}
	imp := NewCauseListImporter(pages, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector))
	pdf := writeFile(t, "list.pdf", []byte("%PDF-1.4 fake"))

	first, err := imp.Import(ctx, pdf)
	require.NoError(t, err)
	assert.Equal(t, "list.pdf", first.Document)
	assert.Equal(t, 2, first.Pages)
	assert.Equal(t, 3, first.Parsed)
	assert.Equal(t, 3, first.Created)
	assert.Zero(t, first.Updated)
	assert.Zero(t, first.Skipped)
	require.Len(t, first.Records, 3)

	second, err := imp.Import(ctx, pdf)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 3, second.Updated)
	assert.Equal(t, 2, pages.calls)

	got, err := e.entries.FindByKey(ctx, "J8/122/2021", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "KOFI MENSAH", *got.FirstPartyName)
	assert.Equal(t, "AMA SERWAA", *got.SecondPartyName)
	assert.Equal(t, "F/H", *got.Remarks)
	assert.Equal(t, "MOTIONS", *got.CaseType)
	assert.Equal(t, "09:00:00", *got.HearingTime)
	assert.Equal(t, "HIGH COURT", *got.CourtType)
	assert.Equal(t, "ACCRA", *got.Location)
	assert.Equal(t, "list.pdf", got.SourceDocument)

	run, err := e.runs.FindSucceededByHash(ctx, KindCauseList, mustHash(t, pdf))
	require.NoError(t, err)
	assert.Equal(t, string(constants.RunStatusSucceeded), run.Status)
	assert.Contains(t, []string{first.RunID, second.RunID}, run.ID.String())
}

func TestCauseListImportSkipUnchanged(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pages := &fakePages{pages: causeListPages()}
	imp := NewCauseListImporter(pages, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector), WithSkipUnchanged())
	pdf := writeFile(t, "list.pdf", []byte("%PDF-1.4 fake"))

	_, err := imp.Import(ctx, pdf)
	require.NoError(t, err)
	again, err := imp.Import(ctx, pdf)
	require.NoError(t, err)
	assert.True(t, again.Unchanged)
	assert.Equal(t, 1, pages.calls)
}

func TestCauseListImportSkipsUndatedRecords(t *testing.T) {
	e := newEnv(t)
	pages := &fakePages{pages: []ocr.Page{{Number: 1, Lines: []ocr.Line{
		line(100, "MOTIONS"),
		line(150, "1. J8/1/2021 KOFI MENSAH VRS AMA SERWAA"),
	}}}}
	imp := NewCauseListImporter(pages, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector))

	sum, err := imp.Import(context.Background(), writeFile(t, "undated.pdf", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Parsed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Created)
}

func TestCauseListImportFailures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	imp := NewCauseListImporter(&fakePages{}, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector))
	_, err := imp.Import(ctx, filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = imp.Import(ctx, writeFile(t, "list.docx", []byte("x")))
	assert.True(t, errors.Is(err, common.ErrUnsupportedFile))

	bad := NewCauseListImporter(&fakePages{}, nil, 0, e.entries, e.runs, nil, WithPDFInspector(func(string) (document.Info, error) {
		return document.Info{}, common.ErrUnreadableDocument
	}))
	_, err = bad.Import(ctx, writeFile(t, "broken.pdf", []byte("x")))
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))

	boom := errors.New("tesseract exited 1")
	failing := NewCauseListImporter(&fakePages{err: boom}, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector))
	pdf := writeFile(t, "scan.pdf", []byte("scan"))
	sum, err := failing.Import(ctx, pdf)
	require.ErrorIs(t, err, boom)

	run, err := e.runs.Get(ctx, mustUUID(t, sum.RunID))
	require.NoError(t, err)
	assert.Equal(t, string(constants.RunStatusFailed), run.Status)
}

func TestCourtType(t *testing.T) {
	assert.Equal(t, "HIGH COURT", CourtType("High Court of Justice"))
	assert.Equal(t, "COURT OF APPEAL", CourtType("IN THE COURT OF APPEAL"))
	assert.Equal(t, "", CourtType("CHAMBERS"))
}

func nameWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	rows := [][]any{
		{"Item No", "Old Name", "New Name", "Alias", "Profession"},
		{1, "Kwame Asante", "Kwame Asante Boateng", "KAB", "Teacher"},
		{2, "", "", "", ""},
		{3, "Esi Mensah", "Esi Owusu", "", ""},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestGazetteImportChangeOfName(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	imp := NewGazetteImporter(e.db, e.people, e.gz, e.runs, nil, nil)
	data := nameWorkbook(t)

	res, err := imp.Import(ctx, bytes.NewReader(data), "names.xlsx", constants.ChangeOfName)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, 1, res.SkippedCount)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Row 2: "))
	assert.Equal(t, constants.ChangeOfName, res.GazetteType)

	p, err := e.people.FindByName(ctx, "kwame asante boateng")
	require.NoError(t, err)
	assert.Equal(t, "Kwame Asante Boateng", p.FullName)
	assert.Equal(t, []string{"KAB", "Kwame Asante"}, p.PreviousNames)
	assert.Equal(t, "Teacher", *p.Profession)

	g, err := e.gz.Find(ctx, "1", "names.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Kwame Asante", *g.OldName)
	assert.Equal(t, "Kwame Asante Boateng", *g.NewName)
	assert.Equal(t, []string{"KAB", "Kwame Asante"}, g.AliasNames)
	require.NotNil(t, g.PersonID)
	assert.Equal(t, p.ID, *g.PersonID)

	// re-import reuses the stored rows
	again, err := imp.Import(ctx, bytes.NewReader(data), "names.xlsx", constants.ChangeOfName)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ImportedCount)
	list, err := e.gz.ListByPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	p2, err := e.people.FindByName(ctx, "Kwame Asante Boateng")
	require.NoError(t, err)
	assert.Equal(t, p.ID, p2.ID)
	assert.Equal(t, []string{"KAB", "Kwame Asante"}, p2.PreviousNames)
}

func TestGazetteImportRefinesExistingPerson(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	imp := NewGazetteImporter(e.db, e.people, e.gz, e.runs, nil, nil)

	_, err := imp.Import(ctx, bytes.NewReader(nameWorkbook(t)), "names.xlsx", constants.ChangeOfName)
	require.NoError(t, err)

	f := excelize.NewFile()
	rows := [][]any{
		{"Item No", "Full Name", "Date of Birth", "Old Date of Birth"},
		{7, "KWAME ASANTE BOATENG", "17th May, 1990", "17th May, 1991"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_ = f.Close()

	res, err := imp.Import(ctx, buf, "dob.xlsx", constants.ChangeOfDateOfBirth)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)

	p, err := e.people.FindByName(ctx, "Kwame Asante Boateng")
	require.NoError(t, err)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), *p.DateOfBirth)

	list, err := e.gz.ListByPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

type fakeGazettePDF struct{ rows []gazette.Row }

func (f fakeGazettePDF) Read(context.Context, string, constants.GazetteType) (gazette.Header, []gazette.Row, error) {
	return gazette.Header{}, f.rows, nil
}

func TestGazetteImportPDFMarriageOfficers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pdf := fakeGazettePDF{rows: []gazette.Row{{
		Index: 1,
		Entry: gazette.Entry{
			Type:       constants.AppointmentOfMarriageOfficers,
			ItemNumber: "12",
			FullName:   "Rev. John Kofi Addo",
			Church:     "Methodist Church Ghana",
			Location:   "Kumasi",
		},
	}}}
	imp := NewGazetteImporter(e.db, e.people, e.gz, e.runs, pdf, nil)

	res, err := imp.Import(ctx, strings.NewReader("%PDF-1.4"), "officers.pdf", constants.AppointmentOfMarriageOfficers)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)

	p, err := e.people.FindByName(ctx, "John Kofi Addo")
	require.NoError(t, err)
	assert.True(t, p.IsMarriageOfficer)
	assert.Equal(t, "Methodist Church Ghana", *p.MarriageOfficerChurch)
}

func TestGazetteImportRejectsInput(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	imp := NewGazetteImporter(e.db, e.people, e.gz, e.runs, nil, nil)

	_, err := imp.Import(ctx, strings.NewReader("x"), "names.csv", constants.ChangeOfName)
	assert.True(t, errors.Is(err, common.ErrUnsupportedFile))

	_, err = imp.Import(ctx, strings.NewReader("x"), "names.xlsx", constants.GazetteType("DIVORCE"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = imp.Import(ctx, strings.NewReader("not a workbook"), "names.xlsx", constants.ChangeOfName)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))

	_, err = imp.Import(ctx, strings.NewReader("%PDF"), "names.pdf", constants.ChangeOfName)
	assert.True(t, errors.Is(err, common.ErrUnsupportedFile))
}

func TestGazetteImportCapsErrors(t *testing.T) {
	res := GazetteImportResult{Errors: []string{}}
	imp := &GazetteImporter{}
	long := errors.New(strings.Repeat("x", 500))
	for i := 1; i <= 15; i++ {
		imp.skip(&res, gazette.Row{Index: i}, long)
	}
	assert.Equal(t, 15, res.SkippedCount)
	require.Len(t, res.Errors, maxReportedErrors)
	assert.Len(t, res.Errors[0], maxErrorLength)
}

func TestProcessorRoutesByDirectory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	cl := NewCauseListImporter(&fakePages{pages: causeListPages()}, nil, 0, e.entries, e.runs, nil, WithPDFInspector(okInspector))
	gz := NewGazetteImporter(e.db, e.people, e.gz, e.runs, nil, nil)
	p := NewProcessor(nil, cl, gz)

	dir := filepath.Join(t.TempDir(), "CHANGE_OF_NAME")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	xlsx := filepath.Join(dir, "names.xlsx")
	require.NoError(t, os.WriteFile(xlsx, nameWorkbook(t), 0o600))

	out, err := p.ProcessFile(ctx, xlsx)
	require.NoError(t, err)
	require.NotNil(t, out.Gazette)
	assert.Equal(t, 2, out.Gazette.ImportedCount)

	out, err = p.ProcessFile(ctx, writeFile(t, "list.pdf", []byte("x")))
	require.NoError(t, err)
	require.NotNil(t, out.CauseList)
	assert.Equal(t, 3, out.CauseList.Created)

	_, err = p.ProcessFile(ctx, writeFile(t, "stray.xlsx", []byte("x")))
	assert.True(t, errors.Is(err, common.ErrUnsupportedFile))
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func mustHash(t *testing.T, path string) string {
	t.Helper()
	h, err := hashFile(path)
	require.NoError(t, err)
	return h
}
