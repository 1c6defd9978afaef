package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, Migrate(ctx, db))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strp(s string) *string { return &s }

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.exec(ctx, "CREATE TABLE cause_list_entries (id INTEGER PRIMARY KEY AUTOINCREMENT, suit_no TEXT NOT NULL, hearing_date TEXT NOT NULL, case_title TEXT NOT NULL, first_party_name TEXT, second_party_name TEXT, remarks TEXT, case_type TEXT, hearing_time TEXT, created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)", nil)
	require.NoError(t, err)
	_, err = db.exec(ctx, "INSERT INTO cause_list_entries (suit_no, hearing_date, case_title) VALUES ('J1/1/2020', '2020-01-02', 'A VRS B')", nil)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, db))

	repo := NewCauseListRepository(db, nil)
	got, err := repo.FindByKey(ctx, "J1/1/2020", day(2020, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, string(constants.EntryStatusPending), got.Status)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.Venue)
}

func TestCauseListUpsertBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewCauseListRepository(newTestDB(t), nil)

	entries := []entity.CauseListEntry{
		{
			SuitNo:          "J8/122/2021",
			HearingDate:     day(2021, 3, 4),
			HearingTime:     strp("09:00:00"),
			CaseTitle:       "KWAME MENSAH VRS ABENA OWUSU",
			FirstPartyName:  strp("KWAME MENSAH"),
			SecondPartyName: strp("ABENA OWUSU"),
			CaseType:        strp("MOTIONS"),
			Remarks:         strp("F/H"),
			SourceDocument:  "list.pdf",
			PageNumber:      1,
		},
		{
			SuitNo:         "J1/7/2020",
			HearingDate:    day(2021, 3, 4),
			CaseTitle:      "THE REPUBLIC VRS YAW BOATENG",
			SourceDocument: "list.pdf",
			PageNumber:     2,
		},
	}

	res, err := repo.UpsertBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Created: 2}, res)

	got, err := repo.FindByKey(ctx, "J8/122/2021", day(2021, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, "KWAME MENSAH VRS ABENA OWUSU", got.CaseTitle)
	assert.Equal(t, "09:00:00", *got.HearingTime)
	assert.Equal(t, "F/H", *got.Remarks)
	assert.Equal(t, string(constants.EntryStatusPending), got.Status)
	assert.Equal(t, constants.ProvenanceCauseListImport, got.CreatedBy)
	assert.True(t, got.IsActive)
	assert.Equal(t, day(2021, 3, 4), got.HearingDate)
	assert.Nil(t, got.UpdatedAt)

	// second run over the same rows only updates
	entries[0].Remarks = strp("ADJ")
	entries[0].CaseType = nil
	res, err = repo.UpsertBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Updated: 2}, res)

	got, err = repo.FindByKey(ctx, "J8/122/2021", day(2021, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, "ADJ", *got.Remarks)
	assert.Equal(t, "MOTIONS", *got.CaseType, "nil must not clear a stored value")
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, constants.ProvenanceCauseListImport, *got.UpdatedBy)
	assert.NotNil(t, got.UpdatedAt)

	all, err := repo.ListByHearingDate(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCauseListUpsertKeysOnSuitAndDate(t *testing.T) {
	ctx := context.Background()
	repo := NewCauseListRepository(newTestDB(t), nil)

	res, err := repo.UpsertBatch(ctx, []entity.CauseListEntry{
		{SuitNo: "J8/1/2021", HearingDate: day(2021, 3, 4), CaseTitle: "A VRS B"},
		{SuitNo: "J8/1/2021", HearingDate: day(2021, 4, 4), CaseTitle: "A VRS B"},
		{SuitNo: "J8/1/2021", HearingDate: day(2021, 4, 4), CaseTitle: "A VRS B"},
	})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Created: 2, Updated: 1}, res)

	march, err := repo.ListByHearingDate(ctx, day(2021, 3, 1), day(2021, 3, 31))
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, day(2021, 3, 4), march[0].HearingDate)
}

func TestCauseListUpsertRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewCauseListRepository(newTestDB(t), nil)

	_, err := repo.UpsertBatch(ctx, []entity.CauseListEntry{
		{SuitNo: "J8/1/2021", HearingDate: day(2021, 3, 4), CaseTitle: "A VRS B"},
		{SuitNo: "", HearingDate: day(2021, 3, 4), CaseTitle: "C VRS D"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = repo.FindByKey(ctx, "J8/1/2021", day(2021, 3, 4))
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestPeopleFindByNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewPeopleRepository(newTestDB(t), nil)

	p := &entity.Person{FullName: "Kwame Asante Boateng", PreviousNames: []string{"Kwame Asante"}}
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID)

	got, err := repo.FindByName(ctx, "  KWAME asante BOATENG ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, []string{"Kwame Asante"}, got.PreviousNames)
	assert.False(t, got.IsMarriageOfficer)

	dob := day(1990, 5, 17)
	got.PreviousNames = append(got.PreviousNames, "KAB")
	got.DateOfBirth = &dob
	got.IsMarriageOfficer = true
	got.MarriageOfficerChurch = strp("Methodist Church Ghana")
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.FindByName(ctx, "kwame asante boateng")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kwame Asante", "KAB"}, again.PreviousNames)
	require.NotNil(t, again.DateOfBirth)
	assert.Equal(t, dob, *again.DateOfBirth)
	assert.True(t, again.IsMarriageOfficer)
	assert.Equal(t, "Methodist Church Ghana", *again.MarriageOfficerChurch)

	_, err = repo.FindByName(ctx, "Nobody")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestPeopleUpdateUnknown(t *testing.T) {
	repo := NewPeopleRepository(newTestDB(t), nil)
	err := repo.Update(context.Background(), &entity.Person{ID: 42, FullName: "X"})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGazetteGetOrCreate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	people := NewPeopleRepository(db, nil)
	gazettes := NewGazetteRepository(db, nil)

	p := &entity.Person{FullName: "Kwame Asante Boateng"}
	require.NoError(t, people.Create(ctx, p))

	gd := day(2023, 6, 9)
	g := &entity.Gazette{
		GazetteType:      string(constants.ChangeOfName),
		ItemNumber:       "1234",
		DocumentFilename: "names.xlsx",
		GazetteDate:      &gd,
		PersonID:         &p.ID,
		FullName:         "Kwame Asante Boateng",
		OldName:          strp("Kwame Asante"),
		NewName:          strp("Kwame Asante Boateng"),
		AliasNames:       []string{"KAB", "Kwame Asante"},
	}
	created, err := gazettes.GetOrCreate(ctx, g)
	require.NoError(t, err)
	assert.True(t, created)
	firstID := g.ID

	dup := *g
	dup.ID = 0
	created, err = gazettes.GetOrCreate(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, dup.ID)

	list, err := gazettes.ListByPerson(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"KAB", "Kwame Asante"}, list[0].AliasNames)
	assert.Equal(t, "Kwame Asante", *list[0].OldName)
	require.NotNil(t, list[0].GazetteDate)
	assert.Equal(t, gd, *list[0].GazetteDate)
}

func TestWithTxRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	people := NewPeopleRepository(db, nil)

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, people.Create(ctx, &entity.Person{FullName: "Esi Owusu"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = people.FindByName(ctx, "Esi Owusu")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestImportRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewImportRunRepository(newTestDB(t), nil)

	run := &entity.ImportRun{Kind: "causelist", SourcePath: "/in/list.pdf", SourceHash: "abc", Format: constants.PDF}
	require.NoError(t, repo.Start(ctx, run))

	_, err := repo.FindSucceededByHash(ctx, "causelist", "abc")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, repo.Finish(ctx, run.ID, RunCounts{Pages: 3, Parsed: 10, Created: 8, Updated: 1, Skipped: 1}))

	got, err := repo.FindSucceededByHash(ctx, "causelist", "abc")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, string(constants.RunStatusSucceeded), got.Status)
	assert.Equal(t, 8, got.Created)
	assert.NotNil(t, got.FinishedAt)

	failed := &entity.ImportRun{Kind: "gazette", SourcePath: "/in/x.pdf", SourceHash: "def", Format: constants.PDF}
	require.NoError(t, repo.Start(ctx, failed))
	require.NoError(t, repo.Fail(ctx, failed.ID, errors.New("unreadable")))
	got, err = repo.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.RunStatusFailed), got.Status)
	assert.Equal(t, "unreadable", *got.ErrorMessage)
}
