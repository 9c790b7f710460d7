package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/config"
	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
	"github.com/loyd0/LoydFam-sub000/internal/testutil"
	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

var rosterHeader = []interface{}{"ID", "Name", "First Name", "Gender", "Birth Year", "Father ID"}

func newImporter(db *bun.DB) *Importer {
	return New(db, Options{
		SourceTag: "X",
		BatchSize: 2,
		Now:       func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func twoSheetWorkbook(t *testing.T) []byte {
	return testutil.BuildWorkbook(t,
		testutil.SheetData{
			Name: "Family Tree",
			Rows: [][]interface{}{
				rosterHeader,
				{1, "Arthur Loyd", "Arthur", "M", 1900},
			},
		},
		testutil.SheetData{
			Name: "People",
			Rows: [][]interface{}{
				rosterHeader,
				{2, "Mary Loyd", "Mary", "F", 1930, 1},
			},
		},
		testutil.SheetData{
			Name: "Notes",
			Rows: [][]interface{}{
				{"Topic", "Text"},
				{"origin", "Welsh border"},
				{},
				{"later", "Bristol"},
			},
		},
	)
}

func TestEndToEndTwoSheets(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	summary, err := newImporter(db).Run(ctx, twoSheetWorkbook(t), "family.xlsx", nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, summary.Status)
	assert.Equal(t, 3, summary.Sheets)
	assert.Equal(t, 5, summary.RawRows)
	assert.Equal(t, 1, summary.BlankRows)
	assert.Equal(t, 2, summary.People)
	assert.Equal(t, 1, summary.ParentChild)
	assert.Equal(t, []string{"Notes"}, summary.SheetsSkipped)
	assert.Zero(t, summary.IssuesBySeverity[models.SeverityError])

	p1, err := repositories.GetPersonByKey(ctx, db, "X:1")
	require.NoError(t, err)
	p2, err := repositories.GetPersonByKey(ctx, db, "X:2")
	require.NoError(t, err)

	edges, err := repositories.ListParentChild(ctx, db)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, p1.ID, edges[0].ParentID)
	assert.Equal(t, p2.ID, edges[0].ChildID)

	missing, err := repositories.ListIssues(ctx, db, repositories.IssueFilter{Code: models.IssueMissingDOB})
	require.NoError(t, err)
	assert.Empty(t, missing)
	errs, err := repositories.ListIssues(ctx, db, repositories.IssueFilter{Severity: models.SeverityError})
	require.NoError(t, err)
	assert.Empty(t, errs)

	run, err := repositories.GetRunByRunID(ctx, db, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.EqualValues(t, 2, run.Summary["people"])

	activity, err := repositories.ListActivity(ctx, db, run.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, ActionImportCompleted, activity[0].Action)
}

func TestArchiveKeepsEveryRow(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	summary, err := newImporter(db).Run(ctx, twoSheetWorkbook(t), "family.xlsx", nil)
	require.NoError(t, err)

	sheets, err := repositories.ListSheets(ctx, db, summary.ImportRunID)
	require.NoError(t, err)
	require.Len(t, sheets, 3)
	notes := sheets[2]
	assert.Equal(t, "Notes", notes.Name)
	assert.Equal(t, 3, notes.RowCount)
	assert.Equal(t, models.StringArray{"Topic", "Text"}, notes.Headers)

	rows, err := repositories.ListRows(ctx, db, notes.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.JSONEq(t, `{"Topic":"origin","Text":"Welsh border"}`, string(rows[0].Payload))
	assert.True(t, rows[1].IsBlank)
	assert.Equal(t, 3, rows[1].RowIndex)

	hash, err := workbook.HashPayload([]byte(rows[0].Payload))
	require.NoError(t, err)
	assert.Equal(t, hash, rows[0].RowHash)
}

func TestSpousePlaceholderIsStoredAsPlaceholder(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	payload := testutil.BuildWorkbook(t,
		testutil.SheetData{
			Name: "Family Tree",
			Rows: [][]interface{}{
				rosterHeader,
				{1, "Arthur Loyd", "Arthur", "M", 1900},
			},
		},
		testutil.SheetData{
			Name: "Biographies",
			Rows: [][]interface{}{
				{"ID", "Married To"},
				{1, "Jane Smith"},
			},
		},
	)
	_, err := newImporter(db).Run(ctx, payload, "family.xlsx", nil)
	require.NoError(t, err)

	spouse, err := repositories.GetPersonByKey(ctx, db, "X:1:SPOUSE")
	require.NoError(t, err)
	assert.True(t, spouse.IsPlaceholder)
	assert.Equal(t, models.GenderFemale, spouse.Gender)

	people, err := repositories.ListPeople(ctx, db, repositories.PeopleFilter{})
	require.NoError(t, err)
	keys := make([]string, 0, len(people))
	for _, p := range people {
		keys = append(keys, p.PrimaryExternalKey)
	}
	assert.Equal(t, []string{"X:1"}, keys)
}

func TestRerunIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	payload := twoSheetWorkbook(t)
	im := newImporter(db)

	first, err := im.Run(ctx, payload, "family.xlsx", nil)
	require.NoError(t, err)
	assert.False(t, first.SourceFileReused)

	counts := func() []int {
		return []int{
			testutil.Count(t, db, (*models.Person)(nil)),
			testutil.Count(t, db, (*models.Event)(nil)),
			testutil.Count(t, db, (*models.ParentChild)(nil)),
			testutil.Count(t, db, (*models.Partnership)(nil)),
			testutil.Count(t, db, (*models.Contact)(nil)),
			testutil.Count(t, db, (*models.ImportIssue)(nil)),
		}
	}
	before := counts()

	actor := "editor@example.com"
	second, err := im.Run(ctx, payload, "family-copy.xlsx", &actor)
	require.NoError(t, err)
	assert.True(t, second.SourceFileReused)
	assert.Equal(t, first.SourceFileID, second.SourceFileID)
	assert.Equal(t, before, counts())

	assert.Equal(t, 1, testutil.Count(t, db, (*models.SourceFile)(nil)))
	assert.Equal(t, 2, testutil.Count(t, db, (*models.ImportRun)(nil)))
	assert.Equal(t, 2, testutil.Count(t, db, (*models.ActivityLog)(nil)))

	p1, err := repositories.GetPersonByKey(ctx, db, "X:1")
	require.NoError(t, err)
	assert.Equal(t, first.Upsert.People(), second.Upsert.PeopleUpdated)
	assert.Equal(t, "Arthur Loyd", p1.DisplayName)

	issues, err := repositories.ListIssues(ctx, db, repositories.IssueFilter{})
	require.NoError(t, err)
	for _, i := range issues {
		assert.Equal(t, second.ImportRunID, i.ImportRunID, "issues reflect only the latest run")
	}
}

func TestUnreadableWorkbookFailsRun(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	summary, err := newImporter(db).Run(ctx, []byte("definitely not a spreadsheet"), "broken.xlsx", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, workbook.ErrUnreadableWorkbook)
	require.NotNil(t, summary)
	assert.Equal(t, models.RunFailed, summary.Status)

	run, err := repositories.GetRunByRunID(ctx, db, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "unreadable workbook")
	assert.Contains(t, run.Summary["error"], "unreadable workbook")
	assert.Zero(t, testutil.Count(t, db, (*models.ImportSheet)(nil)))
	assert.Zero(t, testutil.Count(t, db, (*models.ActivityLog)(nil)))
}

func TestConcurrentRunIsRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	im := newImporter(db)

	sf, _, err := repositories.FindOrCreateSourceFile(ctx, db, "abc", "other.xlsx", 1)
	require.NoError(t, err)
	active := &models.ImportRun{
		RunID:           "active",
		SourceFileID:    sf.ID,
		StartedAt:       time.Date(2024, time.May, 31, 23, 30, 0, 0, time.UTC),
		PipelineVersion: "v1",
	}
	require.NoError(t, repositories.CreateRun(ctx, db, active))

	_, err = im.Run(ctx, twoSheetWorkbook(t), "family.xlsx", nil)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, 1, testutil.Count(t, db, (*models.ImportRun)(nil)))
}

func TestStaleRunIsRecovered(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	im := newImporter(db)

	sf, _, err := repositories.FindOrCreateSourceFile(ctx, db, "abc", "other.xlsx", 1)
	require.NoError(t, err)
	stale := &models.ImportRun{
		RunID:           "stale",
		SourceFileID:    sf.ID,
		StartedAt:       time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC),
		PipelineVersion: "v1",
	}
	require.NoError(t, repositories.CreateRun(ctx, db, stale))

	_, err = im.Run(ctx, twoSheetWorkbook(t), "family.xlsx", nil)
	require.NoError(t, err)

	recovered, err := repositories.GetRunByRunID(ctx, db, "stale")
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, recovered.Status)
	require.NotNil(t, recovered.Error)

	runs, err := repositories.ListRuns(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunCompleted, runs[0].Status)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Import.SourceTag = "LOYD"
	cfg.Import.Commit.MaxRetries = 2

	opts, err := OptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "LOYD", opts.SourceTag)
	assert.Equal(t, 100, opts.BatchSize)
	assert.Equal(t, 120, opts.MaxLifespan)
	assert.Equal(t, 2, opts.Commit.MaxRetries)
	require.NotNil(t, opts.GenderLookup)
	assert.Equal(t, models.GenderFemale, opts.GenderLookup.LookupGender("Margaret"))

	cfg.Import.GenderLexicon = "/does/not/exist.yaml"
	_, err = OptionsFromConfig(cfg, nil)
	assert.Error(t, err)
}
