package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// Migrations holds every registered schema migration. Files are named
// <timestamp>_<comment>.go because bun derives the migration name from the file.
var Migrations = migrate.NewMigrations()

type tableSpec struct {
	model       interface{}
	foreignKeys []string
}

// Parents before children so foreign keys resolve.
var tables = []tableSpec{
	{model: (*models.SourceFile)(nil)},
	{model: (*models.ImportRun)(nil), foreignKeys: []string{
		`("source_file_id") REFERENCES "source_files" ("id")`,
	}},
	{model: (*models.ImportSheet)(nil), foreignKeys: []string{
		`("import_run_id") REFERENCES "import_runs" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.ImportRow)(nil), foreignKeys: []string{
		`("sheet_id") REFERENCES "import_sheets" ("id") ON DELETE CASCADE`,
		`("import_run_id") REFERENCES "import_runs" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.Person)(nil)},
	{model: (*models.Event)(nil)},
	{model: (*models.PersonEvent)(nil), foreignKeys: []string{
		`("person_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
		`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.ParentChild)(nil), foreignKeys: []string{
		`("parent_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
		`("child_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.Partnership)(nil), foreignKeys: []string{
		`("person_a_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
		`("person_b_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
		`("marriage_event_id") REFERENCES "events" ("id") ON DELETE SET NULL`,
	}},
	{model: (*models.Contact)(nil), foreignKeys: []string{
		`("person_id") REFERENCES "people" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.ImportIssue)(nil), foreignKeys: []string{
		`("import_run_id") REFERENCES "import_runs" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.ActivityLog)(nil)},
}

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		log.Info("No new migrations to run")
		return nil
	}

	log.Info("Migrated", zap.String("group", group.String()))
	return nil
}
