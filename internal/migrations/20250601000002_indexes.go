package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs(status)",
			"CREATE INDEX IF NOT EXISTS idx_import_sheets_run ON import_sheets(import_run_id)",
			"CREATE INDEX IF NOT EXISTS idx_import_rows_sheet_row ON import_rows(sheet_id, row_index)",
			"CREATE INDEX IF NOT EXISTS idx_import_rows_hash ON import_rows(row_hash)",
			"CREATE INDEX IF NOT EXISTS idx_person_events_person_role ON person_events(person_id, role)",
			"CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)",
			"CREATE INDEX IF NOT EXISTS idx_parent_child_child ON parent_child(child_id)",
			"CREATE INDEX IF NOT EXISTS idx_import_issues_severity_code ON import_issues(severity, code)",
			"CREATE INDEX IF NOT EXISTS idx_people_display_name ON people(display_name)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_import_runs_status",
			"DROP INDEX IF EXISTS idx_import_sheets_run",
			"DROP INDEX IF EXISTS idx_import_rows_sheet_row",
			"DROP INDEX IF EXISTS idx_import_rows_hash",
			"DROP INDEX IF EXISTS idx_person_events_person_role",
			"DROP INDEX IF EXISTS idx_events_type",
			"DROP INDEX IF EXISTS idx_parent_child_child",
			"DROP INDEX IF EXISTS idx_import_issues_severity_code",
			"DROP INDEX IF EXISTS idx_people_display_name",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
