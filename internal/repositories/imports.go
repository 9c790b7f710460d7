package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// FindOrCreateSourceFile returns the source file with the given content hash,
// creating it on first sight. The boolean reports whether it already existed.
func FindOrCreateSourceFile(ctx context.Context, db bun.IDB, hash, filename string, size int64) (*models.SourceFile, bool, error) {
	sf := new(models.SourceFile)
	err := db.NewSelect().Model(sf).Where("content_hash = ?", hash).Limit(1).Scan(ctx)
	if err == nil {
		return sf, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	sf = &models.SourceFile{ContentHash: hash, Filename: filename, SizeBytes: size}
	if _, err := db.NewInsert().Model(sf).Returning("id").Exec(ctx); err != nil {
		return nil, false, err
	}
	return sf, false, nil
}

// CreateRun inserts a RUNNING import run.
func CreateRun(ctx context.Context, db bun.IDB, run *models.ImportRun) error {
	if run.Status == "" {
		run.Status = models.RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := db.NewInsert().Model(run).Returning("id").Exec(ctx)
	return err
}

// CompleteRun marks a run COMPLETED with its summary.
func CompleteRun(ctx context.Context, db bun.IDB, run *models.ImportRun, summary models.JSONMap) error {
	now := time.Now().UTC()
	run.Status = models.RunCompleted
	run.FinishedAt = &now
	run.Summary = summary

	_, err := db.NewUpdate().
		Model(run).
		Column("status", "finished_at", "summary").
		WherePK().
		Exec(ctx)
	return err
}

// FailRun marks a run FAILED, keeping the error message and partial summary.
func FailRun(ctx context.Context, db bun.IDB, run *models.ImportRun, cause error, summary models.JSONMap) error {
	now := time.Now().UTC()
	msg := cause.Error()
	if summary == nil {
		summary = models.JSONMap{}
	}
	summary["error"] = msg

	run.Status = models.RunFailed
	run.FinishedAt = &now
	run.Error = &msg
	run.Summary = summary

	_, err := db.NewUpdate().
		Model(run).
		Column("status", "finished_at", "error", "summary").
		WherePK().
		Exec(ctx)
	return err
}

// GetRunningRun returns the run currently RUNNING, or nil when there is none.
func GetRunningRun(ctx context.Context, db bun.IDB) (*models.ImportRun, error) {
	run := new(models.ImportRun)
	err := db.NewSelect().
		Model(run).
		Where("status = ?", models.RunRunning).
		OrderExpr("started_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FailStaleRuns marks RUNNING runs started before the cutoff as FAILED and
// returns how many were abandoned.
func FailStaleRuns(ctx context.Context, db bun.IDB, before time.Time) (int64, error) {
	msg := "abandoned: run did not finish"
	res, err := db.NewUpdate().
		Model((*models.ImportRun)(nil)).
		Set("status = ?", models.RunFailed).
		Set("finished_at = ?", time.Now().UTC()).
		Set("error = ?", msg).
		Where("status = ?", models.RunRunning).
		Where("started_at < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetRunByRunID fetches a run with its source file.
func GetRunByRunID(ctx context.Context, db bun.IDB, runID string) (*models.ImportRun, error) {
	run := new(models.ImportRun)
	err := db.NewSelect().
		Model(run).
		Relation("SourceFile").
		Where("ir.run_id = ?", runID).
		Scan(ctx)
	return run, err
}

// ListRuns returns the most recent runs first.
func ListRuns(ctx context.Context, db bun.IDB, limit int) ([]*models.ImportRun, error) {
	var runs []*models.ImportRun
	q := db.NewSelect().
		Model(&runs).
		Relation("SourceFile").
		OrderExpr("ir.started_at DESC").
		OrderExpr("ir.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(ctx)
	return runs, err
}

// InsertActivity appends an audit entry.
func InsertActivity(ctx context.Context, db bun.IDB, entry *models.ActivityLog) error {
	_, err := db.NewInsert().Model(entry).Exec(ctx)
	return err
}

// ListActivity returns audit entries for a run, oldest first.
func ListActivity(ctx context.Context, db bun.IDB, importRunID int64) ([]*models.ActivityLog, error) {
	var entries []*models.ActivityLog
	err := db.NewSelect().
		Model(&entries).
		Where("import_run_id = ?", importRunID).
		OrderExpr("id ASC").
		Scan(ctx)
	return entries, err
}
