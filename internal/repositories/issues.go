package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// ClearIssues deletes every stored issue so the next set reflects only the latest run.
func ClearIssues(ctx context.Context, db bun.IDB) (int64, error) {
	res, err := db.NewDelete().
		Model((*models.ImportIssue)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertIssues stores validation findings.
func InsertIssues(ctx context.Context, db bun.IDB, issues []*models.ImportIssue) error {
	if len(issues) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&issues).Exec(ctx)
	return err
}

// IssueFilter narrows ListIssues. Zero values match everything.
type IssueFilter struct {
	ImportRunID int64
	Severity    models.Severity
	Code        models.IssueCode
	Limit       int
}

// ListIssues returns issues, most severe first.
func ListIssues(ctx context.Context, db bun.IDB, f IssueFilter) ([]*models.ImportIssue, error) {
	var issues []*models.ImportIssue
	q := db.NewSelect().Model(&issues)
	if f.ImportRunID != 0 {
		q = q.Where("import_run_id = ?", f.ImportRunID)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Code != "" {
		q = q.Where("code = ?", f.Code)
	}
	q = q.OrderExpr("CASE severity WHEN 'ERROR' THEN 0 WHEN 'WARNING' THEN 1 ELSE 2 END").
		OrderExpr("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Scan(ctx)
	return issues, err
}

// CountIssuesBySeverity groups the stored issues by severity.
func CountIssuesBySeverity(ctx context.Context, db bun.IDB) (map[models.Severity]int, error) {
	var rows []struct {
		Severity models.Severity `bun:"severity"`
		Count    int             `bun:"count"`
	}
	err := db.NewSelect().
		Model((*models.ImportIssue)(nil)).
		Column("severity").
		ColumnExpr("COUNT(*) AS count").
		Group("severity").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Severity]int, len(rows))
	for _, r := range rows {
		out[r.Severity] = r.Count
	}
	return out, nil
}
