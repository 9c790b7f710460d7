package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// InsertSheet stores the provenance record of one tab.
func InsertSheet(ctx context.Context, db bun.IDB, sheet *models.ImportSheet) error {
	_, err := db.NewInsert().Model(sheet).Returning("id").Exec(ctx)
	return err
}

// InsertRows appends archived rows. Rows are never updated afterwards.
func InsertRows(ctx context.Context, db bun.IDB, rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// ListSheets returns the archived sheets of a run in workbook order.
func ListSheets(ctx context.Context, db bun.IDB, importRunID int64) ([]*models.ImportSheet, error) {
	var sheets []*models.ImportSheet
	err := db.NewSelect().
		Model(&sheets).
		Where("import_run_id = ?", importRunID).
		OrderExpr("sheet_index ASC").
		Scan(ctx)
	return sheets, err
}

// ListRows returns the archived rows of a sheet in spreadsheet order.
func ListRows(ctx context.Context, db bun.IDB, sheetID int64) ([]*models.ImportRow, error) {
	var rows []*models.ImportRow
	err := db.NewSelect().
		Model(&rows).
		Where("sheet_id = ?", sheetID).
		OrderExpr("row_index ASC").
		Scan(ctx)
	return rows, err
}
