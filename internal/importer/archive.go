package importer

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/metrics"
	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
	"github.com/loyd0/LoydFam-sub000/internal/upsert"
	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

// archive stores every sheet and row verbatim against the run before any
// interpretation happens.
func (im *Importer) archive(ctx context.Context, run *models.ImportRun, wb *workbook.Workbook, summary *Summary) error {
	batcher := upsert.NewBatcher(im.db, im.batchOptions())

	for _, sheet := range wb.Sheets {
		record := &models.ImportSheet{
			ImportRunID: run.ID,
			Name:        sheet.Name,
			SheetIndex:  sheet.Index,
			RowCount:    len(sheet.Rows),
			Headers:     models.StringArray(sheet.Headers),
		}
		if err := repositories.InsertSheet(ctx, im.db, record); err != nil {
			return fmt.Errorf("archive sheet %q: %w", sheet.Name, err)
		}

		rows := sheet.Rows
		blank := 0
		n, err := batcher.Run(ctx, "import_rows", len(rows), func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
			batch := make([]*models.ImportRow, 0, hi-lo)
			chunkBlank := 0
			for _, row := range rows[lo:hi] {
				payload, err := row.MarshalJSON()
				if err != nil {
					return nil, fmt.Errorf("encode row %d: %w", row.Index, err)
				}
				hash, err := workbook.HashPayload(payload)
				if err != nil {
					return nil, fmt.Errorf("hash row %d: %w", row.Index, err)
				}
				isBlank := row.IsBlank()
				if isBlank {
					chunkBlank++
				}
				batch = append(batch, &models.ImportRow{
					ImportRunID: run.ID,
					SheetID:     record.ID,
					RowIndex:    row.Index,
					Payload:     models.RawJSON(payload),
					RowHash:     hash,
					IsBlank:     isBlank,
				})
			}
			if err := repositories.InsertRows(ctx, tx, batch); err != nil {
				return nil, err
			}
			return func() { blank += chunkBlank }, nil
		})
		summary.ArchiveBatches += n
		if err != nil {
			return fmt.Errorf("archive sheet %q: %w", sheet.Name, err)
		}

		summary.Sheets++
		summary.RawRows += len(rows)
		summary.BlankRows += blank
		metrics.RowsArchived.Add(float64(len(rows)))

		im.log.Debug("sheet archived",
			zap.String("run_id", run.RunID),
			zap.String("sheet", sheet.Name),
			zap.Int("rows", len(rows)),
			zap.Int("batches", n))
	}
	return nil
}
