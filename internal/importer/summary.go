package importer

import (
	"encoding/json"
	"time"

	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/upsert"
)

// Summary is returned to the caller and stored on the run.
type Summary struct {
	RunID            string                  `json:"run_id"`
	ImportRunID      int64                   `json:"import_run_id"`
	SourceFileID     int64                   `json:"source_file_id"`
	SourceFileReused bool                    `json:"source_file_reused"`
	Status           models.RunStatus        `json:"status"`
	Sheets           int                     `json:"sheets"`
	SheetsMapped     []string                `json:"sheets_mapped"`
	SheetsSkipped    []string                `json:"sheets_skipped"`
	RawRows          int                     `json:"raw_rows"`
	BlankRows        int                     `json:"blank_rows"`
	ArchiveBatches   int                     `json:"archive_batches"`
	RowsSkipped      int                     `json:"rows_skipped"`
	People           int                     `json:"people"`
	Placeholders     int                     `json:"placeholders"`
	Events           int                     `json:"events"`
	ParentChild      int                     `json:"parent_child"`
	Partnerships     int                     `json:"partnerships"`
	Contacts         int                     `json:"contacts"`
	Upsert           upsert.Stats            `json:"upsert"`
	Issues           int                     `json:"issues"`
	IssuesBySeverity map[models.Severity]int `json:"issues_by_severity"`
	Duration         time.Duration           `json:"duration_ns"`
	Error            string                  `json:"error,omitempty"`
}

// JSONMap renders the summary for storage on the run and the activity log.
func (s *Summary) JSONMap() models.JSONMap {
	b, err := json.Marshal(s)
	if err != nil {
		return models.JSONMap{"error": err.Error()}
	}
	var m models.JSONMap
	if err := json.Unmarshal(b, &m); err != nil {
		return models.JSONMap{"error": err.Error()}
	}
	return m
}
