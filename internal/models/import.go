package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SourceFile is one distinct uploaded workbook, keyed by content hash.
type SourceFile struct {
	bun.BaseModel `bun:"table:source_files,alias:sf"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ContentHash string    `bun:"content_hash,unique,notnull" json:"content_hash"`
	Filename    string    `bun:"filename,notnull" json:"filename"`
	SizeBytes   int64     `bun:"size_bytes,notnull" json:"size_bytes"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ImportRun is one execution of the pipeline against a source file.
type ImportRun struct {
	bun.BaseModel `bun:"table:import_runs,alias:ir"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	RunID           string     `bun:"run_id,unique,notnull" json:"run_id"`
	SourceFileID    int64      `bun:"source_file_id,notnull" json:"source_file_id"`
	Status          RunStatus  `bun:"status,notnull" json:"status"`
	StartedAt       time.Time  `bun:"started_at,notnull" json:"started_at"`
	FinishedAt      *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
	Summary         JSONMap    `bun:"summary,type:json" json:"summary,omitempty"`
	PipelineVersion string     `bun:"pipeline_version,notnull" json:"pipeline_version"`
	ActorID         *string    `bun:"actor_id" json:"actor_id,omitempty"`
	Error           *string    `bun:"error" json:"error,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	SourceFile *SourceFile `bun:"rel:belongs-to,join:source_file_id=id" json:"source_file,omitempty"`
}

// IsTerminal reports whether the run has completed or failed.
func (r *ImportRun) IsTerminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// ImportSheet is the provenance record of one spreadsheet tab in a run.
type ImportSheet struct {
	bun.BaseModel `bun:"table:import_sheets,alias:ish"`

	ID          int64       `bun:"id,pk,autoincrement" json:"id"`
	ImportRunID int64       `bun:"import_run_id,notnull" json:"import_run_id"`
	Name        string      `bun:"name,notnull" json:"name"`
	SheetIndex  int         `bun:"sheet_index,notnull" json:"sheet_index"`
	RowCount    int         `bun:"row_count,notnull" json:"row_count"`
	Headers     StringArray `bun:"headers,type:json,notnull" json:"headers"`
	CreatedAt   time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ImportRow is an unmodified copy of one data row. Rows are never updated.
type ImportRow struct {
	bun.BaseModel `bun:"table:import_rows,alias:irw"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ImportRunID int64     `bun:"import_run_id,notnull" json:"import_run_id"`
	SheetID     int64     `bun:"sheet_id,notnull" json:"sheet_id"`
	RowIndex    int       `bun:"row_index,notnull" json:"row_index"`
	Payload     RawJSON   `bun:"payload,type:json,notnull" json:"payload"`
	RowHash     string    `bun:"row_hash,notnull" json:"row_hash"`
	IsBlank     bool      `bun:"is_blank,notnull" json:"is_blank"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ImportIssue is a diagnostic finding from the validation pass.
type ImportIssue struct {
	bun.BaseModel `bun:"table:import_issues,alias:ii"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ImportRunID int64     `bun:"import_run_id,notnull" json:"import_run_id"`
	Severity    Severity  `bun:"severity,notnull" json:"severity"`
	Code        IssueCode `bun:"code,notnull" json:"code"`
	Message     string    `bun:"message,notnull" json:"message"`
	EntityType  *string   `bun:"entity_type" json:"entity_type,omitempty"`
	EntityID    *int64    `bun:"entity_id" json:"entity_id,omitempty"`
	Metadata    JSONMap   `bun:"metadata,type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ActivityLog is the audit trail entry appended once per completed run.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:al"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Action      string    `bun:"action,notnull" json:"action"`
	ActorID     *string   `bun:"actor_id" json:"actor_id,omitempty"`
	ImportRunID *int64    `bun:"import_run_id" json:"import_run_id,omitempty"`
	Payload     JSONMap   `bun:"payload,type:json" json:"payload,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
