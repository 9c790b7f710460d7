// Package metrics provides Prometheus metrics for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks finished import runs by status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of import runs by terminal status",
		},
		[]string{"status"},
	)

	// RunDuration tracks wall-clock time of whole runs
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "famimport",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of import runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	// RowsArchived tracks raw rows written to the archival store
	RowsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "archive",
			Name:      "rows_total",
			Help:      "Total number of raw rows archived",
		},
	)

	// RowsSkipped tracks rows the extractor could not map
	RowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "extract",
			Name:      "rows_skipped_total",
			Help:      "Total number of rows skipped during canonical extraction",
		},
	)

	// BatchesTotal tracks bounded write transactions by entity and result
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "upsert",
			Name:      "batches_total",
			Help:      "Total number of batch transactions by entity and result",
		},
		[]string{"entity", "result"},
	)

	// BatchDuration tracks batch transaction duration
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "famimport",
			Subsystem: "upsert",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch transactions in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"entity"},
	)

	// ItemsSkipped tracks single upsert operations rolled back and skipped
	ItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "upsert",
			Name:      "items_skipped_total",
			Help:      "Total number of items skipped after a constraint failure",
		},
		[]string{"entity"},
	)

	// IssuesTotal tracks validation findings by severity and code
	IssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "famimport",
			Subsystem: "validation",
			Name:      "issues_total",
			Help:      "Total number of validation issues by severity and code",
		},
		[]string{"severity", "code"},
	)

	// RunsInFlight is 1 while a run is executing in this process
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "famimport",
			Subsystem: "run",
			Name:      "in_flight",
			Help:      "Number of import runs currently executing",
		},
	)
)
