// Package importer runs the workbook import pipeline: archive, extract,
// upsert and validate, under a RUNNING/COMPLETED/FAILED run record.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/canonical"
	"github.com/loyd0/LoydFam-sub000/internal/config"
	"github.com/loyd0/LoydFam-sub000/internal/metrics"
	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/ratelimit"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
	"github.com/loyd0/LoydFam-sub000/internal/upsert"
	"github.com/loyd0/LoydFam-sub000/internal/validation"
	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

// ActionImportCompleted is the activity-log action of a finished run.
const ActionImportCompleted = "import.completed"

// ErrRunInProgress rejects a run while another one is RUNNING.
var ErrRunInProgress = errors.New("an import run is already in progress")

// Options configures an Importer.
type Options struct {
	SourceTag       string
	BatchSize       int
	TxTimeout       time.Duration
	RunTimeout      time.Duration
	StaleRunAfter   time.Duration
	PipelineVersion string
	MaxLifespan     int
	Commit          ratelimit.Config
	GenderLookup    canonical.GenderLookup
	Logger          *zap.Logger
	Now             func() time.Time
}

// OptionsFromConfig maps loaded configuration onto importer options and
// loads the gender lexicon it names.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) (Options, error) {
	lexicon, err := canonical.LoadLexicon(cfg.Import.GenderLexicon)
	if err != nil {
		return Options{}, err
	}
	commit := ratelimit.Config{
		CommitsPerSec:  cfg.Import.Commit.PerSecond,
		Burst:          cfg.Import.Commit.Burst,
		MaxRetries:     cfg.Import.Commit.MaxRetries,
		InitialBackoff: cfg.Import.Commit.InitialBackoff,
		MaxBackoff:     cfg.Import.Commit.MaxBackoff,
	}
	return Options{
		SourceTag:       cfg.Import.SourceTag,
		BatchSize:       cfg.Import.BatchSize,
		TxTimeout:       cfg.Import.TxTimeout,
		RunTimeout:      cfg.Import.RunTimeout,
		StaleRunAfter:   cfg.Import.StaleRunAfter,
		PipelineVersion: cfg.Import.PipelineVersion,
		MaxLifespan:     cfg.Validation.MaxLifespan,
		Commit:          commit,
		GenderLookup:    lexicon,
		Logger:          log,
	}, nil
}

func (o *Options) applyDefaults() {
	if o.SourceTag == "" {
		o.SourceTag = canonical.DefaultSourceTag
	}
	if o.BatchSize <= 0 {
		o.BatchSize = upsert.DefaultBatchSize
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = upsert.DefaultTxTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 5 * time.Minute
	}
	if o.StaleRunAfter <= 0 {
		o.StaleRunAfter = time.Hour
	}
	if o.PipelineVersion == "" {
		o.PipelineVersion = "v1"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Importer executes import runs against one store. Runs must not overlap.
type Importer struct {
	db      *bun.DB
	opts    Options
	limiter ratelimit.Limiter
	log     *zap.Logger
}

// New creates an importer.
func New(db *bun.DB, opts Options) *Importer {
	opts.applyDefaults()
	return &Importer{
		db:      db,
		opts:    opts,
		limiter: ratelimit.NewLimiter(opts.Commit),
		log:     opts.Logger,
	}
}

func (im *Importer) batchOptions() upsert.Options {
	return upsert.Options{
		BatchSize: im.opts.BatchSize,
		TxTimeout: im.opts.TxTimeout,
		Limiter:   im.limiter,
		Logger:    im.log,
	}
}

// Run imports one workbook payload. On success the run is COMPLETED and the
// summary returned; any fatal error marks the run FAILED and is returned.
func (im *Importer) Run(ctx context.Context, payload []byte, filename string, actorID *string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, im.opts.RunTimeout)
	defer cancel()

	if err := im.recoverStaleRuns(ctx); err != nil {
		return nil, err
	}
	if running, err := repositories.GetRunningRun(ctx, im.db); err != nil {
		return nil, fmt.Errorf("check running import: %w", err)
	} else if running != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, running.RunID)
	}

	hash := workbook.ContentHash(payload)
	sf, reused, err := repositories.FindOrCreateSourceFile(ctx, im.db, hash, filename, int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("register source file: %w", err)
	}

	run := &models.ImportRun{
		RunID:           uuid.NewString(),
		SourceFileID:    sf.ID,
		Status:          models.RunRunning,
		StartedAt:       im.opts.Now().UTC(),
		PipelineVersion: im.opts.PipelineVersion,
		ActorID:         actorID,
	}
	if err := repositories.CreateRun(ctx, im.db, run); err != nil {
		return nil, fmt.Errorf("create import run: %w", err)
	}

	summary := &Summary{
		RunID:            run.RunID,
		ImportRunID:      run.ID,
		SourceFileID:     sf.ID,
		SourceFileReused: reused,
		Status:           models.RunRunning,
	}

	log := im.log.With(zap.String("run_id", run.RunID))
	log.Info("import started",
		zap.String("filename", filename),
		zap.String("content_hash", hash),
		zap.Bool("source_file_reused", reused))

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	start := time.Now()
	err = im.execute(ctx, run, payload, summary, log)
	summary.Duration = time.Since(start)

	if err != nil {
		summary.Status = models.RunFailed
		summary.Error = err.Error()
		im.fail(ctx, run, err, summary, log)
		metrics.RunsTotal.WithLabelValues(string(models.RunFailed)).Inc()
		metrics.RunDuration.WithLabelValues(string(models.RunFailed)).Observe(summary.Duration.Seconds())
		return summary, err
	}

	metrics.RunsTotal.WithLabelValues(string(models.RunCompleted)).Inc()
	metrics.RunDuration.WithLabelValues(string(models.RunCompleted)).Observe(summary.Duration.Seconds())
	log.Info("import completed",
		zap.Int("sheets", summary.Sheets),
		zap.Int("rows", summary.RawRows),
		zap.Int("people", summary.People),
		zap.Int("issues", summary.Issues),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (im *Importer) execute(ctx context.Context, run *models.ImportRun, payload []byte, summary *Summary, log *zap.Logger) error {
	wb, err := workbook.Parse(payload)
	if err != nil {
		return err
	}

	if err := im.archive(ctx, run, wb, summary); err != nil {
		return err
	}
	log.Info("raw rows archived", zap.Int("sheets", summary.Sheets), zap.Int("rows", summary.RawRows))

	extractor := canonical.NewExtractor(canonical.Options{
		SourceTag: im.opts.SourceTag,
		Lookup:    im.opts.GenderLookup,
		Logger:    log,
	})
	res := extractor.Extract(wb)
	summary.SheetsMapped = res.Stats.SheetsMapped
	summary.SheetsSkipped = res.Stats.SheetsSkipped
	summary.RowsSkipped = res.Stats.RowsSkipped
	metrics.RowsSkipped.Add(float64(res.Stats.RowsSkipped))

	out, err := upsert.New(im.db, im.batchOptions()).Upsert(ctx, res)
	if out != nil {
		summary.Upsert = out.Stats
		summary.People = out.Stats.People()
		summary.Events = out.Stats.Events()
		summary.ParentChild = out.Stats.ParentChild
		summary.Partnerships = out.Stats.Partnerships
		summary.Contacts = out.Stats.Contacts
	}
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	for _, p := range res.People {
		if p.IsPlaceholder {
			summary.Placeholders++
		}
	}

	engine := validation.New(validation.Options{
		MaxLifespan: im.opts.MaxLifespan,
		Now:         im.opts.Now,
		Logger:      log,
	})
	issues := engine.Validate(res, out.IDs, run.ID)
	if err := im.storeIssues(ctx, issues); err != nil {
		return fmt.Errorf("store issues: %w", err)
	}
	summary.Issues = len(issues)
	summary.IssuesBySeverity = validation.Count(issues)
	for _, i := range issues {
		metrics.IssuesTotal.WithLabelValues(string(i.Severity), string(i.Code)).Inc()
	}

	summary.Status = models.RunCompleted
	return im.complete(ctx, run, summary)
}

// storeIssues replaces the stored issue set with the latest run's findings.
func (im *Importer) storeIssues(ctx context.Context, issues []*models.ImportIssue) error {
	cleared, err := repositories.ClearIssues(ctx, im.db)
	if err != nil {
		return err
	}
	im.log.Debug("previous issues cleared", zap.Int64("issues", cleared))

	_, err = upsert.NewBatcher(im.db, im.batchOptions()).Run(ctx, "import_issues", len(issues),
		func(ctx context.Context, tx bun.Tx, lo, hi int) (func(), error) {
			return nil, repositories.InsertIssues(ctx, tx, issues[lo:hi])
		})
	return err
}

func (im *Importer) complete(ctx context.Context, run *models.ImportRun, summary *Summary) error {
	return im.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := repositories.CompleteRun(ctx, tx, run, summary.JSONMap()); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
		runID := run.ID
		entry := &models.ActivityLog{
			Action:      ActionImportCompleted,
			ActorID:     run.ActorID,
			ImportRunID: &runID,
			Payload:     run.Summary,
		}
		if err := repositories.InsertActivity(ctx, tx, entry); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		return nil
	})
}

// fail records the failure on a context that survives the run timeout.
func (im *Importer) fail(ctx context.Context, run *models.ImportRun, cause error, summary *Summary, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), im.opts.TxTimeout)
	defer cancel()

	log.Error("import failed", zap.Error(cause))
	if err := repositories.FailRun(ctx, im.db, run, cause, summary.JSONMap()); err != nil {
		log.Error("failed to mark run as failed", zap.Error(err))
	}
}

func (im *Importer) recoverStaleRuns(ctx context.Context) error {
	cutoff := im.opts.Now().Add(-im.opts.StaleRunAfter)
	n, err := repositories.FailStaleRuns(ctx, im.db, cutoff)
	if err != nil {
		return fmt.Errorf("recover stale runs: %w", err)
	}
	if n > 0 {
		im.log.Warn("abandoned import runs marked failed", zap.Int64("runs", n))
	}
	return nil
}
