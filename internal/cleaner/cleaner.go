// Package cleaner turns the raw rows of a completed scrape task into versioned clean rows.
package cleaner

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
)

// ErrNoCompletedTask is returned when no completed task with the requested name exists.
var ErrNoCompletedTask = errors.New("no completed task found")

// TaskNamePrefix prefixes the ledger task that tracks a clean run.
const TaskNamePrefix = "clean_"

// RawStore reads raw rows and records their transformation outcome.
type RawStore interface {
	GetByTask(ctx context.Context, taskID int64) ([]*domain.RawData, error)
	MarkProcessed(ctx context.Context, q database.Querier, id int64, params database.MarkProcessedParams) error
}

// CleanStore appends clean rows.
type CleanStore interface {
	Create(ctx context.Context, q database.Querier, clean *domain.CleanData) error
}

// RunOptions selects the source task and processor version of a clean run.
type RunOptions struct {
	TaskName         string
	ProcessorVersion string
	// Reprocess cleans rows already processed with the same version again.
	Reprocess bool
}

// Summary counts the outcome of a clean run.
type Summary struct {
	SourceTaskID int64 `json:"source_task_id"`
	Total        int   `json:"total"`
	Cleaned      int   `json:"cleaned"`
	Failed       int   `json:"failed"`
	Skipped      int   `json:"skipped"`
}

// Cleaner runs the raw→clean transformation.
type Cleaner struct {
	db      *sqlx.DB
	ledger  *ledger.Ledger
	raw     RawStore
	clean   CleanStore
	metrics *metrics.Metrics
}

// New creates a Cleaner. m may be nil.
func New(db *sqlx.DB, l *ledger.Ledger, raw RawStore, clean CleanStore, m *metrics.Metrics) *Cleaner {
	return &Cleaner{db: db, ledger: l, raw: raw, clean: clean, metrics: m}
}

// Run cleans every raw row of the newest completed task named opts.TaskName.
// Each row is persisted in its own transaction; a failing row is marked with
// its error and the run continues. The run is tracked as ledger task
// "clean_<TaskName>".
func (c *Cleaner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	var summary Summary
	if opts.ProcessorVersion == "" {
		return summary, errors.New("processor version is required")
	}

	tracker := c.ledger.NewTaskLogger(TaskNamePrefix + opts.TaskName)
	err := tracker.Run(ctx, func(ctx context.Context, task *ledger.TaskLogger) error {
		source, err := c.ledger.LatestCompleted(ctx, opts.TaskName)
		if errors.Is(err, database.ErrTaskNotFound) {
			return fmt.Errorf("%w: %q", ErrNoCompletedTask, opts.TaskName)
		}
		if err != nil {
			return err
		}
		summary.SourceTaskID = source.ID

		rows, err := c.raw.GetByTask(ctx, source.ID)
		if err != nil {
			return err
		}
		summary.Total = len(rows)

		if err = task.Logf(ctx, "Cleaning %d raw rows of task %d with processor %s",
			len(rows), source.ID, opts.ProcessorVersion); err != nil {
			return err
		}

		for i, raw := range rows {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.cleanRow(ctx, task, raw, opts, &summary)

			progress := float64(i+1) / float64(len(rows))
			items := i + 1
			if err = task.UpdateProgress(ctx, domain.ProgressUpdate{Progress: &progress, ItemsProcessed: &items}); err != nil {
				return err
			}
		}

		return task.Logf(ctx, "Boardgame cleaning complete: %d cleaned, %d failed, %d skipped",
			summary.Cleaned, summary.Failed, summary.Skipped)
	})

	return summary, err
}

func (c *Cleaner) cleanRow(ctx context.Context, task *ledger.TaskLogger, raw *domain.RawData, opts RunOptions, summary *Summary) {
	log := task.Logger().With(logger.Int64("raw_id", raw.ID))

	if !opts.Reprocess && alreadyProcessed(raw, opts.ProcessorVersion) {
		summary.Skipped++
		c.metrics.CleanRow(metrics.OutcomeSkipped)
		return
	}

	payload := Transform(raw.Payload)
	if err := c.persist(ctx, raw, payload, opts.ProcessorVersion); err != nil {
		summary.Failed++
		c.metrics.CleanRow(metrics.OutcomeFailed)
		c.markFailed(ctx, log, raw.ID, err)
		if logErr := task.Logf(ctx, "Failed to clean raw row %d: %v", raw.ID, err); logErr != nil {
			log.Warn("Failed to append task log", logger.Error(logErr))
		}
		return
	}

	summary.Cleaned++
	c.metrics.CleanRow(metrics.OutcomeCleaned)
	if logErr := task.Logf(ctx, "Cleaned boardgame '%v' (id: %v) with %d fields",
		payload["name"], payload["id"], len(payload)); logErr != nil {
		log.Warn("Failed to append task log", logger.Error(logErr))
	}
}

// persist creates the clean row and marks the raw row processed in one transaction.
func (c *Cleaner) persist(ctx context.Context, raw *domain.RawData, payload domain.JSONBMap, version string) error {
	return database.WithTx(ctx, c.db, func(tx *sqlx.Tx) error {
		rawID := raw.ID
		clean := &domain.CleanData{
			RawID:            &rawID,
			SourceTable:      raw.SourceTable,
			SourceID:         raw.SourceID,
			ScrapeTaskID:     raw.ScrapeTaskID,
			Payload:          payload,
			ProcessorVersion: version,
		}
		if err := c.clean.Create(ctx, tx, clean); err != nil {
			return err
		}

		return c.raw.MarkProcessed(ctx, tx, raw.ID, database.MarkProcessedParams{
			Processed:        true,
			ProcessorVersion: &version,
			ClearError:       true,
		})
	})
}

func (c *Cleaner) markFailed(ctx context.Context, log logger.Logger, rawID int64, cause error) {
	msg := cause.Error()
	err := c.raw.MarkProcessed(ctx, c.db, rawID, database.MarkProcessedParams{
		Processed: false,
		Error:     &msg,
	})
	if err != nil {
		log.Error("Failed to record raw row error", logger.Error(err), logger.String("cause", msg))
	}
}

func alreadyProcessed(raw *domain.RawData, version string) bool {
	return raw.Processed && raw.ProcessorVersion != nil && *raw.ProcessorVersion == version
}
