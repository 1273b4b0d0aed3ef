// Package ledger coordinates scrape task lifecycle, progress and the per-task log.
package ledger

import (
	"context"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
)

// ErrInvalidTransition is returned when a status change breaks the task state machine.
var ErrInvalidTransition = domain.ErrInvalidTransition

// TaskStore persists scrape tasks.
type TaskStore interface {
	Create(ctx context.Context, name string, status domain.TaskStatus) (*domain.ScrapeTask, error)
	GetByID(ctx context.Context, id int64) (*domain.ScrapeTask, error)
	GetByName(ctx context.Context, name string) (*domain.ScrapeTask, error)
	GetLatestCompletedByName(ctx context.Context, name string) (*domain.ScrapeTask, error)
	List(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.ScrapeTask, error)
	UpdateProgress(ctx context.Context, id int64, update domain.ProgressUpdate) error
}

// LogStore persists the per-task log.
type LogStore interface {
	AppendLine(ctx context.Context, taskID int64, text string) (*domain.ScrapeLogLine, error)
	GetRecent(ctx context.Context, taskID int64, limit int) ([]*domain.ScrapeLogLine, error)
}

// Ledger is the single entry point drivers and readers use for task state.
type Ledger struct {
	tasks   TaskStore
	logs    LogStore
	log     logger.Logger
	metrics *metrics.Metrics
}

// New creates a Ledger. m may be nil.
func New(tasks TaskStore, logs LogStore, log logger.Logger, m *metrics.Metrics) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{tasks: tasks, logs: logs, log: log, metrics: m}
}

// CreateTask creates a task with zero progress.
func (l *Ledger) CreateTask(ctx context.Context, name string, status domain.TaskStatus) (*domain.ScrapeTask, error) {
	task, err := l.tasks.Create(ctx, name, status)
	if err != nil {
		return nil, err
	}
	return withETA(task), nil
}

// Task returns a task by id with its ETA filled while running.
func (l *Ledger) Task(ctx context.Context, id int64) (*domain.ScrapeTask, error) {
	task, err := l.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return withETA(task), nil
}

// LatestTask returns the newest task with name.
func (l *Ledger) LatestTask(ctx context.Context, name string) (*domain.ScrapeTask, error) {
	task, err := l.tasks.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return withETA(task), nil
}

// LatestCompleted returns the newest completed task with name.
func (l *Ledger) LatestCompleted(ctx context.Context, name string) (*domain.ScrapeTask, error) {
	return l.tasks.GetLatestCompletedByName(ctx, name)
}

// Tasks lists tasks newest first, optionally filtered by status.
func (l *Ledger) Tasks(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.ScrapeTask, error) {
	tasks, err := l.tasks.List(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		withETA(t)
	}
	return tasks, nil
}

// UpdateProgress applies a sparse update. A status change is rejected with
// ErrInvalidTransition unless the stored status allows it; the store checks
// this in the same write.
func (l *Ledger) UpdateProgress(ctx context.Context, id int64, update domain.ProgressUpdate) error {
	return l.tasks.UpdateProgress(ctx, id, update)
}

// AppendLine appends text to the task log and mirrors it to the process logger.
func (l *Ledger) AppendLine(ctx context.Context, taskID int64, text string) (*domain.ScrapeLogLine, error) {
	line, err := l.logs.AppendLine(ctx, taskID, text)
	if err != nil {
		return nil, err
	}

	l.metrics.LogLine()
	logger.FromContextOr(ctx, l.log).Info(text,
		logger.Int64("task_id", taskID),
		logger.Int("line_no", line.LineNo),
	)
	return line, nil
}

// RecentLogs returns up to limit of the newest lines, oldest first.
func (l *Ledger) RecentLogs(ctx context.Context, taskID int64, limit int) ([]*domain.ScrapeLogLine, error) {
	return l.logs.GetRecent(ctx, taskID, limit)
}

// ETA returns the estimated remaining time of a running task.
func ETA(task *domain.ScrapeTask) *string {
	if task == nil || task.Status != domain.TaskStatusRunning {
		return nil
	}
	return EstimateETA(task.Progress, &task.LastUpdate, &task.CreatedAt)
}

func withETA(task *domain.ScrapeTask) *domain.ScrapeTask {
	task.ETA = ETA(task)
	return task
}
