package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// ErrTaskFailed is returned by Run when the unit of work marked the task failed itself.
var ErrTaskFailed = errors.New("task failed")

var errNotStarted = errors.New("task logger not started")

// TaskLogger scopes one unit of work to a task row. Run guarantees the task
// ends with exactly one terminal record, completed or failed.
type TaskLogger struct {
	ledger *Ledger
	name   string
	runID  string
	log    logger.Logger

	mu         sync.Mutex
	taskID     int64
	resume     bool
	startedAt  time.Time
	terminated bool
	failMsg    string
}

// TaskOption configures a TaskLogger.
type TaskOption func(*TaskLogger)

// WithTaskID resumes an existing task instead of creating a new one.
func WithTaskID(id int64) TaskOption {
	return func(t *TaskLogger) {
		t.taskID = id
		t.resume = true
	}
}

// NewTaskLogger prepares a scope for the task name. Nothing is written until Start.
func (l *Ledger) NewTaskLogger(name string, opts ...TaskOption) *TaskLogger {
	t := &TaskLogger{
		ledger: l,
		name:   name,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = l.log.With(logger.String("task", name), logger.String("run_id", t.runID))
	return t
}

// TaskID returns the task id, zero before Start.
func (t *TaskLogger) TaskID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskID
}

// Logger returns the process logger scoped to this run.
func (t *TaskLogger) Logger() logger.Logger {
	return t.log
}

// Start creates the task as running, or sets an existing task back to running.
func (t *TaskLogger) Start(ctx context.Context) (*domain.ScrapeTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startedAt = time.Now()
	t.terminated = false
	t.failMsg = ""

	if t.resume {
		running := domain.TaskStatusRunning
		if err := t.ledger.UpdateProgress(ctx, t.taskID, domain.ProgressUpdate{Status: &running}); err != nil {
			return nil, fmt.Errorf("failed to resume task %d: %w", t.taskID, err)
		}
		task, err := t.ledger.Task(ctx, t.taskID)
		if err != nil {
			return nil, err
		}
		t.started(task.ID)
		return task, nil
	}

	task, err := t.ledger.CreateTask(ctx, t.name, domain.TaskStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to start task %q: %w", t.name, err)
	}
	t.taskID = task.ID
	t.started(task.ID)
	return task, nil
}

func (t *TaskLogger) started(id int64) {
	t.log = t.log.With(logger.Int64("task_id", id))
	t.ledger.metrics.TaskStarted(t.name)
	t.log.Info("Task started", logger.Bool("resumed", t.resume))
}

// Log appends text to the task log.
func (t *TaskLogger) Log(ctx context.Context, text string) error {
	id := t.TaskID()
	if id == 0 {
		return errNotStarted
	}
	_, err := t.ledger.AppendLine(logger.WithContext(ctx, t.log), id, text)
	return err
}

// Logf appends a formatted line to the task log.
func (t *TaskLogger) Logf(ctx context.Context, format string, args ...any) error {
	return t.Log(ctx, fmt.Sprintf(format, args...))
}

// UpdateProgress applies a sparse update to the task.
func (t *TaskLogger) UpdateProgress(ctx context.Context, update domain.ProgressUpdate) error {
	id := t.TaskID()
	if id == 0 {
		return errNotStarted
	}
	return t.ledger.UpdateProgress(ctx, id, update)
}

// Progress sets progress and message together, and appends message to the log.
func (t *TaskLogger) Progress(ctx context.Context, progress float64, message string) error {
	if err := t.UpdateProgress(ctx, domain.ProgressUpdate{Progress: &progress, Message: &message}); err != nil {
		return err
	}
	return t.Log(ctx, message)
}

// Finish marks the task completed with progress 1 and logs message when
// non-empty. It is a no-op once the task is terminated. If the completed
// status cannot be written the task stays open, so Fail can still end it.
func (t *TaskLogger) Finish(ctx context.Context, message string) error {
	if !t.terminate("") {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	progress := 1.0
	completed := domain.TaskStatusCompleted
	update := domain.ProgressUpdate{Progress: &progress, Status: &completed}
	if message != "" {
		update.Message = &message
	}

	if err := t.UpdateProgress(ctx, update); err != nil {
		t.reopen()
		return fmt.Errorf("failed to finish task %d: %w", t.TaskID(), err)
	}
	t.ledger.metrics.TaskFinished(t.name, string(completed), time.Since(t.startedAt))
	if message != "" {
		if err := t.Log(ctx, message); err != nil {
			return err
		}
	}

	t.log.Info("Task completed", logger.Duration("elapsed", time.Since(t.startedAt)))
	return nil
}

// Fail marks the task failed with message and appends a "FAILED: " line.
// Only the first terminal call takes effect.
func (t *TaskLogger) Fail(ctx context.Context, message string) error {
	if message == "" {
		message = "unknown error"
	}
	if !t.terminate(message) {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	failed := domain.TaskStatusFailed
	t.ledger.metrics.TaskFinished(t.name, string(failed), time.Since(t.startedAt))

	// Both writes are attempted; the first error is reported.
	updateErr := t.UpdateProgress(ctx, domain.ProgressUpdate{Status: &failed, Message: &message})
	logErr := t.Log(ctx, "FAILED: "+message)

	t.log.Error("Task failed", logger.String("reason", message))
	if updateErr != nil {
		return fmt.Errorf("failed to mark task %d failed: %w", t.TaskID(), updateErr)
	}
	return logErr
}

// terminate flips the scope to terminated and reports whether this call did it.
func (t *TaskLogger) terminate(failMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated || t.taskID == 0 {
		return false
	}
	t.terminated = true
	t.failMsg = failMsg
	return true
}

// reopen undoes terminate after the terminal status could not be written.
func (t *TaskLogger) reopen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.terminated = false
	t.failMsg = ""
}

// Run starts the task, calls fn and records exactly one terminal status.
// An error or panic from fn fails the task with its message; errors while
// recording the failure are logged and suppressed so fn's error is returned.
// If fn called Fail itself, Run returns ErrTaskFailed.
func (t *TaskLogger) Run(ctx context.Context, fn func(ctx context.Context, task *TaskLogger) error) (err error) {
	if _, err = t.Start(ctx); err != nil {
		return err
	}

	ctx = logger.WithContext(ctx, t.log)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %q: %v", t.name, r)
			t.failQuietly(ctx, err)
		}
	}()

	if err = fn(ctx, t); err != nil {
		t.failQuietly(ctx, err)
		return err
	}

	t.mu.Lock()
	terminated, failMsg := t.terminated, t.failMsg
	t.mu.Unlock()

	if terminated {
		if failMsg != "" {
			return fmt.Errorf("%w: %s", ErrTaskFailed, failMsg)
		}
		return nil
	}

	if err = t.Finish(ctx, ""); err != nil {
		t.failQuietly(ctx, err)
		return err
	}
	return nil
}

func (t *TaskLogger) failQuietly(ctx context.Context, cause error) {
	if failErr := t.Fail(ctx, cause.Error()); failErr != nil {
		t.log.Error("Failed to record task failure",
			logger.Error(failErr),
			logger.String("cause", cause.Error()),
		)
	}
}
