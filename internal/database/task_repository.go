package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const taskSelectColumns = `id, name, status, progress, current_page, items_processed,
	last_line_no, message, created_at, last_update`

// DefaultTaskListLimit bounds List when no limit is given.
const DefaultTaskListLimit = 100

// TaskRepository handles database operations for scrape tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task with zero progress in the given status.
func (r *TaskRepository) Create(ctx context.Context, name string, status domain.TaskStatus) (*domain.ScrapeTask, error) {
	if !domain.TaskStatusNone.CanTransition(status) {
		return nil, fmt.Errorf("invalid initial task status %q", status)
	}

	query := `
		INSERT INTO scrape_tasks (name, status, progress)
		VALUES ($1, $2, 0)
		RETURNING ` + taskSelectColumns

	var task domain.ScrapeTask
	if err := r.db.GetContext(ctx, &task, query, name, status); err != nil {
		return nil, fmt.Errorf("failed to create scrape task: %w", err)
	}

	return &task, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.ScrapeTask, error) {
	query := `SELECT ` + taskSelectColumns + ` FROM scrape_tasks WHERE id = $1`

	var task domain.ScrapeTask
	if err := getOne(ctx, r.db, &task, ErrTaskNotFound, query, id); err != nil {
		return nil, fmt.Errorf("failed to get scrape task %d: %w", id, err)
	}

	return &task, nil
}

// GetByName returns the most recently created task with the given name.
func (r *TaskRepository) GetByName(ctx context.Context, name string) (*domain.ScrapeTask, error) {
	query := `
		SELECT ` + taskSelectColumns + `
		FROM scrape_tasks
		WHERE name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var task domain.ScrapeTask
	if err := getOne(ctx, r.db, &task, ErrTaskNotFound, query, name); err != nil {
		return nil, fmt.Errorf("failed to get scrape task %q: %w", name, err)
	}

	return &task, nil
}

// GetLatestCompletedByName returns the newest completed task with the given name.
func (r *TaskRepository) GetLatestCompletedByName(ctx context.Context, name string) (*domain.ScrapeTask, error) {
	query := `
		SELECT ` + taskSelectColumns + `
		FROM scrape_tasks
		WHERE name = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var task domain.ScrapeTask
	if err := getOne(ctx, r.db, &task, ErrTaskNotFound, query, name, domain.TaskStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to get latest completed task %q: %w", name, err)
	}

	return &task, nil
}

// List returns tasks newest first. A zero status lists every status.
func (r *TaskRepository) List(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.ScrapeTask, error) {
	if limit <= 0 {
		limit = DefaultTaskListLimit
	}

	var (
		tasks []*domain.ScrapeTask
		query string
		args  []any
	)

	if status != domain.TaskStatusNone {
		query = `
			SELECT ` + taskSelectColumns + `
			FROM scrape_tasks
			WHERE status = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = []any{status, limit}
	} else {
		query = `
			SELECT ` + taskSelectColumns + `
			FROM scrape_tasks
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`
		args = []any{limit}
	}

	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list scrape tasks: %w", err)
	}

	if tasks == nil {
		tasks = []*domain.ScrapeTask{}
	}

	return tasks, nil
}

// UpdateProgress writes only the fields set in update. An empty update issues
// no statement. last_line_no is never written here.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id int64, update domain.ProgressUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("failed to update scrape task %d: %w", id, err)
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if update.Progress != nil {
		add("progress", *update.Progress)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.CurrentPage != nil {
		add("current_page", *update.CurrentPage)
	}
	if update.ItemsProcessed != nil {
		add("items_processed", *update.ItemsProcessed)
	}
	if update.Message != nil {
		add("message", *update.Message)
	}
	sets = append(sets, "last_update = NOW()")
	args = append(args, id)

	query := `UPDATE scrape_tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args))

	if update.Status == nil {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err = execRequireRows(result, err, ErrTaskNotFound); err != nil {
			return fmt.Errorf("failed to update scrape task %d: %w", id, err)
		}
		return nil
	}

	// The transition is checked by the statement itself so concurrent
	// status writers cannot both pass.
	allowed := update.Status.AllowedFrom()
	from := make([]string, len(allowed))
	for i, s := range allowed {
		from[i] = string(s)
	}
	args = append(args, pq.Array(from))
	query += ` AND status = ANY($` + strconv.Itoa(len(args)) + `)`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update scrape task %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scrape task %d: %w", id, err)
	}
	if rows > 0 {
		return nil
	}

	return r.rejectedTransition(ctx, id, *update.Status)
}

// rejectedTransition explains a guarded status update that matched no row.
func (r *TaskRepository) rejectedTransition(ctx context.Context, id int64, next domain.TaskStatus) error {
	var current domain.TaskStatus
	err := getOne(ctx, r.db, &current, ErrTaskNotFound, `SELECT status FROM scrape_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update scrape task %d: %w", id, err)
	}
	return fmt.Errorf("failed to update scrape task %d: %w: %s -> %s",
		id, domain.ErrInvalidTransition, current, next)
}

// Delete removes a task; its log lines are removed by cascade.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scrape_tasks WHERE id = $1`, id)
	if err = execRequireRows(result, err, ErrTaskNotFound); err != nil {
		return fmt.Errorf("failed to delete scrape task %d: %w", id, err)
	}
	return nil
}
