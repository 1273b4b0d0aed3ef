package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

func newTaskRepo(t *testing.T) (*database.TaskRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return database.NewTaskRepository(db), mock
}

func TestTaskRepository_Create(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery("INSERT INTO scrape_tasks").
		WithArgs("scrape_boardgames_info", domain.TaskStatusRunning).
		WillReturnRows(taskRow(1, "scrape_boardgames_info", "running", 0, 0))

	task, err := repo.Create(context.Background(), "scrape_boardgames_info", domain.TaskStatusRunning)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.ID != 1 || task.Status != domain.TaskStatusRunning {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.Progress != 0 || task.LastLineNo != 0 {
		t.Errorf("expected fresh counters, got progress=%v last_line_no=%d", task.Progress, task.LastLineNo)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_Create_RejectsTerminalStatus(t *testing.T) {
	repo, mock := newTaskRepo(t)

	if _, err := repo.Create(context.Background(), "x", domain.TaskStatusCompleted); err == nil {
		t.Fatal("Create() expected error for completed initial status")
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_EmptyIsNoOp(t *testing.T) {
	repo, mock := newTaskRepo(t)

	if err := repo.UpdateProgress(context.Background(), 1, domain.ProgressUpdate{}); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	// No statement may reach the database, so last_update is untouched.
	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_WritesOnlySetFields(t *testing.T) {
	repo, mock := newTaskRepo(t)

	progress := 0.5
	message := "Scraped page 5/10"

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE scrape_tasks SET progress = $1, message = $2, last_update = NOW() WHERE id = $3",
	)).
		WithArgs(progress, message, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProgress(context.Background(), 7, domain.ProgressUpdate{
		Progress: &progress,
		Message:  &message,
	})
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_AllFields(t *testing.T) {
	repo, mock := newTaskRepo(t)

	progress := 1.0
	status := domain.TaskStatusCompleted
	page := 10
	items := 500
	message := "done"

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE scrape_tasks SET progress = $1, status = $2, current_page = $3, " +
			"items_processed = $4, message = $5, last_update = NOW() WHERE id = $6 AND status = ANY($7)",
	)).
		WithArgs(progress, status, page, items, message, int64(2), pq.Array([]string{"running"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProgress(context.Background(), 2, domain.ProgressUpdate{
		Progress:       &progress,
		Status:         &status,
		CurrentPage:    &page,
		ItemsProcessed: &items,
		Message:        &message,
	})
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_NotFound(t *testing.T) {
	repo, mock := newTaskRepo(t)

	status := domain.TaskStatusRunning
	mock.ExpectExec("UPDATE scrape_tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scrape_tasks WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err := repo.UpdateProgress(context.Background(), 99, domain.ProgressUpdate{Status: &status})
	if !errors.Is(err, database.ErrTaskNotFound) {
		t.Fatalf("UpdateProgress() expected ErrTaskNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_GuardsStatusInStatement(t *testing.T) {
	repo, mock := newTaskRepo(t)

	failed := domain.TaskStatusFailed
	message := "store down"

	// The task was completed by another writer between read and write.
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE scrape_tasks SET status = $1, message = $2, last_update = NOW() WHERE id = $3 AND status = ANY($4)",
	)).
		WithArgs(failed, message, int64(5), pq.Array([]string{"pending", "running"})).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scrape_tasks WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err := repo.UpdateProgress(context.Background(), 5, domain.ProgressUpdate{Status: &failed, Message: &message})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("UpdateProgress() expected ErrInvalidTransition, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_UpdateProgress_RejectsOutOfRange(t *testing.T) {
	repo, mock := newTaskRepo(t)

	progress := 1.2
	if err := repo.UpdateProgress(context.Background(), 1, domain.ProgressUpdate{Progress: &progress}); err == nil {
		t.Fatal("UpdateProgress() expected error for progress > 1")
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_GetLatestCompletedByName_None(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery("SELECT .+ FROM scrape_tasks WHERE name = \\$1 AND status = \\$2").
		WithArgs("scrape_boardgames_info", domain.TaskStatusCompleted).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := repo.GetLatestCompletedByName(context.Background(), "scrape_boardgames_info")
	if !errors.Is(err, database.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestTaskRepository_List(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery("SELECT .+ FROM scrape_tasks WHERE status = \\$1").
		WithArgs(domain.TaskStatusFailed, database.DefaultTaskListLimit).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := repo.List(context.Background(), domain.TaskStatusFailed, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", tasks)
	}

	expectationsMet(t, mock)
}
