package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
)

func newLogRepo(t *testing.T) (*database.LogRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return database.NewLogRepository(db), mock
}

func expectAppend(mock sqlmock.Sqlmock, taskID int64, lineNo int, text string) {
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE scrape_tasks SET last_line_no = last_line_no").
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"last_line_no"}).AddRow(lineNo))
	mock.ExpectQuery("INSERT INTO scrape_logs").
		WithArgs(taskID, lineNo, text).
		WillReturnRows(sqlmock.NewRows(logColumns).AddRow(int64(lineNo*10), taskID, lineNo, text, time.Now()))
	mock.ExpectCommit()
}

func TestLogRepository_AppendLine_UsesCounterValue(t *testing.T) {
	repo, mock := newLogRepo(t)

	expectAppend(mock, 3, 1, "Logging in")
	expectAppend(mock, 3, 2, "Logged in")
	expectAppend(mock, 3, 3, "Scraped page 1/10")

	ctx := context.Background()
	for want, text := range []string{"Logging in", "Logged in", "Scraped page 1/10"} {
		line, err := repo.AppendLine(ctx, 3, text)
		if err != nil {
			t.Fatalf("AppendLine() error = %v", err)
		}
		if line.LineNo != want+1 {
			t.Errorf("expected line_no=%d, got %d", want+1, line.LineNo)
		}
		if line.Text != text {
			t.Errorf("expected text=%q, got %q", text, line.Text)
		}
	}

	expectationsMet(t, mock)
}

func TestLogRepository_AppendLine_UnknownTask(t *testing.T) {
	repo, mock := newLogRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE scrape_tasks SET last_line_no").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"last_line_no"}))
	mock.ExpectRollback()

	_, err := repo.AppendLine(context.Background(), 404, "orphan")
	if !errors.Is(err, database.ErrTaskNotFound) {
		t.Fatalf("AppendLine() expected ErrTaskNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestLogRepository_AppendLine_InsertFailureRollsBack(t *testing.T) {
	repo, mock := newLogRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE scrape_tasks SET last_line_no").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"last_line_no"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO scrape_logs").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := repo.AppendLine(context.Background(), 1, "x"); err == nil {
		t.Fatal("AppendLine() expected error")
	}

	expectationsMet(t, mock)
}

func TestLogRepository_GetRecent_ReturnsAscending(t *testing.T) {
	repo, mock := newLogRepo(t)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM scrape_logs WHERE task_id = \\$1 ORDER BY line_no DESC LIMIT \\$2").
		WithArgs(int64(5), 3).
		WillReturnRows(sqlmock.NewRows(logColumns).
			AddRow(int64(30), int64(5), 9, "nine", now).
			AddRow(int64(29), int64(5), 8, "eight", now).
			AddRow(int64(28), int64(5), 7, "seven", now))

	lines, err := repo.GetRecent(context.Background(), 5, 3)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []int{7, 8, 9} {
		if lines[i].LineNo != want {
			t.Errorf("lines[%d].LineNo = %d, want %d", i, lines[i].LineNo, want)
		}
	}

	expectationsMet(t, mock)
}
