package database_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// Column lists returned by the repository SELECT/RETURNING clauses.
var (
	taskColumns = []string{
		"id", "name", "status", "progress", "current_page", "items_processed",
		"last_line_no", "message", "created_at", "last_update",
	}
	logColumns = []string{"id", "task_id", "line_no", "text", "created_at"}
	rawColumns = []string{
		"id", "source_table", "source_id", "scrape_task_id", "payload", "processed",
		"processor_version", "error", "created_at",
	}
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func taskRow(id int64, name, status string, progress float64, lastLineNo int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskColumns).
		AddRow(id, name, status, progress, nil, nil, lastLineNo, nil, now, now)
}
