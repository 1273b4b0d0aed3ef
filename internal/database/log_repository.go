package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const logSelectColumns = `id, task_id, line_no, text, created_at`

// DefaultRecentLogLimit is used when GetRecent is called without a positive limit.
const DefaultRecentLogLimit = 100

// LogRepository handles the append-only scrape log.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// AppendLine assigns the next line number of the task and stores the line.
// The counter increment and the insert share one transaction; the UPDATE's
// row lock serialises concurrent appenders to the same task, so numbering is
// dense and duplicate free.
func (r *LogRepository) AppendLine(ctx context.Context, taskID int64, text string) (*domain.ScrapeLogLine, error) {
	var line domain.ScrapeLogLine

	err := WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var lineNo int
		counter := `UPDATE scrape_tasks SET last_line_no = last_line_no + 1 WHERE id = $1 RETURNING last_line_no`
		if err := getOne(ctx, tx, &lineNo, ErrTaskNotFound, counter, taskID); err != nil {
			return err
		}

		insert := `
			INSERT INTO scrape_logs (task_id, line_no, text)
			VALUES ($1, $2, $3)
			RETURNING ` + logSelectColumns
		return tx.GetContext(ctx, &line, insert, taskID, lineNo, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append log line to task %d: %w", taskID, err)
	}

	return &line, nil
}

// GetRecent returns up to limit of the newest lines in ascending line order.
func (r *LogRepository) GetRecent(ctx context.Context, taskID int64, limit int) ([]*domain.ScrapeLogLine, error) {
	if limit <= 0 {
		limit = DefaultRecentLogLimit
	}

	query := `
		SELECT ` + logSelectColumns + `
		FROM scrape_logs
		WHERE task_id = $1
		ORDER BY line_no DESC
		LIMIT $2
	`

	var lines []*domain.ScrapeLogLine
	if err := r.db.SelectContext(ctx, &lines, query, taskID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent logs for task %d: %w", taskID, err)
	}

	if lines == nil {
		return []*domain.ScrapeLogLine{}, nil
	}

	slices.Reverse(lines)
	return lines, nil
}
