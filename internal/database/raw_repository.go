package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const rawSelectColumns = `id, source_table, source_id, scrape_task_id, payload, processed,
	processor_version, error, created_at`

// MarkProcessedParams carries the outcome of transforming one raw row.
// Processed is always written; the other fields only when set.
type MarkProcessedParams struct {
	Processed        bool
	ProcessorVersion *string
	Error            *string
	// ClearError resets a previous error. Ignored when Error is set.
	ClearError bool
}

// RawDataRepository stores scrape output awaiting transformation.
type RawDataRepository struct {
	db *sqlx.DB
}

// NewRawDataRepository creates a new raw data repository.
func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

// Create appends a raw row and fills its generated fields.
func (r *RawDataRepository) Create(ctx context.Context, raw *domain.RawData) error {
	query := `
		INSERT INTO raw_data (source_table, source_id, scrape_task_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, processed, created_at
	`

	err := r.db.QueryRowxContext(ctx, query, raw.SourceTable, raw.SourceID, raw.ScrapeTaskID, raw.Payload).
		Scan(&raw.ID, &raw.Processed, &raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raw data: %w", err)
	}

	return nil
}

// MarkProcessed records the transformation outcome of a raw row on q.
func (r *RawDataRepository) MarkProcessed(ctx context.Context, q Querier, id int64, params MarkProcessedParams) error {
	if q == nil {
		q = r.db
	}

	sets := []string{"processed = $1"}
	args := []any{params.Processed}

	if params.ProcessorVersion != nil {
		args = append(args, *params.ProcessorVersion)
		sets = append(sets, "processor_version = $"+strconv.Itoa(len(args)))
	}
	switch {
	case params.Error != nil:
		args = append(args, *params.Error)
		sets = append(sets, "error = $"+strconv.Itoa(len(args)))
	case params.ClearError:
		sets = append(sets, "error = NULL")
	}
	args = append(args, id)

	query := `UPDATE raw_data SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))

	result, err := q.ExecContext(ctx, query, args...)
	if err = execRequireRows(result, err, ErrRawNotFound); err != nil {
		return fmt.Errorf("failed to mark raw data %d: %w", id, err)
	}

	return nil
}

// GetByID retrieves a raw row by its ID.
func (r *RawDataRepository) GetByID(ctx context.Context, id int64) (*domain.RawData, error) {
	query := `SELECT ` + rawSelectColumns + ` FROM raw_data WHERE id = $1`

	var raw domain.RawData
	if err := getOne(ctx, r.db, &raw, ErrRawNotFound, query, id); err != nil {
		return nil, fmt.Errorf("failed to get raw data %d: %w", id, err)
	}

	return &raw, nil
}

// GetByTask returns every raw row produced by a task in insertion order.
func (r *RawDataRepository) GetByTask(ctx context.Context, taskID int64) ([]*domain.RawData, error) {
	query := `
		SELECT ` + rawSelectColumns + `
		FROM raw_data
		WHERE scrape_task_id = $1
		ORDER BY id
	`

	return r.selectRows(ctx, query, taskID)
}

// GetBySource returns the most recent raw row for a source identity.
func (r *RawDataRepository) GetBySource(ctx context.Context, table string, sourceID int64) (*domain.RawData, error) {
	query := `
		SELECT ` + rawSelectColumns + `
		FROM raw_data
		WHERE source_table = $1 AND source_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var raw domain.RawData
	if err := getOne(ctx, r.db, &raw, ErrRawNotFound, query, table, sourceID); err != nil {
		return nil, fmt.Errorf("failed to get raw data %s/%d: %w", table, sourceID, err)
	}

	return &raw, nil
}

// ListBySourceTable returns the newest raw rows of one source table.
func (r *RawDataRepository) ListBySourceTable(ctx context.Context, table string, limit int) ([]*domain.RawData, error) {
	if limit <= 0 {
		limit = DefaultTaskListLimit
	}

	query := `
		SELECT ` + rawSelectColumns + `
		FROM raw_data
		WHERE source_table = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return r.selectRows(ctx, query, table, limit)
}

func (r *RawDataRepository) selectRows(ctx context.Context, query string, args ...any) ([]*domain.RawData, error) {
	var rows []*domain.RawData
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query raw data: %w", err)
	}

	if rows == nil {
		rows = []*domain.RawData{}
	}

	return rows, nil
}
