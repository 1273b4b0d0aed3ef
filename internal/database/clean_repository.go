package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const cleanSelectColumns = `id, raw_id, source_table, source_id, scrape_task_id, payload,
	processor_version, error, created_at`

var errMissingRawID = errors.New("clean data requires a raw id")

// CleanDataRepository stores versioned records derived from raw rows.
// Rows are never overwritten; reprocessing appends a new row.
type CleanDataRepository struct {
	db *sqlx.DB
}

// NewCleanDataRepository creates a new clean data repository.
func NewCleanDataRepository(db *sqlx.DB) *CleanDataRepository {
	return &CleanDataRepository{db: db}
}

// Create inserts clean on q and fills its generated fields.
func (r *CleanDataRepository) Create(ctx context.Context, q Querier, clean *domain.CleanData) error {
	if clean.RawID == nil {
		return errMissingRawID
	}
	if q == nil {
		q = r.db
	}

	query := `
		INSERT INTO clean_data (raw_id, source_table, source_id, scrape_task_id, payload, processor_version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := q.QueryRowxContext(ctx, query,
		clean.RawID, clean.SourceTable, clean.SourceID, clean.ScrapeTaskID, clean.Payload, clean.ProcessorVersion,
	).Scan(&clean.ID, &clean.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create clean data for raw %d: %w", *clean.RawID, err)
	}

	return nil
}

// GetByID retrieves a clean row by its ID.
func (r *CleanDataRepository) GetByID(ctx context.Context, id int64) (*domain.CleanData, error) {
	query := `SELECT ` + cleanSelectColumns + ` FROM clean_data WHERE id = $1`

	var clean domain.CleanData
	if err := getOne(ctx, r.db, &clean, ErrCleanNotFound, query, id); err != nil {
		return nil, fmt.Errorf("failed to get clean data %d: %w", id, err)
	}

	return &clean, nil
}

// GetByRawID returns the newest clean row derived from a raw row.
func (r *CleanDataRepository) GetByRawID(ctx context.Context, rawID int64) (*domain.CleanData, error) {
	query := `
		SELECT ` + cleanSelectColumns + `
		FROM clean_data
		WHERE raw_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var clean domain.CleanData
	if err := getOne(ctx, r.db, &clean, ErrCleanNotFound, query, rawID); err != nil {
		return nil, fmt.Errorf("failed to get clean data for raw %d: %w", rawID, err)
	}

	return &clean, nil
}

// GetBySource returns the newest clean row for a source identity.
func (r *CleanDataRepository) GetBySource(ctx context.Context, table string, sourceID int64) (*domain.CleanData, error) {
	query := `
		SELECT ` + cleanSelectColumns + `
		FROM clean_data
		WHERE source_table = $1 AND source_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var clean domain.CleanData
	if err := getOne(ctx, r.db, &clean, ErrCleanNotFound, query, table, sourceID); err != nil {
		return nil, fmt.Errorf("failed to get clean data %s/%d: %w", table, sourceID, err)
	}

	return &clean, nil
}

// GetByTask returns every clean row of a task in insertion order.
func (r *CleanDataRepository) GetByTask(ctx context.Context, taskID int64) ([]*domain.CleanData, error) {
	query := `
		SELECT ` + cleanSelectColumns + `
		FROM clean_data
		WHERE scrape_task_id = $1
		ORDER BY id
	`

	var rows []*domain.CleanData
	if err := r.db.SelectContext(ctx, &rows, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to get clean data for task %d: %w", taskID, err)
	}

	if rows == nil {
		rows = []*domain.CleanData{}
	}

	return rows, nil
}

// MarkError records an error on an existing clean row.
func (r *CleanDataRepository) MarkError(ctx context.Context, id int64, message string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clean_data SET error = $1 WHERE id = $2`, message, id)
	if err = execRequireRows(result, err, ErrCleanNotFound); err != nil {
		return fmt.Errorf("failed to mark clean data %d: %w", id, err)
	}
	return nil
}
