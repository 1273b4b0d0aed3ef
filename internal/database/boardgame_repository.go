package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const boardGameSelectColumns = `id, name, url, created_at, updated_at`

const upsertBoardGameQuery = `
	INSERT INTO boardgames (id, name, url)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		url = EXCLUDED.url,
		updated_at = NOW()
	RETURNING created_at, updated_at
`

// BoardGameRepository handles the boardgames listing table.
type BoardGameRepository struct {
	db *sqlx.DB
}

// NewBoardGameRepository creates a new boardgame repository.
func NewBoardGameRepository(db *sqlx.DB) *BoardGameRepository {
	return &BoardGameRepository{db: db}
}

// Upsert inserts game or overwrites name and url of the existing row with the same id.
func (r *BoardGameRepository) Upsert(ctx context.Context, game *domain.BoardGame) error {
	if err := upsertBoardGame(ctx, r.db, game); err != nil {
		return fmt.Errorf("failed to upsert boardgame %d: %w", game.ID, err)
	}
	return nil
}

// BulkUpsert upserts games in one transaction.
func (r *BoardGameRepository) BulkUpsert(ctx context.Context, games []*domain.BoardGame) error {
	if len(games) == 0 {
		return nil
	}

	err := WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, game := range games {
			if err := upsertBoardGame(ctx, tx, game); err != nil {
				return fmt.Errorf("boardgame %d: %w", game.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bulk upsert boardgames: %w", err)
	}

	return nil
}

func upsertBoardGame(ctx context.Context, q Querier, game *domain.BoardGame) error {
	return q.QueryRowxContext(ctx, upsertBoardGameQuery, game.ID, game.Name, game.URL).
		Scan(&game.CreatedAt, &game.UpdatedAt)
}

// GetByID retrieves a boardgame by its ID.
func (r *BoardGameRepository) GetByID(ctx context.Context, id int64) (*domain.BoardGame, error) {
	query := `SELECT ` + boardGameSelectColumns + ` FROM boardgames WHERE id = $1`

	var game domain.BoardGame
	if err := getOne(ctx, r.db, &game, ErrBoardGameNotFound, query, id); err != nil {
		return nil, fmt.Errorf("failed to get boardgame %d: %w", id, err)
	}

	return &game, nil
}

// List returns boardgames ordered by id.
func (r *BoardGameRepository) List(ctx context.Context, offset, limit int) ([]*domain.BoardGame, error) {
	if limit <= 0 {
		limit = DefaultTaskListLimit
	}

	query := `
		SELECT ` + boardGameSelectColumns + `
		FROM boardgames
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	var games []*domain.BoardGame
	if err := r.db.SelectContext(ctx, &games, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list boardgames: %w", err)
	}

	if games == nil {
		games = []*domain.BoardGame{}
	}

	return games, nil
}
