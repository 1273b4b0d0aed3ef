package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

// MockBoardGameStore is a mock implementation of the scraper board game store.
type MockBoardGameStore struct {
	mock.Mock
}

// BulkUpsert upserts games.
func (m *MockBoardGameStore) BulkUpsert(ctx context.Context, games []*domain.BoardGame) error {
	args := m.Called(ctx, games)
	return args.Error(0)
}

// List returns stored games.
func (m *MockBoardGameStore) List(ctx context.Context, offset, limit int) ([]*domain.BoardGame, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	games, ok := args.Get(0).([]*domain.BoardGame)
	if !ok {
		return nil, ErrInvalidResult
	}
	return games, args.Error(1)
}

// MockRawStore is a mock implementation of the raw row store.
type MockRawStore struct {
	mock.Mock
}

// Create appends raw.
func (m *MockRawStore) Create(ctx context.Context, raw *domain.RawData) error {
	args := m.Called(ctx, raw)
	return args.Error(0)
}
