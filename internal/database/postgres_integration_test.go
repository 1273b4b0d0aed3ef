//go:build integration

package database_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const postgresStartupTimeout = 60 * time.Second

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bgg_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(postgresStartupTimeout),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(url, database.MigrateUp))

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestIntegration_AppendLine_ConcurrentIsGapFree(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	task, err := database.NewTaskRepository(db).Create(ctx, "concurrent", domain.TaskStatusRunning)
	require.NoError(t, err)

	logs := database.NewLogRepository(db)
	const writers = 50

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, appendErr := logs.AppendLine(ctx, task.ID, "line"); appendErr != nil {
				errs <- appendErr
			}
		}()
	}
	wg.Wait()
	close(errs)
	for appendErr := range errs {
		require.NoError(t, appendErr)
	}

	lines, err := logs.GetRecent(ctx, task.ID, writers*2)
	require.NoError(t, err)
	require.Len(t, lines, writers)

	got := make([]int, 0, writers)
	for _, l := range lines {
		got = append(got, l.LineNo)
	}
	sort.Ints(got)
	for i, n := range got {
		assert.Equal(t, i+1, n)
	}

	reloaded, err := database.NewTaskRepository(db).GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, writers, reloaded.LastLineNo)
}

func TestIntegration_UpdateProgress_EmptyKeepsLastUpdate(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	tasks := database.NewTaskRepository(db)

	task, err := tasks.Create(ctx, "sparse", domain.TaskStatusRunning)
	require.NoError(t, err)

	require.NoError(t, tasks.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{}))

	reloaded, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, task.LastUpdate.Equal(reloaded.LastUpdate))
}

func TestIntegration_TaskStatusGuardedInUpdate(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	tasks := database.NewTaskRepository(db)

	task, err := tasks.Create(ctx, "guarded", domain.TaskStatusRunning)
	require.NoError(t, err)

	completed := domain.TaskStatusCompleted
	require.NoError(t, tasks.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{Status: &completed}))

	failed := domain.TaskStatusFailed
	err = tasks.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{Status: &failed})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	reloaded, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, reloaded.Status)
}

func TestIntegration_BoardGameUpsert_IsIdempotent(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	games := database.NewBoardGameRepository(db)

	require.NoError(t, games.Upsert(ctx, &domain.BoardGame{ID: 13, Name: "Settlers", URL: "https://boardgamegeek.com/boardgame/13/catan"}))
	require.NoError(t, games.Upsert(ctx, &domain.BoardGame{ID: 13, Name: "Catan", URL: "https://boardgamegeek.com/boardgame/13/catan"}))

	list, err := games.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Catan", list[0].Name)
}
