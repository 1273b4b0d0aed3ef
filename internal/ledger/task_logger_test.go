package ledger_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/testutils"
)

func newLedger(t *testing.T) (*ledger.Ledger, *testutils.LedgerStore) {
	t.Helper()

	store := testutils.NewLedgerStore()
	return ledger.New(store, store, logger.NewNop(), nil), store
}

func failedLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "FAILED: ") {
			n++
		}
	}
	return n
}

func TestTaskLogger_Run_Completes(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_info")

	err := tl.Run(context.Background(), func(ctx context.Context, task *ledger.TaskLogger) error {
		require.NoError(t, task.Log(ctx, "Logging in"))
		return task.Progress(ctx, 0.5, "Scraped page 1/2")
	})
	require.NoError(t, err)

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.InDelta(t, 1.0, task.Progress, 0)
	assert.Equal(t, []string{"Logging in", "Scraped page 1/2"}, store.Texts(task.ID))
	assert.Equal(t, 2, task.LastLineNo)
}

func TestTaskLogger_Run_ErrorFailsOnce(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_info")
	boom := errors.New("names and urls differ in length")

	err := tl.Run(context.Background(), func(ctx context.Context, task *ledger.TaskLogger) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	require.NotNil(t, task.Message)
	assert.Equal(t, boom.Error(), *task.Message)

	lines := store.Texts(task.ID)
	assert.Equal(t, 1, failedLines(lines))
	assert.Equal(t, "FAILED: "+boom.Error(), lines[len(lines)-1])
}

func TestTaskLogger_Run_PanicFailsTask(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_links")

	err := tl.Run(context.Background(), func(context.Context, *ledger.TaskLogger) error {
		panic("index out of range")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index out of range")

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	assert.Equal(t, 1, failedLines(store.Texts(task.ID)))
}

func TestTaskLogger_Run_ExplicitFailIsTerminal(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_info")

	err := tl.Run(context.Background(), func(ctx context.Context, task *ledger.TaskLogger) error {
		require.NoError(t, task.Fail(ctx, "Login failed"))
		// A second failure from the same scope must not write again.
		require.NoError(t, task.Fail(ctx, "cleanup failed"))
		return errors.New("returned after fail")
	})
	require.Error(t, err)

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	assert.Equal(t, "Login failed", *task.Message)
	assert.Equal(t, []string{"FAILED: Login failed"}, store.Texts(task.ID))
}

func TestTaskLogger_Run_ExplicitFailThenNilReturnsErrTaskFailed(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_info")

	err := tl.Run(context.Background(), func(ctx context.Context, task *ledger.TaskLogger) error {
		return task.Fail(ctx, "Login failed")
	})
	require.ErrorIs(t, err, ledger.ErrTaskFailed)

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status, "finish must not overwrite an explicit failure")
}

func TestTaskLogger_Run_SecondaryFailureSuppressed(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_info")
	boom := errors.New("navigation failed")

	err := tl.Run(context.Background(), func(context.Context, *ledger.TaskLogger) error {
		store.SetWriteError(testutils.ErrStoreDown)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, testutils.ErrStoreDown)
}

func TestTaskLogger_Run_FinishWriteFailureFailsTask(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("scrape_boardgames_links")
	store.SetStatusError(domain.TaskStatusCompleted, testutils.ErrStoreDown)

	err := tl.Run(context.Background(), func(ctx context.Context, task *ledger.TaskLogger) error {
		return task.Log(ctx, "Processed page 1 with 100 boardgames")
	})
	require.ErrorIs(t, err, testutils.ErrStoreDown)

	task, err := store.GetByID(context.Background(), tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	require.NotNil(t, task.Message)
	assert.Contains(t, *task.Message, testutils.ErrStoreDown.Error())
	assert.Equal(t, 1, failedLines(store.Texts(task.ID)))
}

func TestLedger_UpdateProgress_ConcurrentTerminalWritersOneWins(t *testing.T) {
	t.Parallel()

	l, _ := newLedger(t)
	ctx := context.Background()

	for range 50 {
		task, err := l.CreateTask(ctx, "scrape_boardgames_info", domain.TaskStatusRunning)
		require.NoError(t, err)

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i, status := range []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusFailed} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = l.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{Status: &status})
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
		}
		assert.Equal(t, 1, succeeded)
	}
}

func TestTaskLogger_Finish_WithMessage(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	tl := l.NewTaskLogger("clean_scrape_boardgames_info")
	ctx := context.Background()

	_, err := tl.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, tl.Finish(ctx, "Boardgame cleaning complete"))
	require.NoError(t, tl.Finish(ctx, "again"))

	task, err := store.GetByID(ctx, tl.TaskID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, []string{"Boardgame cleaning complete"}, store.Texts(task.ID))
}

func TestTaskLogger_ResumeExistingTask(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	ctx := context.Background()

	first := l.NewTaskLogger("scrape_boardgames_info")
	require.NoError(t, first.Run(ctx, func(ctx context.Context, task *ledger.TaskLogger) error {
		return task.Log(ctx, "first run")
	}))

	resumed := l.NewTaskLogger("scrape_boardgames_info", ledger.WithTaskID(first.TaskID()))
	task, err := resumed.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TaskID(), task.ID)
	assert.Equal(t, domain.TaskStatusRunning, task.Status)
	assert.NotNil(t, task.ETA)

	require.NoError(t, resumed.Log(ctx, "second run"))
	assert.Equal(t, []string{"first run", "second run"}, store.Texts(task.ID))
}

func TestTaskLogger_LogBeforeStart(t *testing.T) {
	t.Parallel()

	l, _ := newLedger(t)
	tl := l.NewTaskLogger("x")

	require.Error(t, tl.Log(context.Background(), "too early"))
	require.NoError(t, tl.Fail(context.Background(), "nothing to fail"))
}

func TestLedger_UpdateProgress_RejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	l, _ := newLedger(t)
	ctx := context.Background()

	task, err := l.CreateTask(ctx, "x", domain.TaskStatusPending)
	require.NoError(t, err)

	completed := domain.TaskStatusCompleted
	err = l.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{Status: &completed})
	require.ErrorIs(t, err, ledger.ErrInvalidTransition)

	running := domain.TaskStatusRunning
	require.NoError(t, l.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{Status: &running}))
}

func TestLedger_EmptyUpdateWritesNothing(t *testing.T) {
	t.Parallel()

	l, store := newLedger(t)
	ctx := context.Background()

	task, err := l.CreateTask(ctx, "x", domain.TaskStatusRunning)
	require.NoError(t, err)

	require.NoError(t, l.UpdateProgress(ctx, task.ID, domain.ProgressUpdate{}))
	assert.Equal(t, 0, store.Updates())
}
