package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

func noop(context.Context) error { return nil }

func TestScheduler_Add(t *testing.T) {
	t.Parallel()

	s := New(logger.NewNop())

	require.NoError(t, s.Add(Job{Name: "links", Schedule: "0 3 * * *", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "clean", Schedule: "", Run: noop}))
	require.Error(t, s.Add(Job{Name: "info", Schedule: "every day", Run: noop}))
	require.ErrorIs(t, s.Add(Job{Name: "info", Schedule: "@daily"}), errMissingRun)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "links", entries[0].Name)
	assert.Equal(t, "0 3 * * *", entries[0].Schedule)
}

func TestScheduler_Add_ReplacesExisting(t *testing.T) {
	t.Parallel()

	s := New(logger.NewNop())
	require.NoError(t, s.Add(Job{Name: "links", Schedule: "0 3 * * *", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "links", Schedule: "@hourly", Run: noop}))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "@hourly", entries[0].Schedule)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_Trigger_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	s := New(logger.NewNop())

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	runs := 0

	job := Job{Name: "info", Schedule: "@daily", Run: func(context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
		return nil
	}}

	done := make(chan struct{})
	go func() {
		s.trigger(job)
		close(done)
	}()
	<-started

	s.trigger(job)
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first run did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.running)
}

func TestScheduler_Trigger_PassesStartContext(t *testing.T) {
	t.Parallel()

	s := New(logger.NewNop())
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "serve")
	s.Start(ctx)
	defer s.Stop(context.Background())

	var got any
	s.trigger(Job{Name: "clean", Run: func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	}})

	assert.Equal(t, "serve", got)
}
