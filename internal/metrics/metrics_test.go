package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
)

func TestMetrics_TaskLifecycle(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	m.TaskStarted("scrape_boardgames_info")
	assert.InDelta(t, 1, testutil.ToFloat64(m.TasksRunning), 0)

	m.TaskFinished("scrape_boardgames_info", "completed", 3*time.Second)
	assert.InDelta(t, 0, testutil.ToFloat64(m.TasksRunning), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		m.TasksFinishedTotal.WithLabelValues("scrape_boardgames_info", "completed")), 0)
}

func TestMetrics_CleanOutcomes(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.CleanRow(metrics.OutcomeCleaned)
	m.CleanRow(metrics.OutcomeCleaned)
	m.CleanRow(metrics.OutcomeFailed)

	assert.InDelta(t, 2, testutil.ToFloat64(m.CleanRowsTotal.WithLabelValues(metrics.OutcomeCleaned)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CleanRowsTotal.WithLabelValues(metrics.OutcomeFailed)), 0)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.TaskStarted("x")
		m.TaskFinished("x", "failed", time.Second)
		m.LogLine()
		m.Navigation(metrics.NavigationOK)
		m.RawRow("boardgame_info")
		m.CleanRow(metrics.OutcomeSkipped)
	})
}
