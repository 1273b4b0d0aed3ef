// Package metrics provides Prometheus metrics for the scrape and clean pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all pipeline metrics.
	Namespace = "bgg"

	// Subsystem is the subsystem for pipeline metrics.
	Subsystem = "pipeline"
)

// Clean outcomes.
const (
	OutcomeCleaned = "cleaned"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Navigation outcomes.
const (
	NavigationOK      = "ok"
	NavigationRetried = "retried"
	NavigationFailed  = "failed"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	TasksStartedTotal   *prometheus.CounterVec
	TasksFinishedTotal  *prometheus.CounterVec
	TaskDurationSeconds *prometheus.HistogramVec
	TasksRunning        prometheus.Gauge
	LogLinesTotal       prometheus.Counter

	NavigationsTotal *prometheus.CounterVec
	RawRowsTotal     *prometheus.CounterVec
	CleanRowsTotal   *prometheus.CounterVec
}

// New creates and registers the pipeline metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initTaskMetrics(factory)
	m.initScrapeMetrics(factory)

	return m
}

func (m *Metrics) initTaskMetrics(factory promauto.Factory) {
	m.TasksStartedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "tasks_started_total",
			Help:      "Total number of tasks started or resumed",
		},
		[]string{"task"},
	)

	m.TasksFinishedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "tasks_finished_total",
			Help:      "Total number of tasks reaching a terminal status",
		},
		[]string{"task", "status"},
	)

	m.TaskDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "task_duration_seconds",
			Help:      "Wall time of a task run in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2h
		},
		[]string{"task"},
	)

	m.TasksRunning = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "tasks_running",
			Help:      "Number of tasks currently running in this process",
		},
	)

	m.LogLinesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "log_lines_total",
			Help:      "Total number of task log lines appended",
		},
	)
}

func (m *Metrics) initScrapeMetrics(factory promauto.Factory) {
	m.NavigationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "navigations_total",
			Help:      "Page navigations by outcome",
		},
		[]string{"outcome"},
	)

	m.RawRowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "raw_rows_total",
			Help:      "Raw rows written by source table",
		},
		[]string{"source_table"},
	)

	m.CleanRowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "clean_rows_total",
			Help:      "Raw rows handled by the cleaner by outcome",
		},
		[]string{"outcome"},
	)
}

// TaskStarted records a task entering running.
func (m *Metrics) TaskStarted(task string) {
	if m == nil {
		return
	}
	m.TasksStartedTotal.WithLabelValues(task).Inc()
	m.TasksRunning.Inc()
}

// TaskFinished records a terminal status and the run duration.
func (m *Metrics) TaskFinished(task, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TasksFinishedTotal.WithLabelValues(task, status).Inc()
	m.TaskDurationSeconds.WithLabelValues(task).Observe(elapsed.Seconds())
	m.TasksRunning.Dec()
}

// LogLine records an appended log line.
func (m *Metrics) LogLine() {
	if m == nil {
		return
	}
	m.LogLinesTotal.Inc()
}

// Navigation records a navigation attempt outcome.
func (m *Metrics) Navigation(outcome string) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(outcome).Inc()
}

// RawRow records a raw row write.
func (m *Metrics) RawRow(sourceTable string) {
	if m == nil {
		return
	}
	m.RawRowsTotal.WithLabelValues(sourceTable).Inc()
}

// CleanRow records the cleaner outcome for one raw row.
func (m *Metrics) CleanRow(outcome string) {
	if m == nil {
		return
	}
	m.CleanRowsTotal.WithLabelValues(outcome).Inc()
}
