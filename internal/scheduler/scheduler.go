// Package scheduler runs the scrape and clean routines on cron schedules for `serve`.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

var errMissingRun = errors.New("job has no run func")

// Job is a named routine with a 5-field cron expression.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Entry describes a scheduled job.
type Entry struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
}

// Scheduler triggers jobs on their schedules. A job that is still running
// when its next trigger fires is skipped for that trigger.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	log    logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]cron.EntryID
	specs   map[string]string
	running map[string]bool
}

// New creates a scheduler using the standard 5-field cron format.
func New(log logger.Logger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		parser:  parser,
		log:     log,
		ctx:     context.Background(),
		entries: map[string]cron.EntryID{},
		specs:   map[string]string{},
		running: map[string]bool{},
	}
}

// Add schedules job. Jobs with an empty schedule are skipped.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.log.Info("Job not scheduled", logger.String("job", job.Name))
		return nil
	}
	if job.Run == nil {
		return fmt.Errorf("%s: %w", job.Name, errMissingRun)
	}

	schedule, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("failed to parse cron expression for %s: %w", job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.entries[job.Name]; exists {
		s.cron.Remove(id)
	}
	s.entries[job.Name] = s.cron.Schedule(schedule, cron.FuncJob(func() { s.trigger(job) }))
	s.specs[job.Name] = job.Schedule

	s.log.Info("Job scheduled",
		logger.String("job", job.Name),
		logger.String("schedule", job.Schedule),
		logger.String("next_run", schedule.Next(time.Now()).Format(time.RFC3339)),
	)
	return nil
}

// Start runs the cron loop. Triggered jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
}

// Stop stops triggering and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

// Entries lists the scheduled jobs with their next run time.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		out = append(out, Entry{Name: name, Schedule: s.specs[name], Next: s.cron.Entry(id).Next})
	}
	return out
}

// trigger runs job unless a previous run is still in progress.
func (s *Scheduler) trigger(job Job) {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		s.log.Warn("Skipping trigger, previous run still in progress", logger.String("job", job.Name))
		return
	}
	s.running[job.Name] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	start := time.Now()
	s.log.Info("Cron triggered job", logger.String("job", job.Name))
	if err := job.Run(ctx); err != nil {
		s.log.Error("Scheduled job failed",
			logger.String("job", job.Name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return
	}
	s.log.Info("Scheduled job finished",
		logger.String("job", job.Name),
		logger.Duration("elapsed", time.Since(start)),
	)
}
