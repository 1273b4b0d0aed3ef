// Package domain provides domain models used across the pipeline.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a status change breaks the task state machine.
var ErrInvalidTransition = errors.New("invalid task status transition")

// TaskStatus is the lifecycle state of a scrape task.
type TaskStatus string

// Task statuses. TaskStatusNone is the zero value and is never persisted.
const (
	TaskStatusNone      TaskStatus = ""
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusNone:      {TaskStatusPending, TaskStatusRunning},
	TaskStatusPending:   {TaskStatusRunning, TaskStatusFailed},
	TaskStatusRunning:   {TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed},
	TaskStatusCompleted: {TaskStatusRunning},
	TaskStatusFailed:    {TaskStatusRunning},
}

// ParseTaskStatus converts s into a persisted TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if status == TaskStatusNone || !status.Valid() {
		return TaskStatusNone, fmt.Errorf("invalid task status %q", s)
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether the task run has ended.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition reports whether a task in status s may move to next.
// Terminal statuses only allow an explicit resume back to running.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// persistedStatuses lists the statuses a stored task can have, in a fixed order.
var persistedStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusRunning,
	TaskStatusCompleted,
	TaskStatusFailed,
}

// AllowedFrom returns the stored statuses from which a task may move to s.
func (s TaskStatus) AllowedFrom() []TaskStatus {
	out := make([]TaskStatus, 0, len(persistedStatuses))
	for _, from := range persistedStatuses {
		if from.CanTransition(s) {
			out = append(out, from)
		}
	}
	return out
}

func (s TaskStatus) String() string {
	if s == TaskStatusNone {
		return "none"
	}
	return string(s)
}

// ScrapeTask is one logical scrape (or clean) run.
type ScrapeTask struct {
	ID             int64      `db:"id"              json:"id"`
	Name           string     `db:"name"            json:"name"`
	Status         TaskStatus `db:"status"          json:"status"`
	Progress       float64    `db:"progress"        json:"progress"`
	CurrentPage    *int       `db:"current_page"    json:"current_page,omitempty"`
	ItemsProcessed *int       `db:"items_processed" json:"items_processed,omitempty"`
	LastLineNo     int        `db:"last_line_no"    json:"last_line_no"`
	Message        *string    `db:"message"         json:"message,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	LastUpdate     time.Time  `db:"last_update"     json:"last_update"`

	// ETA is derived on read while the task is running.
	ETA *string `db:"-" json:"eta,omitempty"`
}

// ScrapeLogLine is one append-only log entry of a task.
type ScrapeLogLine struct {
	ID        int64     `db:"id"         json:"id"`
	TaskID    int64     `db:"task_id"    json:"task_id"`
	LineNo    int       `db:"line_no"    json:"line_no"`
	Text      string    `db:"text"       json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProgressUpdate carries the optional fields of a sparse task update.
// Nil fields are left untouched.
type ProgressUpdate struct {
	Progress       *float64
	Status         *TaskStatus
	CurrentPage    *int
	ItemsProcessed *int
	Message        *string
}

// IsEmpty reports whether no field is set.
func (u ProgressUpdate) IsEmpty() bool {
	return u.Progress == nil && u.Status == nil && u.CurrentPage == nil &&
		u.ItemsProcessed == nil && u.Message == nil
}

// Validate rejects unknown statuses and progress outside [0,1].
func (u ProgressUpdate) Validate() error {
	if u.Progress != nil && (*u.Progress < 0 || *u.Progress > 1) {
		return fmt.Errorf("progress %v out of range [0,1]", *u.Progress)
	}
	if u.Status != nil && (*u.Status == TaskStatusNone || !u.Status.Valid()) {
		return fmt.Errorf("invalid task status %q", string(*u.Status))
	}
	return nil
}
