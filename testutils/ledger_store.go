// Package testutils provides shared testing utilities across the application.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

// LedgerStore is an in-memory task and log store with the same semantics
// as the Postgres repositories.
type LedgerStore struct {
	mu       sync.Mutex
	nextID   int64
	tasks    map[int64]*domain.ScrapeTask
	logs     map[int64][]*domain.ScrapeLogLine
	updates  int
	writeErr error
	// statusErr fails updates that set a given status.
	statusErr map[domain.TaskStatus]error
}

// NewLedgerStore creates an empty store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		tasks: map[int64]*domain.ScrapeTask{},
		logs:  map[int64][]*domain.ScrapeLogLine{},
	}
}

// SetWriteError makes every subsequent progress update and log append fail with err.
func (s *LedgerStore) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetStatusError makes every subsequent update that sets status fail with err.
func (s *LedgerStore) SetStatusError(status domain.TaskStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr == nil {
		s.statusErr = map[domain.TaskStatus]error{}
	}
	s.statusErr[status] = err
}

// Updates returns the number of progress updates that reached the store.
func (s *LedgerStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Texts returns the log texts of a task in line order.
func (s *LedgerStore) Texts(taskID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.logs[taskID]))
	for _, l := range s.logs[taskID] {
		out = append(out, l.Text)
	}
	return out
}

// Seed stores task as is, assigning an id when it has none.
func (s *LedgerStore) Seed(task domain.ScrapeTask) *domain.ScrapeTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == 0 {
		s.nextID++
		task.ID = s.nextID
	} else if task.ID > s.nextID {
		s.nextID = task.ID
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
		task.LastUpdate = task.CreatedAt
	}
	s.tasks[task.ID] = &task
	copied := task
	return &copied
}

// Create implements ledger.TaskStore.
func (s *LedgerStore) Create(_ context.Context, name string, status domain.TaskStatus) (*domain.ScrapeTask, error) {
	return s.Seed(domain.ScrapeTask{Name: name, Status: status}), nil
}

// GetByID implements ledger.TaskStore.
func (s *LedgerStore) GetByID(_ context.Context, id int64) (*domain.ScrapeTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, database.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// GetByName implements ledger.TaskStore.
func (s *LedgerStore) GetByName(_ context.Context, name string) (*domain.ScrapeTask, error) {
	return s.latest(func(t *domain.ScrapeTask) bool { return t.Name == name })
}

// GetLatestCompletedByName implements ledger.TaskStore.
func (s *LedgerStore) GetLatestCompletedByName(_ context.Context, name string) (*domain.ScrapeTask, error) {
	return s.latest(func(t *domain.ScrapeTask) bool {
		return t.Name == name && t.Status == domain.TaskStatusCompleted
	})
}

func (s *LedgerStore) latest(match func(*domain.ScrapeTask) bool) (*domain.ScrapeTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.ScrapeTask
	for _, t := range s.tasks {
		if match(t) && (found == nil || t.ID > found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, database.ErrTaskNotFound
	}
	copied := *found
	return &copied, nil
}

// List implements ledger.TaskStore. Tasks are returned newest first.
func (s *LedgerStore) List(_ context.Context, status domain.TaskStatus, limit int) ([]*domain.ScrapeTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.ScrapeTask{}
	for id := s.nextID; id > 0; id-- {
		t, ok := s.tasks[id]
		if !ok || (status != domain.TaskStatusNone && t.Status != status) {
			continue
		}
		copied := *t
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// UpdateProgress implements ledger.TaskStore.
func (s *LedgerStore) UpdateProgress(_ context.Context, id int64, u domain.ProgressUpdate) error {
	if u.IsEmpty() {
		return nil
	}
	if err := u.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	if u.Status != nil && s.statusErr[*u.Status] != nil {
		return s.statusErr[*u.Status]
	}
	task, ok := s.tasks[id]
	if !ok {
		return database.ErrTaskNotFound
	}
	if u.Status != nil && !task.Status.CanTransition(*u.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, task.Status, *u.Status)
	}

	s.updates++
	if u.Progress != nil {
		task.Progress = *u.Progress
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.CurrentPage != nil {
		page := *u.CurrentPage
		task.CurrentPage = &page
	}
	if u.ItemsProcessed != nil {
		items := *u.ItemsProcessed
		task.ItemsProcessed = &items
	}
	if u.Message != nil {
		msg := *u.Message
		task.Message = &msg
	}
	task.LastUpdate = time.Now()
	return nil
}

// AppendLine implements ledger.LogStore.
func (s *LedgerStore) AppendLine(_ context.Context, taskID int64, text string) (*domain.ScrapeLogLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return nil, s.writeErr
	}
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, database.ErrTaskNotFound
	}

	task.LastLineNo++
	line := &domain.ScrapeLogLine{
		ID:        int64(len(s.logs[taskID]) + 1),
		TaskID:    taskID,
		LineNo:    task.LastLineNo,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.logs[taskID] = append(s.logs[taskID], line)
	copied := *line
	return &copied, nil
}

// GetRecent implements ledger.LogStore.
func (s *LedgerStore) GetRecent(_ context.Context, taskID int64, limit int) ([]*domain.ScrapeLogLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.logs[taskID]
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return append([]*domain.ScrapeLogLine{}, lines...), nil
}
