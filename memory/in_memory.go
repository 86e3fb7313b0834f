package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/task"
)

// FailFunc lets tests inject store errors for specific rows. It is consulted
// before every mutation; a non-nil error aborts that mutation.
type FailFunc func(op string, userID string, id int64) error

// TaskStore is a naive process‑local task.Store.
//
// Concurrency: protected by RWMutex. IDs are allocated from a single counter
// shared by all users, mirroring an autoincrement column.
type TaskStore struct {
	mu      sync.RWMutex
	nextID  int64
	tasks   map[string]map[int64]task.Task // userID -> id -> task
	journal map[string][]task.JournalEntry // userID -> entries, oldest first
	now     func() time.Time
	fail    FailFunc
}

// Options configures a TaskStore.
type Options struct {
	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// Fail injects errors (tests only).
	Fail FailFunc
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore(optFns ...func(o *Options)) *TaskStore {
	opts := Options{Now: func() time.Time { return time.Now().UTC() }}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &TaskStore{
		tasks:   make(map[string]map[int64]task.Task),
		journal: make(map[string][]task.JournalEntry),
		now:     opts.Now,
		fail:    opts.Fail,
	}
}

func (s *TaskStore) check(op, userID string, id int64) error {
	if s.fail == nil {
		return nil
	}
	return s.fail(op, userID, id)
}

// Create implements task.Store.
func (s *TaskStore) Create(_ context.Context, t task.Task) (task.Task, error) {
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if err := s.check("create", t.UserID, 0); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t = t.Clone()
	t.ID = s.nextID
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	s.userTasksLocked(t.UserID)[t.ID] = t
	return t.Clone(), nil
}

// Get implements task.Store.
func (s *TaskStore) Get(_ context.Context, userID string, id int64) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[userID][id]
	if !ok {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, id)
	}
	return t.Clone(), nil
}

// List implements task.Store.
func (s *TaskStore) List(_ context.Context, userID string, f task.Filter) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.Task, 0, len(s.tasks[userID]))
	for _, t := range s.tasks[userID] {
		if f.Match(t) {
			out = append(out, t.Clone())
		}
	}
	task.Sort(out, f.OrderBy)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Update implements task.Store.
func (s *TaskStore) Update(_ context.Context, t task.Task) (task.Task, error) {
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if err := s.check("update", t.UserID, t.ID); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tasks[t.UserID]
	if _, ok := rows[t.ID]; !ok {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, t.ID)
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.now()
	}
	rows[t.ID] = t.Clone()
	return t.Clone(), nil
}

// Delete implements task.Store.
func (s *TaskStore) Delete(_ context.Context, userID string, id int64) (task.Task, error) {
	if err := s.check("delete", userID, id); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[userID][id]
	if !ok {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, id)
	}
	delete(s.tasks[userID], id)
	return t, nil
}

// Restore implements task.Store.
func (s *TaskStore) Restore(_ context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.check("restore", t.UserID, t.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, rows := range s.tasks {
		if _, ok := rows[t.ID]; ok && userID != t.UserID {
			return fmt.Errorf("%w: id %d", task.ErrConflict, t.ID)
		}
	}
	s.userTasksLocked(t.UserID)[t.ID] = t.Clone()
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
	return nil
}

// AppendJournal implements task.Store.
func (s *TaskStore) AppendJournal(_ context.Context, e task.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[e.UserID] = append(s.journal[e.UserID], e)
	return nil
}

// PopJournal implements task.Store.
func (s *TaskStore) PopJournal(_ context.Context, userID string) (task.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.journal[userID]
	if len(entries) == 0 {
		return task.JournalEntry{}, task.ErrEmptyJournal
	}
	last := entries[len(entries)-1]
	s.journal[userID] = entries[:len(entries)-1]
	return last, nil
}

// userTasksLocked returns the user's row map, creating it if needed; caller
// must hold the write lock.
func (s *TaskStore) userTasksLocked(userID string) map[int64]task.Task {
	rows, ok := s.tasks[userID]
	if !ok {
		rows = make(map[int64]task.Task)
		s.tasks[userID] = rows
	}
	return rows
}
