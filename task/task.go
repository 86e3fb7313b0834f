// Package task defines the task domain model, the Store collaborator the
// orchestrator executes operations against, and pure computations over
// fetched rows (deadline risk, priority scoring, daily briefs).
package task

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Priority of a task.
type Priority string

// Known priorities, lowest first.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists all priorities, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Weight returns the numeric weight used for ordering and scoring.
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return p.Weight() > 0 }

// Status of a task.
type Status string

// Known statuses.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists all statuses.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound     = errors.New("task not found")
	ErrInvalid      = errors.New("invalid task")
	ErrEmptyJournal = errors.New("nothing to undo")
	// ErrConflict reports a restore of an id owned by another user.
	ErrConflict = errors.New("task id belongs to another user")
)

// Task is a single to-do item owned by a user. JSON keys use the store's
// native column names.
type Task struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	Content          string     `json:"content"`
	Description      string     `json:"description,omitempty"`
	DueDate          *time.Time `json:"due_date"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	Tags             []string   `json:"tags"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Open reports whether the task still needs work.
func (t Task) Open() bool { return t.Status != StatusDone }

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Tags = slices.Clone(t.Tags)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.EstimatedMinutes != nil {
		m := *t.EstimatedMinutes
		c.EstimatedMinutes = &m
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return c
}

// Validate checks the invariants every stored task must satisfy.
func (t Task) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalid)
	}
	if t.Content == "" {
		return fmt.Errorf("%w: empty title", ErrInvalid)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, t.Status)
	}
	return nil
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Content          *string
	Description      *string
	DueDate          *time.Time
	Priority         *Priority
	Status           *Status
	Tags             []string
	EstimatedMinutes *int
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return len(p.Fields()) == 0 }

// Fields returns the store-native names of the fields the patch sets.
func (p Patch) Fields() []string {
	var f []string
	if p.Content != nil {
		f = append(f, "content")
	}
	if p.Description != nil {
		f = append(f, "description")
	}
	if p.DueDate != nil {
		f = append(f, "due_date")
	}
	if p.Priority != nil {
		f = append(f, "priority")
	}
	if p.Status != nil {
		f = append(f, "status")
	}
	if p.Tags != nil {
		f = append(f, "tags")
	}
	if p.EstimatedMinutes != nil {
		f = append(f, "estimated_minutes")
	}
	return f
}

// Apply returns a copy of t with the patch applied at time now. Moving a
// task to done stamps CompletedAt; moving it out of done clears it.
func (p Patch) Apply(t Task, now time.Time) Task {
	out := t.Clone()
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.DueDate != nil {
		d := *p.DueDate
		out.DueDate = &d
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Status != nil {
		if *p.Status == StatusDone && out.Status != StatusDone {
			c := now
			out.CompletedAt = &c
		}
		if *p.Status != StatusDone {
			out.CompletedAt = nil
		}
		out.Status = *p.Status
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(p.Tags)
	}
	if p.EstimatedMinutes != nil {
		m := *p.EstimatedMinutes
		out.EstimatedMinutes = &m
	}
	out.UpdatedAt = now
	return out
}

// OrderBy selects the sort key for List.
type OrderBy string

// Supported orderings.
const (
	OrderByCreatedAt OrderBy = "created_at"
	OrderByDueDate   OrderBy = "due_date"
	OrderByPriority  OrderBy = "priority"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status    Status
	Priority  Priority
	Tags      []string   // set overlap: any shared tag matches
	DueBefore *time.Time // inclusive
	DueAfter  *time.Time // inclusive
	OrderBy   OrderBy
	Limit     int
}

// Match reports whether t satisfies the filter predicates.
func (f Filter) Match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if len(f.Tags) > 0 && !overlaps(f.Tags, t.Tags) {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueAfter)) {
		return false
	}
	return true
}

// Sort orders tasks in place according to o. Due dates sort ascending with
// undated tasks last, priorities descending, creation ascending. Ties break
// on id.
func Sort(tasks []Task, o OrderBy) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		switch o {
		case OrderByDueDate:
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return 1
			case a.DueDate != nil && b.DueDate == nil:
				return -1
			case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Compare(*b.DueDate)
			}
		case OrderByPriority:
			if d := b.Priority.Weight() - a.Priority.Weight(); d != 0 {
				return d
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Compare(b.CreatedAt)
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
