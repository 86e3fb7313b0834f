package task

import (
	"context"
	"time"
)

// Store persists tasks and the per-user action journal. All rows are keyed
// by user id plus row id; implementations must never return rows owned by a
// different user.
type Store interface {
	// Create inserts t, assigning a new ID. CreatedAt/UpdatedAt are stamped
	// when zero.
	Create(ctx context.Context, t Task) (Task, error)
	// Get returns a single task or ErrNotFound.
	Get(ctx context.Context, userID string, id int64) (Task, error)
	// List returns the user's tasks matching f, ordered and limited.
	List(ctx context.Context, userID string, f Filter) ([]Task, error)
	// Update replaces an existing row with t (matched by UserID and ID).
	Update(ctx context.Context, t Task) (Task, error)
	// Delete removes a task and returns the removed row.
	Delete(ctx context.Context, userID string, id int64) (Task, error)
	// Restore upserts t keeping its ID. Used to revert journaled actions.
	Restore(ctx context.Context, t Task) error

	// AppendJournal records a reversible action.
	AppendJournal(ctx context.Context, e JournalEntry) error
	// PopJournal removes and returns the user's newest journal entry or
	// ErrEmptyJournal.
	PopJournal(ctx context.Context, userID string) (JournalEntry, error)
}

// Action names a journaled mutation.
type Action string

// Journaled actions.
const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionBulkUpdate Action = "bulk_update"
)

// JournalEntry captures before and after images of the rows an action
// touched so it can be undone.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Before    []Task    `json:"before,omitempty"`
	After     []Task    `json:"after,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskIDs returns the ids of all rows touched by the entry.
func (e JournalEntry) TaskIDs() []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, group := range [][]Task{e.Before, e.After} {
		for _, t := range group {
			if !seen[t.ID] {
				seen[t.ID] = true
				ids = append(ids, t.ID)
			}
		}
	}
	return ids
}
