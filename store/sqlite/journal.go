package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/task"
)

// AppendJournal implements task.Store.
func (s *Store) AppendJournal(ctx context.Context, e task.JournalEntry) error {
	before, err := json.Marshal(nonNil(e.Before))
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	after, err := json.Marshal(nonNil(e.After))
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal (id, user_id, action, before_rows, after_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, string(e.Action), string(before), string(after), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// PopJournal implements task.Store.
func (s *Store) PopJournal(ctx context.Context, userID string) (task.JournalEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.JournalEntry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		seq                   int64
		e                     task.JournalEntry
		action, before, after string
		created               string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT seq, id, user_id, action, before_rows, after_rows, created_at
		FROM journal WHERE user_id = ? ORDER BY seq DESC LIMIT 1
	`, userID).Scan(&seq, &e.ID, &e.UserID, &action, &before, &after, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return task.JournalEntry{}, task.ErrEmptyJournal
	}
	if err != nil {
		return task.JournalEntry{}, fmt.Errorf("pop journal: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM journal WHERE seq = ?`, seq); err != nil {
		return task.JournalEntry{}, fmt.Errorf("pop journal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return task.JournalEntry{}, fmt.Errorf("pop journal: %w", err)
	}

	e.Action = task.Action(action)
	e.CreatedAt = parseTimeOrZero(created)
	if err := json.Unmarshal([]byte(before), &e.Before); err != nil {
		return task.JournalEntry{}, fmt.Errorf("decode journal: %w", err)
	}
	if err := json.Unmarshal([]byte(after), &e.After); err != nil {
		return task.JournalEntry{}, fmt.Errorf("decode journal: %w", err)
	}
	return e, nil
}

func nonNil(ts []task.Task) []task.Task {
	if ts == nil {
		return []task.Task{}
	}
	return ts
}
