package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/task"
)

const taskColumns = `id, user_id, content, description, due_date, priority, status, tags,
	estimated_minutes, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (task.Task, error) {
	var (
		t                task.Task
		due, completed   sql.NullString
		tags             string
		created, updated string
		estimated        sql.NullInt64
		priority, status string
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.Content, &t.Description, &due, &priority, &status, &tags,
		&estimated, &created, &updated, &completed); err != nil {
		return task.Task{}, err
	}
	t.Priority = task.Priority(priority)
	t.Status = task.Status(status)
	t.DueDate = parseTimePtr(due)
	t.CompletedAt = parseTimePtr(completed)
	t.CreatedAt = parseTimeOrZero(created)
	t.UpdatedAt = parseTimeOrZero(updated)
	if estimated.Valid {
		m := int(estimated.Int64)
		t.EstimatedMinutes = &m
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil || t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func minutesArg(m *int) any {
	if m == nil {
		return nil
	}
	return *m
}

// Create implements task.Store.
func (s *Store) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
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
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, content, description, due_date, priority, status, tags,
			estimated_minutes, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.UserID, t.Content, t.Description, formatTimePtr(t.DueDate), string(t.Priority), string(t.Status),
		encodeTags(t.Tags), minutesArg(t.EstimatedMinutes), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		formatTimePtr(t.CompletedAt))
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	return t.Clone(), nil
}

// Get implements task.Store.
func (s *Store) Get(ctx context.Context, userID string, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, id)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// List implements task.Store. Predicates, ordering and the limit are pushed
// down into SQL; tag overlap uses the json_each table function.
func (s *Store) List(ctx context.Context, userID string, f task.Filter) ([]task.Task, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if len(f.Tags) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.Tags)), ",")
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tasks.tags) WHERE json_each.value IN ("+marks+"))")
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}
	if f.DueBefore != nil {
		where = append(where, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, formatTime(*f.DueBefore))
	}
	if f.DueAfter != nil {
		where = append(where, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, formatTime(*f.DueAfter))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderClause(f.OrderBy)
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func orderClause(o task.OrderBy) string {
	switch o {
	case task.OrderByDueDate:
		return "due_date IS NULL, due_date, id"
	case task.OrderByPriority:
		return "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, id"
	default:
		return "created_at, id"
	}
}

// Update implements task.Store.
func (s *Store) Update(ctx context.Context, t task.Task) (task.Task, error) {
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET content = ?, description = ?, due_date = ?, priority = ?, status = ?, tags = ?,
			estimated_minutes = ?, updated_at = ?, completed_at = ?
		WHERE user_id = ? AND id = ?
	`, t.Content, t.Description, formatTimePtr(t.DueDate), string(t.Priority), string(t.Status), encodeTags(t.Tags),
		minutesArg(t.EstimatedMinutes), formatTime(t.UpdatedAt), formatTimePtr(t.CompletedAt), t.UserID, t.ID)
	if err != nil {
		return task.Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n == 0 {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, t.ID)
	}
	return t.Clone(), nil
}

// Delete implements task.Store.
func (s *Store) Delete(ctx context.Context, userID string, id int64) (task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: id %d", task.ErrNotFound, id)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("delete task %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return task.Task{}, fmt.Errorf("delete task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return task.Task{}, fmt.Errorf("delete task %d: %w", id, err)
	}
	return t, nil
}

// Restore implements task.Store.
func (s *Store) Restore(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, content, description, due_date, priority, status, tags,
			estimated_minutes, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			description = excluded.description,
			due_date = excluded.due_date,
			priority = excluded.priority,
			status = excluded.status,
			tags = excluded.tags,
			estimated_minutes = excluded.estimated_minutes,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
		WHERE tasks.user_id = excluded.user_id
	`, t.ID, t.UserID, t.Content, t.Description, formatTimePtr(t.DueDate), string(t.Priority), string(t.Status),
		encodeTags(t.Tags), minutesArg(t.EstimatedMinutes), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		formatTimePtr(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("restore task %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore task %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", task.ErrConflict, t.ID)
	}
	return nil
}
