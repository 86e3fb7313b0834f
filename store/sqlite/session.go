package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/session"
)

// AppendTurn implements session.Store.
func (s *Store) AppendTurn(ctx context.Context, t session.Turn) error {
	if t.UserID == "" {
		return fmt.Errorf("append turn: missing user id")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Role, t.Content, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns implements session.Store.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]session.Turn, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, created_at FROM (
			SELECT seq, id, user_id, role, content, created_at
			FROM turns WHERE user_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	out := []session.Turn{}
	for rows.Next() {
		var (
			t       session.Turn
			created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt = parseTimeOrZero(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PutProfile registers or updates a user. Once the users table holds any row
// the directory rejects unknown ids with session.ErrInvalidUser.
func (s *Store) PutProfile(ctx context.Context, p session.Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("put profile: missing user id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, display_name, timezone) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name, timezone = excluded.timezone
	`, p.UserID, p.DisplayName, p.Timezone)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// Profile implements session.Directory.
func (s *Store) Profile(ctx context.Context, userID string) (session.Profile, error) {
	if userID == "" {
		return session.Profile{}, fmt.Errorf("%w: %q", session.ErrInvalidUser, userID)
	}
	p := session.Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT display_name, timezone FROM users WHERE user_id = ?`, userID).
		Scan(&p.DisplayName, &p.Timezone)
	if err == nil {
		p.Registered = true
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return session.Profile{}, fmt.Errorf("lookup profile: %w", err)
	}

	var registered int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&registered); err != nil {
		return session.Profile{}, fmt.Errorf("lookup profile: %w", err)
	}
	if registered == 0 {
		return p, nil
	}
	return session.Profile{}, fmt.Errorf("%w: %q", session.ErrInvalidUser, userID)
}
