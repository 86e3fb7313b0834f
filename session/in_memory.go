package session

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is a volatile Store and Directory keeping turns and profiles
// in process local maps. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers.
type InMemoryStore struct {
	mu       sync.RWMutex
	turns    map[string][]Turn // userID -> turns in insertion order
	profiles map[string]Profile
	open     bool // when true, unknown users get an empty profile
}

// NewInMemoryStore constructs an empty in‑memory store. By default every
// user id is accepted; call AddProfile to switch to a closed directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: map[string][]Turn{}, profiles: map[string]Profile{}, open: true}
}

// AddProfile registers a known user. Once any profile is registered the
// directory rejects unknown ids with ErrInvalidUser.
func (s *InMemoryStore) AddProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Registered = true
	s.profiles[p.UserID] = p
	s.open = false
}

// Profile implements Directory.
func (s *InMemoryStore) Profile(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	if s.open && userID != "" {
		return Profile{UserID: userID}, nil
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrInvalidUser, userID)
}

// AppendTurn implements Store.
func (s *InMemoryStore) AppendTurn(_ context.Context, t Turn) error {
	if t.UserID == "" {
		return fmt.Errorf("append turn: missing user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[t.UserID] = append(s.turns[t.UserID], t)
	return nil
}

// RecentTurns implements Store. The returned slice is a copy.
func (s *InMemoryStore) RecentTurns(_ context.Context, userID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.turns[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Turn, len(all))
	copy(out, all)
	return out, nil
}
