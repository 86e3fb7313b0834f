package session

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// ErrInvalidUser is returned when a user id is unknown to the Directory.
var ErrInvalidUser = errors.New("invalid user")

// Turn is one persisted conversation message. Turns are append-only.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // core.RoleUser or core.RoleAssistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates a turn stamped with a fresh id and the current time.
func NewTurn(userID, role, content string) Turn {
	return Turn{ID: core.NewID(), UserID: userID, Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

// ToContent converts the turn into model content.
func (t Turn) ToContent() core.Content {
	return core.NewTextContent(t.Role, t.Content)
}

// Store persists conversation turns.
type Store interface {
	// AppendTurn inserts a turn.
	AppendTurn(ctx context.Context, t Turn) error
	// RecentTurns returns at most limit of the user's newest turns ordered
	// oldest first.
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// Profile carries user details used to personalize the conversation.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	// Registered is false for profiles synthesized by an open directory.
	Registered bool `json:"registered"`
}

// Directory resolves verified user ids to profiles. Unknown ids yield
// ErrInvalidUser.
type Directory interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}
