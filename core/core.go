package core

import "github.com/google/uuid"

// NewID generates a new unique identifier used for invocation correlation,
// journal entries and conversation turns.
func NewID() string { return uuid.NewString() }
