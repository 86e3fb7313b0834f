package testutil

import (
	"time"

	"github.com/hupe1980/taskmesh/task"
)

// TaskBuilder helps construct tasks with fluent chaining for tests.
// Example:
//
//	tk := NewTaskBuilder("u1", "buy milk").Priority(task.PriorityHigh).DueIn(now, 24*time.Hour).Build()
type TaskBuilder struct {
	t task.Task
}

// NewTaskBuilder creates a todo task of medium priority.
func NewTaskBuilder(userID, title string) *TaskBuilder {
	return &TaskBuilder{t: task.Task{
		UserID:   userID,
		Content:  title,
		Priority: task.PriorityMedium,
		Status:   task.StatusTodo,
		Tags:     []string{},
	}}
}

// ID sets the task id (chainable).
func (b *TaskBuilder) ID(id int64) *TaskBuilder { b.t.ID = id; return b }

// Priority sets the priority (chainable).
func (b *TaskBuilder) Priority(p task.Priority) *TaskBuilder { b.t.Priority = p; return b }

// Status sets the status (chainable).
func (b *TaskBuilder) Status(s task.Status) *TaskBuilder { b.t.Status = s; return b }

// Tags replaces the tag set (chainable).
func (b *TaskBuilder) Tags(tags ...string) *TaskBuilder { b.t.Tags = tags; return b }

// Due sets an absolute due date (chainable).
func (b *TaskBuilder) Due(d time.Time) *TaskBuilder { b.t.DueDate = &d; return b }

// DueIn sets the due date relative to now (chainable).
func (b *TaskBuilder) DueIn(now time.Time, d time.Duration) *TaskBuilder {
	return b.Due(now.Add(d))
}

// Created sets the creation timestamp (chainable).
func (b *TaskBuilder) Created(at time.Time) *TaskBuilder {
	b.t.CreatedAt = at
	b.t.UpdatedAt = at
	return b
}

// Build returns a copy of the task.
func (b *TaskBuilder) Build() task.Task { return b.t.Clone() }
