package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/task"
)

// RunTaskStoreSuite exercises the task.Store contract. newStore must return
// an empty store for every call.
func RunTaskStoreSuite(t *testing.T, newStore func(t *testing.T) task.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	t.Run("CreateGet", func(t *testing.T) {
		s := newStore(t)
		est := 30
		in := NewTaskBuilder("u1", "buy groceries").Tags("home", "errand").Due(base.Add(24 * time.Hour)).Created(base).Build()
		in.EstimatedMinutes = &est
		in.Description = "milk and eggs"

		created, err := s.Create(ctx, in)
		require.NoError(t, err)
		assert.Positive(t, created.ID)

		got, err := s.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "buy groceries", got.Content)
		assert.Equal(t, "milk and eggs", got.Description)
		assert.Equal(t, []string{"home", "errand"}, got.Tags)
		require.NotNil(t, got.DueDate)
		assert.True(t, got.DueDate.Equal(base.Add(24*time.Hour)))
		require.NotNil(t, got.EstimatedMinutes)
		assert.Equal(t, 30, *got.EstimatedMinutes)

		second, err := s.Create(ctx, NewTaskBuilder("u1", "second").Build())
		require.NoError(t, err)
		assert.Greater(t, second.ID, created.ID)
	})

	t.Run("UserIsolation", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, NewTaskBuilder("u1", "mine").Build())
		require.NoError(t, err)

		_, err = s.Get(ctx, "u2", created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)
		_, err = s.Delete(ctx, "u2", created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)

		other, err := s.List(ctx, "u2", task.Filter{})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("CreateRejectsInvalid", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTaskBuilder("u1", "").Build())
		assert.ErrorIs(t, err, task.ErrInvalid)
	})

	t.Run("ListFilterOrderLimit", func(t *testing.T) {
		s := newStore(t)
		mk := func(b *TaskBuilder) task.Task {
			tk, err := s.Create(ctx, b.Build())
			require.NoError(t, err)
			return tk
		}
		a := mk(NewTaskBuilder("u1", "a").Priority(task.PriorityLow).Tags("home").Due(base.Add(48 * time.Hour)).Created(base))
		b := mk(NewTaskBuilder("u1", "b").Priority(task.PriorityUrgent).Tags("work").Created(base.Add(time.Minute)))
		c := mk(NewTaskBuilder("u1", "c").Priority(task.PriorityHigh).Status(task.StatusDone).Tags("work", "home").Due(base.Add(24 * time.Hour)).Created(base.Add(2 * time.Minute)))

		all, err := s.List(ctx, "u1", task.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, b.ID, c.ID}, ids(all))

		byTag, err := s.List(ctx, "u1", task.Filter{Tags: []string{"home", "garden"}})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, c.ID}, ids(byTag))

		before := base.Add(36 * time.Hour)
		ranged, err := s.List(ctx, "u1", task.Filter{DueBefore: &before})
		require.NoError(t, err)
		assert.Equal(t, []int64{c.ID}, ids(ranged))

		after := base.Add(36 * time.Hour)
		ranged, err = s.List(ctx, "u1", task.Filter{DueAfter: &after})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID}, ids(ranged))

		done, err := s.List(ctx, "u1", task.Filter{Status: task.StatusDone})
		require.NoError(t, err)
		assert.Equal(t, []int64{c.ID}, ids(done))

		urgent, err := s.List(ctx, "u1", task.Filter{Priority: task.PriorityUrgent})
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID}, ids(urgent))

		byDue, err := s.List(ctx, "u1", task.Filter{OrderBy: task.OrderByDueDate})
		require.NoError(t, err)
		assert.Equal(t, []int64{c.ID, a.ID, b.ID}, ids(byDue))

		byPrio, err := s.List(ctx, "u1", task.Filter{OrderBy: task.OrderByPriority, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID, c.ID}, ids(byPrio))
	})

	t.Run("UpdateDeleteRestore", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, NewTaskBuilder("u1", "draft").Created(base).Build())
		require.NoError(t, err)

		done := task.StatusDone
		patched := task.Patch{Status: &done}.Apply(created, base.Add(time.Hour))
		updated, err := s.Update(ctx, patched)
		require.NoError(t, err)
		assert.Equal(t, task.StatusDone, updated.Status)

		got, err := s.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(base.Add(time.Hour)))

		missing := created
		missing.ID = created.ID + 100
		_, err = s.Update(ctx, missing)
		assert.ErrorIs(t, err, task.ErrNotFound)

		removed, err := s.Delete(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		_, err = s.Get(ctx, "u1", created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)

		require.NoError(t, s.Restore(ctx, removed))
		back, err := s.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "draft", back.Content)

		// Restore overwrites an existing row too.
		back.Content = "renamed"
		require.NoError(t, s.Restore(ctx, back))
		got, err = s.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Content)

		// Another user's row is never overwritten.
		foreign := back
		foreign.UserID = "u2"
		foreign.Content = "hijacked"
		assert.ErrorIs(t, s.Restore(ctx, foreign), task.ErrConflict)
		got, err = s.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Content)
		_, err = s.Get(ctx, "u2", created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)

		// Ids stay unique after a restore.
		next, err := s.Create(ctx, NewTaskBuilder("u1", "next").Build())
		require.NoError(t, err)
		assert.Greater(t, next.ID, created.ID)
	})

	t.Run("Journal", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PopJournal(ctx, "u1")
		assert.True(t, errors.Is(err, task.ErrEmptyJournal))

		first := task.JournalEntry{ID: core.NewID(), UserID: "u1", Action: task.ActionCreate, After: []task.Task{{ID: 1, Content: "a"}}, CreatedAt: base}
		second := task.JournalEntry{ID: core.NewID(), UserID: "u1", Action: task.ActionDelete, Before: []task.Task{{ID: 2, Content: "b"}}, CreatedAt: base.Add(time.Second)}
		require.NoError(t, s.AppendJournal(ctx, first))
		require.NoError(t, s.AppendJournal(ctx, second))
		require.NoError(t, s.AppendJournal(ctx, task.JournalEntry{ID: core.NewID(), UserID: "u2", Action: task.ActionCreate, CreatedAt: base}))

		got, err := s.PopJournal(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, task.ActionDelete, got.Action)
		require.Len(t, got.Before, 1)
		assert.Equal(t, "b", got.Before[0].Content)

		got, err = s.PopJournal(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = s.PopJournal(ctx, "u1")
		assert.ErrorIs(t, err, task.ErrEmptyJournal)
	})
}

func ids(tasks []task.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
