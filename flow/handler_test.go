package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/task"
	"github.com/hupe1980/taskmesh/tool"
)

func newHandler(t *testing.T, optFns ...func(o *memory.Options)) (*TaskHandler, *memory.TaskStore) {
	t.Helper()
	store := memory.NewTaskStore(append([]func(o *memory.Options){func(o *memory.Options) { o.Now = clock }}, optFns...)...)
	return NewTaskHandler(store, "u1", func(o *HandlerOptions) { o.Now = clock }), store
}

func ptr[T any](v T) *T { return &v }

func mustDate(t *testing.T, s string) *tool.Date {
	t.Helper()
	d, err := tool.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func create(t *testing.T, h *TaskHandler, op tool.CreateTask) task.Task {
	t.Helper()
	out, err := h.CreateTask(context.Background(), op)
	require.NoError(t, err)
	return out.(TaskOutput).Task
}

func TestTaskHandler_CreateDefaults(t *testing.T) {
	h, _ := newHandler(t)
	created := create(t, h, tool.CreateTask{Title: "buy groceries"})
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.StatusTodo, created.Status)
	assert.Equal(t, []string{}, created.Tags)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Nil(t, created.DueDate)

	created = create(t, h, tool.CreateTask{
		Title:    "taxes",
		Priority: ptr(task.PriorityUrgent),
		DueDate:  mustDate(t, "2026-10-20"),
		Tags:     []string{"home"},
	})
	assert.Equal(t, task.PriorityUrgent, created.Priority)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-10-20", created.DueDate.Format(time.DateOnly))
}

func TestTaskHandler_ListFilters(t *testing.T) {
	ctx := context.Background()
	h, _ := newHandler(t)
	create(t, h, tool.CreateTask{Title: "a", Tags: []string{"work"}, DueDate: mustDate(t, "2026-10-20")})
	create(t, h, tool.CreateTask{Title: "b", Tags: []string{"home"}, Priority: ptr(task.PriorityHigh)})
	create(t, h, tool.CreateTask{Title: "c", Tags: []string{"home", "work"}, DueDate: mustDate(t, "2026-10-25")})

	out, err := h.ListTasks(ctx, tool.ListTasks{Tags: []string{"home"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.(ListOutput).Count)

	out, err = h.ListTasks(ctx, tool.ListTasks{DueBefore: mustDate(t, "2026-10-20")})
	require.NoError(t, err)
	require.Equal(t, 1, out.(ListOutput).Count)
	assert.Equal(t, "a", out.(ListOutput).Tasks[0].Content)

	out, err = h.ListTasks(ctx, tool.ListTasks{OrderBy: ptr(task.OrderByPriority), Limit: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "b", out.(ListOutput).Tasks[0].Content)
}

func TestTaskHandler_UpdateAndUndo(t *testing.T) {
	ctx := context.Background()
	h, _ := newHandler(t)
	created := create(t, h, tool.CreateTask{Title: "call mom"})

	out, err := h.UpdateTask(ctx, tool.UpdateTask{TaskID: created.ID, Status: ptr(task.StatusDone), Title: ptr("call mum")})
	require.NoError(t, err)
	upd := out.(UpdateOutput)
	assert.Equal(t, []string{"title", "status"}, upd.UpdatedFields)
	assert.Equal(t, task.StatusDone, upd.Task.Status)
	require.NotNil(t, upd.Task.CompletedAt)

	out, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.NoError(t, err)
	undo := out.(UndoOutput)
	assert.Equal(t, task.ActionUpdate, undo.UndoneAction)
	assert.Equal(t, []int64{created.ID}, undo.TaskIDs)

	got, err := h.store.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "call mom", got.Content)
	assert.Equal(t, task.StatusTodo, got.Status)
	assert.Nil(t, got.CompletedAt)

	// The create is next on the journal.
	out, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.NoError(t, err)
	assert.Equal(t, task.ActionCreate, out.(UndoOutput).UndoneAction)
	_, err = h.store.Get(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	assert.ErrorIs(t, err, task.ErrEmptyJournal)
}

func TestTaskHandler_EmptyPatch(t *testing.T) {
	ctx := context.Background()
	h, store := newHandler(t)
	created := create(t, h, tool.CreateTask{Title: "a"})

	out, err := h.UpdateTask(ctx, tool.UpdateTask{TaskID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, out.(UpdateOutput).UpdatedFields)

	entry, err := store.PopJournal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, task.ActionCreate, entry.Action, "no update entry journaled")
}

func TestTaskHandler_DeleteAndUndoKeepsID(t *testing.T) {
	ctx := context.Background()
	h, _ := newHandler(t)
	created := create(t, h, tool.CreateTask{Title: "file taxes", Tags: []string{"admin"}})

	out, err := h.DeleteTask(ctx, tool.DeleteTask{TaskID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created.ID, out.(TaskOutput).TaskID)

	_, err = h.DeleteTask(ctx, tool.DeleteTask{TaskID: created.ID})
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.NoError(t, err)
	got, err := h.store.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "file taxes", got.Content)
	assert.Equal(t, []string{"admin"}, got.Tags)
}

func TestTaskHandler_UndoFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	var storeDown bool
	h, _ := newHandler(t, func(o *memory.Options) {
		o.Fail = func(op, _ string, _ int64) error {
			if op == "restore" && storeDown {
				return errors.New("store unavailable")
			}
			return nil
		}
	})
	created := create(t, h, tool.CreateTask{Title: "file taxes"})
	_, err := h.DeleteTask(ctx, tool.DeleteTask{TaskID: created.ID})
	require.NoError(t, err)

	storeDown = true
	_, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.Error(t, err)
	_, err = h.store.Get(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	storeDown = false
	out, err := h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.NoError(t, err)
	assert.Equal(t, task.ActionDelete, out.(UndoOutput).UndoneAction)
	got, err := h.store.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "file taxes", got.Content)
}

func TestTaskHandler_BulkPartialSuccess(t *testing.T) {
	ctx := context.Background()
	h, _ := newHandler(t, func(o *memory.Options) {
		o.Fail = func(op, _ string, id int64) error {
			if op == "update" && id == 2 {
				return errors.New("disk full")
			}
			return nil
		}
	})
	a := create(t, h, tool.CreateTask{Title: "a"})
	b := create(t, h, tool.CreateTask{Title: "b"})
	c := create(t, h, tool.CreateTask{Title: "c"})
	require.Equal(t, int64(2), b.ID)

	out, err := h.BulkUpdateTasks(ctx, tool.BulkUpdateTasks{Updates: []tool.BulkChange{
		{TaskID: a.ID, Status: ptr(task.StatusDone)},
		{TaskID: b.ID, Status: ptr(task.StatusDone)},
		{TaskID: 99, Priority: ptr(task.PriorityHigh)},
		{TaskID: c.ID, Priority: ptr(task.PriorityUrgent)},
	}})
	require.NoError(t, err)
	bulk := out.(BulkOutput)
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, 2, bulk.FailedCount)
	assert.Equal(t, []int64{a.ID, c.ID}, bulk.UpdatedIDs)
	require.Len(t, bulk.Errors, 2)
	assert.Equal(t, b.ID, bulk.Errors[0].TaskID)
	assert.Contains(t, bulk.Errors[0].Error, "disk full")
	assert.Equal(t, int64(99), bulk.Errors[1].TaskID)
	assert.Contains(t, bulk.Errors[1].Error, "task not found")

	// One undo reverts every successful change.
	out, err = h.UndoLastAction(ctx, tool.UndoLastAction{})
	require.NoError(t, err)
	assert.Equal(t, task.ActionBulkUpdate, out.(UndoOutput).UndoneAction)
	gotA, _ := h.store.Get(ctx, "u1", a.ID)
	gotC, _ := h.store.Get(ctx, "u1", c.ID)
	assert.Equal(t, task.StatusTodo, gotA.Status)
	assert.Equal(t, task.PriorityMedium, gotC.Priority)
}

func TestTaskHandler_BulkAllFailedJournalsNothing(t *testing.T) {
	ctx := context.Background()
	h, store := newHandler(t)
	out, err := h.BulkUpdateTasks(ctx, tool.BulkUpdateTasks{Updates: []tool.BulkChange{{TaskID: 5}}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.(BulkOutput).FailedCount)
	_, err = store.PopJournal(ctx, "u1")
	assert.ErrorIs(t, err, task.ErrEmptyJournal)
}

func TestTaskHandler_Analytics(t *testing.T) {
	ctx := context.Background()
	h, _ := newHandler(t)
	create(t, h, tool.CreateTask{Title: "soon", DueDate: mustDate(t, "2026-10-20")})
	create(t, h, tool.CreateTask{Title: "late", DueDate: mustDate(t, "2026-10-18"), Priority: ptr(task.PriorityUrgent)})
	create(t, h, tool.CreateTask{Title: "someday"})

	out, err := h.CheckDeadlineRisk(ctx, tool.CheckDeadlineRisk{})
	require.NoError(t, err)
	risk := out.(task.RiskReport)
	assert.Equal(t, 1, risk.AtRiskCount)
	assert.Equal(t, 1, risk.OverdueCount)
	assert.Equal(t, task.DefaultRiskThresholdDays, risk.ThresholdDays)

	out, err = h.ScorePriorities(ctx, tool.ScorePriorities{Limit: ptr(2)})
	require.NoError(t, err)
	scores := out.(ScoreOutput)
	assert.Equal(t, 2, scores.Count)
	assert.Equal(t, "late", scores.Scores[0].Content)

	out, err = h.GenerateDailyBrief(ctx, tool.GenerateDailyBrief{})
	require.NoError(t, err)
	brief := out.(task.Brief)
	assert.Equal(t, "2026-10-19", brief.Date)
	assert.Len(t, brief.Overdue, 1)
	assert.Equal(t, 3, brief.OpenCount)

	out, err = h.GenerateDailyBrief(ctx, tool.GenerateDailyBrief{Date: mustDate(t, "2026-10-20")})
	require.NoError(t, err)
	assert.Len(t, out.(task.Brief).DueToday, 1)
}

func TestTaskHandler_AskClarification(t *testing.T) {
	h, _ := newHandler(t)
	out, err := h.AskClarification(context.Background(), tool.AskClarification{Question: "Which one?"})
	require.NoError(t, err)
	assert.Equal(t, ClarificationOutput{Question: "Which one?", Options: []string{}}, out)
}
