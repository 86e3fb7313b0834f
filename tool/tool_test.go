package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/schema"
	"github.com/hupe1980/taskmesh/task"
)

// -------------------- Catalog Tests --------------------

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{
		"create_task", "list_tasks", "update_task", "delete_task", "check_deadline_risk",
		"score_priorities", "bulk_update_tasks", "generate_daily_brief", "undo_last_action",
		"ask_clarification",
	}, c.Names())

	for _, d := range c.List() {
		assert.NotEmpty(t, d.Description, d.Name)
		require.NotNil(t, d.Parameters, d.Name)
		assert.Equal(t, schema.Type{schema.TypeObject}, d.Parameters.Type, d.Name)
	}

	tools := c.ModelTools()
	require.Len(t, tools, 10)
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "create_task", tools[0].Function.Name)
	assert.Equal(t, []any{"title"}, tools[0].Function.Parameters["required"])

	_, ok := c.Lookup("create_task")
	assert.True(t, ok)
	_, ok = c.Lookup("fly_to_moon")
	assert.False(t, ok)
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog(Definition{Name: "a"}, Definition{Name: "a"})
	assert.Error(t, err)
	_, err = NewCatalog(Definition{})
	assert.Error(t, err)
}

func TestCatalog_Validate(t *testing.T) {
	c := DefaultCatalog()
	cases := []struct {
		name string
		args map[string]any
		ok   bool
	}{
		{"create_task", map[string]any{"title": "buy groceries"}, true},
		{"create_task", map[string]any{"title": "x", "due_date": "2026-10-20T09:30Z", "priority": "urgent"}, true},
		{"create_task", map[string]any{}, false},
		{"create_task", map[string]any{"title": "x", "priority": "extreme"}, false},
		{"create_task", map[string]any{"title": "x", "due_date": "next week"}, false},
		{"create_task", map[string]any{"title": "x", "estimated_minutes": 2000}, false},
		{"list_tasks", map[string]any{}, true},
		{"list_tasks", map[string]any{"limit": 0}, false},
		{"list_tasks", map[string]any{"order_by": "title"}, false},
		{"update_task", map[string]any{"task_id": 1, "status": "done"}, true},
		{"update_task", map[string]any{"status": "done"}, false},
		{"delete_task", map[string]any{"task_id": 0}, false},
		{"check_deadline_risk", map[string]any{"threshold_days": 366}, false},
		{"bulk_update_tasks", map[string]any{"updates": []any{map[string]any{"task_id": 1, "status": "done"}}}, true},
		{"bulk_update_tasks", map[string]any{"updates": []any{}}, false},
		{"bulk_update_tasks", map[string]any{"updates": []any{map[string]any{"status": "done"}}}, false},
		{"undo_last_action", map[string]any{}, true},
		{"undo_last_action", map[string]any{"steps": 2}, false},
		{"ask_clarification", map[string]any{"question": "Which one?", "options": []any{"a", "b"}}, true},
	}
	for _, tc := range cases {
		err := c.Validate(tc.name, tc.args)
		if tc.ok {
			assert.NoError(t, err, "%s %v", tc.name, tc.args)
		} else {
			assert.Error(t, err, "%s %v", tc.name, tc.args)
		}
	}
	assert.ErrorIs(t, c.Validate("nope", nil), ErrUnknownTool)
}

// -------------------- Decode & Dispatch Tests --------------------

type recorder struct{ got Operation }

func (r *recorder) record(op Operation) (any, error) { r.got = op; return op.Name(), nil }

func (r *recorder) CreateTask(_ context.Context, op CreateTask) (any, error) { return r.record(op) }
func (r *recorder) ListTasks(_ context.Context, op ListTasks) (any, error)   { return r.record(op) }
func (r *recorder) UpdateTask(_ context.Context, op UpdateTask) (any, error) { return r.record(op) }
func (r *recorder) DeleteTask(_ context.Context, op DeleteTask) (any, error) { return r.record(op) }
func (r *recorder) CheckDeadlineRisk(_ context.Context, op CheckDeadlineRisk) (any, error) {
	return r.record(op)
}
func (r *recorder) ScorePriorities(_ context.Context, op ScorePriorities) (any, error) {
	return r.record(op)
}
func (r *recorder) BulkUpdateTasks(_ context.Context, op BulkUpdateTasks) (any, error) {
	return r.record(op)
}
func (r *recorder) GenerateDailyBrief(_ context.Context, op GenerateDailyBrief) (any, error) {
	return r.record(op)
}
func (r *recorder) UndoLastAction(_ context.Context, op UndoLastAction) (any, error) {
	return r.record(op)
}
func (r *recorder) AskClarification(_ context.Context, op AskClarification) (any, error) {
	return r.record(op)
}

func TestDecode_EveryCatalogEntryDispatches(t *testing.T) {
	minimal := map[string]map[string]any{
		NameCreateTask:       {"title": "x"},
		NameUpdateTask:       {"task_id": 1},
		NameDeleteTask:       {"task_id": 1},
		NameBulkUpdateTasks:  {"updates": []any{map[string]any{"task_id": 1}}},
		NameAskClarification: {"question": "?"},
	}
	for _, name := range DefaultCatalog().Names() {
		op, err := Decode(name, minimal[name])
		require.NoError(t, err, name)
		r := &recorder{}
		out, err := op.Dispatch(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, name, out)
		assert.Equal(t, name, r.got.Name())
	}
}

func TestDecode_UnknownTool(t *testing.T) {
	_, err := Decode("launch_rockets", nil)
	assert.True(t, errors.Is(err, ErrUnknownTool))
	assert.Equal(t, "Unknown tool", err.Error())
}

func TestDecode_TypedFields(t *testing.T) {
	op, err := Decode(NameCreateTask, map[string]any{
		"title":             "buy groceries",
		"due_date":          "2026-10-20",
		"priority":          "high",
		"tags":              []any{"home"},
		"estimated_minutes": float64(30),
	})
	require.NoError(t, err)
	ct := op.(CreateTask)
	assert.Equal(t, "buy groceries", ct.Title)
	require.NotNil(t, ct.DueDate)
	assert.True(t, ct.DueDate.DateOnly)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), ct.DueDate.Time)
	assert.Equal(t, task.PriorityHigh, *ct.Priority)
	assert.Equal(t, 30, *ct.EstimatedMinutes)

	op, err = Decode(NameUpdateTask, map[string]any{"task_id": 7, "status": "done", "title": "renamed"})
	require.NoError(t, err)
	p := op.(UpdateTask).Patch()
	assert.Equal(t, []string{"content", "status"}, p.Fields())

	_, err = Decode(NameDeleteTask, map[string]any{"task_id": "seven"})
	assert.Error(t, err)
	_, err = Decode(NameDeleteTask, map[string]any{"task_id": 1, "extra": true})
	assert.Error(t, err)
}

func TestListTasksFilter(t *testing.T) {
	op, err := Decode(NameListTasks, map[string]any{"due_before": "2026-10-20", "due_after": "2026-10-18T08:00:00Z", "order_by": "priority"})
	require.NoError(t, err)
	f := op.(ListTasks).Filter()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, task.OrderByPriority, f.OrderBy)
	assert.Equal(t, time.Date(2026, 10, 20, 23, 59, 59, 999999999, time.UTC), *f.DueBefore)
	assert.Equal(t, time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC), *f.DueAfter)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, 7, CheckDeadlineRisk{}.Threshold())
	n := 3
	assert.Equal(t, 3, CheckDeadlineRisk{ThresholdDays: &n}.Threshold())
	assert.Equal(t, 10, ScorePriorities{}.Max())
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2026-10-20", "2026-10-20T09:30", "2026-10-20T09:30:15", "2026-10-20T09:30Z", "2026-10-20T09:30:00+02:00"} {
		_, err := ParseDate(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseDate("20.10.2026")
	assert.Error(t, err)

	d, err := ParseDate("2026-10-20T09:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 20, 7, 30, 0, 0, time.UTC), d.UTC())
}

// -------------------- Error Tests --------------------

func TestToolError(t *testing.T) {
	e := NewToolError("create_task", "boom", CodeExecution)
	assert.Equal(t, "tool error [EXECUTION_ERROR] in create_task: boom", e.Error())

	cause := errors.New("disk full")
	w := WrapError("create_task", CodeExecution, cause)
	assert.ErrorIs(t, w, cause)
	assert.Equal(t, "disk full", w.Message)

	plain := &ToolError{Tool: "x", Message: "m"}
	assert.Equal(t, "tool error in x: m", plain.Error())
}
