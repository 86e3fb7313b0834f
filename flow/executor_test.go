package flow

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/tool"
)

func newExecutor(optFns ...func(o *ExecutorOptions)) *Executor {
	store := memory.NewTaskStore(func(o *memory.Options) { o.Now = clock })
	return NewExecutor(tool.DefaultCatalog(), TaskHandlers(store, func(o *HandlerOptions) { o.Now = clock }), optFns...)
}

func TestExecutor_Failures(t *testing.T) {
	e := newExecutor()
	ctx := context.Background()

	cases := []struct {
		name string
		inv  Invocation
		code string
		msg  string
	}{
		{"unknown tool", Invocation{ID: "1", Name: "launch_rocket", Arguments: `{}`}, tool.CodeUnknown, "Unknown tool"},
		{"bad json", Invocation{ID: "2", Name: tool.NameCreateTask, Arguments: `{"title":`}, tool.CodeParse, "unmarshal"},
		{"schema violation", Invocation{ID: "3", Name: tool.NameCreateTask, Arguments: `{"title":"x","priority":"extreme"}`}, tool.CodeValidation, "priority"},
		{"missing required", Invocation{ID: "4", Name: tool.NameDeleteTask, Arguments: `{}`}, tool.CodeValidation, "task_id"},
		{"store error", Invocation{ID: "5", Name: tool.NameDeleteTask, Arguments: `{"task_id": 7}`}, tool.CodeExecution, "task not found"},
		{"empty journal", Invocation{ID: "6", Name: tool.NameUndoLastAction}, tool.CodeExecution, "nothing to undo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := e.ExecuteOne(ctx, "u1", tc.inv)
			assert.False(t, r.Success)
			assert.Equal(t, tc.code, r.Code)
			assert.NotEmpty(t, r.Error)
			assert.Contains(t, r.Error, tc.msg)
			assert.Equal(t, tc.inv.ID, r.InvocationID)
		})
	}
}

func TestExecutor_UnknownToolMessage(t *testing.T) {
	r := newExecutor().ExecuteOne(context.Background(), "u1", Invocation{Name: "nope"})
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Unknown tool"}`, string(b))
}

func TestExecutor_NullArgumentsAreStripped(t *testing.T) {
	r := newExecutor().ExecuteOne(context.Background(), "u1", Invocation{
		Name:      tool.NameCreateTask,
		Arguments: `{"title":"buy milk","due_date":null,"priority":null,"tags":null,"description":null}`,
	})
	require.True(t, r.Success, r.Error)
	out := r.Output.(TaskOutput)
	assert.Equal(t, "buy milk", out.Task.Content)
}

func TestExecutor_OrderedResults(t *testing.T) {
	e := newExecutor(func(o *ExecutorOptions) { o.MaxParallel = 2 })
	invs := []Invocation{
		{ID: "a", Name: tool.NameCreateTask, Arguments: `{"title":"one"}`},
		{ID: "b", Name: "bogus"},
		{ID: "c", Name: tool.NameCreateTask, Arguments: `{"title":"two"}`},
		{ID: "d", Name: tool.NameAskClarification, Arguments: `{"question":"which?","options":["x","y"]}`},
	}
	results := e.Execute(context.Background(), "u1", invs)
	require.Len(t, results, len(invs))
	for i, r := range results {
		assert.Equal(t, invs[i].ID, r.InvocationID)
		assert.Equal(t, invs[i].Name, r.Name)
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, []string{"x", "y"}, results[3].Output.(ClarificationOutput).Options)
}

// blockingHandler counts concurrent CreateTask calls.
type blockingHandler struct {
	tool.Handler
	active, peak atomic.Int32
}

func (h *blockingHandler) CreateTask(context.Context, tool.CreateTask) (any, error) {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return "ok", nil
}

func (h *blockingHandler) AskClarification(context.Context, tool.AskClarification) (any, error) {
	panic("boom")
}

func TestExecutor_MaxParallelAndPanic(t *testing.T) {
	h := &blockingHandler{}
	e := NewExecutor(tool.DefaultCatalog(), func(string) tool.Handler { return h }, func(o *ExecutorOptions) { o.MaxParallel = 2 })

	invs := make([]Invocation, 6)
	for i := range invs {
		invs[i] = Invocation{Name: tool.NameCreateTask, Arguments: `{"title":"t"}`}
	}
	invs = append(invs, Invocation{Name: tool.NameAskClarification, Arguments: `{"question":"q"}`})

	results := e.Execute(context.Background(), "u1", invs)
	for _, r := range results[:6] {
		assert.True(t, r.Success)
	}
	assert.LessOrEqual(t, h.peak.Load(), int32(2))

	last := results[6]
	assert.False(t, last.Success)
	assert.Equal(t, tool.CodePanic, last.Code)
	assert.Contains(t, last.Error, "boom")
}

func TestExecutor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newExecutor().ExecuteOne(ctx, "u1", Invocation{Name: tool.NameCreateTask, Arguments: `{"title":"t"}`})
	assert.False(t, r.Success)
	assert.Equal(t, tool.CodeExecution, r.Code)
}
