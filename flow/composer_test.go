package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

func TestComposer_Replay(t *testing.T) {
	m := model.NewScriptedModel("compose").ThenText("Added 'buy milk' to your list.")
	sel := Selection{
		Assistant: testutil.NewContentBuilder().Call("c1", tool.NameCreateTask, `{"title":"buy milk"}`).Build(),
		Invocations: []Invocation{
			{ID: "c1", Name: tool.NameCreateTask, Arguments: `{"title":"buy milk"}`},
		},
	}
	results := []Result{{InvocationID: "c1", Name: tool.NameCreateTask, Success: true, Output: map[string]any{"task_id": 1}}}

	reply := NewComposer(m).Compose(context.Background(), transcript("add milk"), sel, results)
	assert.Equal(t, "Added 'buy milk' to your list.", reply)

	req := m.Requests()[0]
	assert.Empty(t, req.Tools)
	assert.Equal(t, model.ToolChoiceNone, req.ToolChoice)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)

	require.Len(t, req.Contents, 4)
	assert.Equal(t, core.RoleAssistant, req.Contents[2].Role)
	tr := req.Contents[3]
	assert.Equal(t, core.RoleTool, tr.Role)
	fr := tr.FunctionResponses()
	require.Len(t, fr, 1)
	assert.Equal(t, "c1", fr[0].ID)
	assert.JSONEq(t, `{"success":true,"output":{"task_id":1}}`, fr[0].Text())
}

func TestComposer_Fallback(t *testing.T) {
	m := model.NewScriptedModel("compose").ThenError(errors.New("down")).ThenText("   ")
	c := NewComposer(m)
	assert.Equal(t, DefaultFallbackReply, c.Compose(context.Background(), nil, Selection{}, nil))
	assert.Equal(t, DefaultFallbackReply, c.Compose(context.Background(), nil, Selection{}, nil))

	c = NewComposer(model.NewScriptedModel("x"), func(o *ComposerOptions) { o.FallbackReply = "Done." })
	assert.Equal(t, "Done.", c.Compose(context.Background(), nil, Selection{}, nil))
}
