package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

func transcript(msg string) []core.Content {
	return []core.Content{
		core.NewTextContent(core.RoleSystem, "preamble"),
		core.NewTextContent(core.RoleUser, msg),
	}
}

func TestSelector_Invocations(t *testing.T) {
	m := model.NewScriptedModel("sel").ThenCalls(
		core.FunctionCall{ID: "c1", Name: tool.NameCreateTask, Arguments: `{"title":"a"}`},
		core.FunctionCall{Name: tool.NameListTasks, Arguments: `{}`},
	)
	sel, err := NewSelector(m).Select(context.Background(), transcript("add a"), tool.DefaultCatalog())
	require.NoError(t, err)

	assert.False(t, sel.Smalltalk())
	require.Len(t, sel.Invocations, 2)
	assert.Equal(t, "c1", sel.Invocations[0].ID)
	assert.NotEmpty(t, sel.Invocations[1].ID, "missing ids are generated")
	assert.Equal(t, sel.Invocations[1].ID, sel.Assistant.FunctionCalls()[1].ID)
	assert.Equal(t, core.RoleAssistant, sel.Assistant.Role)

	req := m.Requests()[0]
	assert.Equal(t, model.ToolChoiceAuto, req.ToolChoice)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	assert.Len(t, req.Tools, len(tool.DefaultCatalog().List()))
}

func TestSelector_Smalltalk(t *testing.T) {
	m := model.NewScriptedModel("sel").ThenText("  Hi there!  ")
	sel, err := NewSelector(m).Select(context.Background(), transcript("hi"), tool.DefaultCatalog())
	require.NoError(t, err)
	assert.True(t, sel.Smalltalk())
	assert.Equal(t, "Hi there!", sel.DirectReply)
}

func TestSelector_ProviderError(t *testing.T) {
	m := model.NewScriptedModel("sel").ThenError(errors.New("rate limited"))
	_, err := NewSelector(m).Select(context.Background(), transcript("hi"), tool.DefaultCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
