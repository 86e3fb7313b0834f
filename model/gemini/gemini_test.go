package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

func TestBuildContents(t *testing.T) {
	contents, system := buildContents([]core.Content{
		core.NewTextContent(core.RoleSystem, "preamble"),
		core.NewTextContent(core.RoleUser, "show tasks"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "list_tasks", Arguments: `{"limit":5}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "list_tasks", Response: map[string]any{"count": 0}}},
		}},
	})
	require.NotNil(t, system)
	assert.Equal(t, "preamble", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, float64(5), contents[1].Parts[0].FunctionCall.Args["limit"])
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, true, contents[2].Parts[0].FunctionResponse.Response["success"])
}

func TestBuildConfig(t *testing.T) {
	m := NewModelFromClient(nil)
	cfg := m.buildConfig(model.Request{
		Temperature: model.Temperature(0),
		ToolChoice:  model.ToolChoiceAuto,
		Tools:       []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{Name: "list_tasks"}}},
	}, nil)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "list_tasks", cfg.Tools[0].FunctionDeclarations[0].Name)
	assert.Equal(t, genai.FunctionCallingConfigModeAuto, cfg.ToolConfig.FunctionCallingConfig.Mode)

	cfg = m.buildConfig(model.Request{ResponseFormat: &model.ResponseFormat{Name: "x", Schema: map[string]any{"type": "object"}}}, nil)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.NotNil(t, cfg.ResponseJsonSchema)
}
