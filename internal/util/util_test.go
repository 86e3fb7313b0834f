package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArguments(t *testing.T) {
	args, err := DecodeArguments(`{"title":"buy groceries","priority":null}`)
	require.NoError(t, err)
	assert.Equal(t, "buy groceries", args["title"])
	assert.Contains(t, args, "priority")

	args, err = DecodeArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = DecodeArguments("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = DecodeArguments(`{"title":`)
	assert.Error(t, err)

	_, err = DecodeArguments(`["not","an","object"]`)
	assert.Error(t, err)
}

func TestSanitizeArguments(t *testing.T) {
	in := map[string]any{
		"title":    "x",
		"priority": nil,
		"zero":     float64(0),
		"empty":    "",
		"flag":     false,
		"tags":     []any{"a", nil},
		"updates": []any{
			map[string]any{"task_id": float64(1), "status": nil},
			map[string]any{"task_id": float64(2), "status": "done"},
		},
		"nested": map[string]any{"keep": 1, "drop": nil},
	}
	out := SanitizeArguments(in)

	assert.NotContains(t, out, "priority")
	assert.Equal(t, "x", out["title"])
	assert.Equal(t, float64(0), out["zero"])
	assert.Equal(t, "", out["empty"])
	assert.Equal(t, false, out["flag"])
	// Null array members are values, not keys, and stay untouched.
	assert.Equal(t, []any{"a", nil}, out["tags"])
	assert.Equal(t, []any{
		map[string]any{"task_id": float64(1)},
		map[string]any{"task_id": float64(2), "status": "done"},
	}, out["updates"])
	assert.Equal(t, map[string]any{"keep": 1}, out["nested"])

	// Input is not mutated.
	assert.Contains(t, in, "priority")
	assert.Contains(t, in["nested"].(map[string]any), "drop")
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate(`Hello {{ default "there" .name }} & co, it is {{ .now }}.`, map[string]any{"now": "noon"})
	require.NoError(t, err)
	assert.Equal(t, "Hello there & co, it is noon.", out)

	_, err = RenderTemplate("{{ .broken", nil)
	assert.Error(t, err)
}
