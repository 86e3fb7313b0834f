package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

type chunkModel struct{ chunks []string }

func (m chunkModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	out := make(chan Response, len(m.chunks))
	errCh := make(chan error)
	for _, c := range m.chunks {
		out <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, c)}
	}
	close(out)
	close(errCh)
	return out, errCh
}

func (chunkModel) Info() Info { return Info{Name: "chunks"} }

func TestCollect_PartialsOnly(t *testing.T) {
	resp, err := Collect(context.Background(), chunkModel{chunks: []string{"Hel", "lo"}}, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Content.Text())
	assert.Equal(t, core.RoleAssistant, resp.Content.Role)
}

func TestCollect_Empty(t *testing.T) {
	_, err := Collect(context.Background(), chunkModel{}, Request{})
	assert.Error(t, err)
}

func TestScriptedModel(t *testing.T) {
	m := NewScriptedModel("test").
		ThenCalls(core.FunctionCall{ID: "c1", Name: "create_task", Arguments: `{"title":"x"}`}).
		ThenText("done").
		ThenError(errors.New("boom"))

	ctx := context.Background()
	r1, err := Collect(ctx, m, Request{ToolChoice: ToolChoiceAuto})
	require.NoError(t, err)
	calls := r1.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "create_task", calls[0].Name)

	r2, err := Collect(ctx, m, Request{Temperature: Temperature(0.7)})
	require.NoError(t, err)
	assert.Equal(t, "done", r2.Content.Text())

	_, err = Collect(ctx, m, Request{})
	assert.EqualError(t, err, "scripted model: boom")

	_, err = Collect(ctx, m, Request{})
	assert.ErrorIs(t, err, ErrScriptExhausted)

	reqs := m.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, ToolChoiceAuto, reqs[0].ToolChoice)
	require.NotNil(t, reqs[1].Temperature)
	assert.InDelta(t, 0.7, *reqs[1].Temperature, 1e-9)
}

func TestScriptedModel_Otherwise(t *testing.T) {
	m := NewScriptedModel("test").Otherwise(func(req Request) (Response, error) {
		return Response{Content: core.NewTextContent(core.RoleAssistant, req.Contents[0].Text())}, nil
	})
	resp, err := Collect(context.Background(), m, Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "echo")}})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Content.Text())
}

func TestScriptedModel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, NewScriptedModel("x").ThenText("never"), Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
