package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// ErrScriptExhausted is returned by ScriptedModel once every step ran.
var ErrScriptExhausted = errors.New("scripted model: no more steps")

// Step produces the reply for one Generate call.
type Step func(req Request) (Response, error)

// ScriptedModel is a deterministic in‑memory Model for tests and demos. Each
// Generate call consumes the next step; all requests are recorded.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []Step
	fallback Step
	requests []Request
}

// NewScriptedModel constructs an empty script.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{info: Info{
		Name:                     name,
		Provider:                 "scripted",
		SupportsTools:            true,
		SupportsStructuredOutput: true,
	}}
}

// Then appends a custom step (chainable).
func (m *ScriptedModel) Then(s Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, s)
	return m
}

// ThenText appends a prose reply (chainable).
func (m *ScriptedModel) ThenText(text string) *ScriptedModel {
	return m.Then(func(Request) (Response, error) {
		return Response{Content: core.NewTextContent(core.RoleAssistant, text), FinishReason: "stop"}, nil
	})
}

// ThenCalls appends a reply proposing the given function calls (chainable).
func (m *ScriptedModel) ThenCalls(calls ...core.FunctionCall) *ScriptedModel {
	return m.Then(func(Request) (Response, error) {
		parts := make([]core.Part, 0, len(calls))
		for _, c := range calls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: c})
		}
		return Response{Content: core.Content{Role: core.RoleAssistant, Parts: parts}, FinishReason: "tool_calls"}, nil
	})
}

// ThenError appends a failing step (chainable).
func (m *ScriptedModel) ThenError(err error) *ScriptedModel {
	return m.Then(func(Request) (Response, error) { return Response{}, err })
}

// Otherwise sets the step used once the script is exhausted (chainable).
func (m *ScriptedModel) Otherwise(s Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = s
	return m
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var step Step
	if len(m.steps) > 0 {
		step, m.steps = m.steps[0], m.steps[1:]
	} else {
		step = m.fallback
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if step == nil {
			errCh <- ErrScriptExhausted
			return
		}
		resp, err := step(req)
		if err != nil {
			errCh <- fmt.Errorf("scripted model: %w", err)
			return
		}
		respCh <- resp
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
