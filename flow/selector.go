package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// Invocation is one operation call proposed by the model.
type Invocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON from the model
}

// Selection is the outcome of intent selection.
type Selection struct {
	// DirectReply is the model's prose when it chose no operation.
	DirectReply string
	Invocations []Invocation
	// Assistant is the assistant turn carrying the calls, with ids filled
	// in. The composer replays it ahead of the results.
	Assistant core.Content
}

// Smalltalk reports whether no operation was selected.
func (s Selection) Smalltalk() bool { return len(s.Invocations) == 0 }

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Logger logging.Logger
}

// Selector asks the model to choose operations from the catalog.
type Selector struct {
	model model.Model
	opts  SelectorOptions
}

// NewSelector creates a Selector backed by m.
func NewSelector(m model.Model, optFns ...func(o *SelectorOptions)) *Selector {
	opts := SelectorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Selector{model: m, opts: opts}
}

// Select runs one deterministic model call with every catalog operation
// offered. Provider errors are returned as is; argument problems are left
// to the executor so they only affect the invocation concerned.
func (s *Selector) Select(ctx context.Context, transcript []core.Content, catalog *tool.Catalog) (Selection, error) {
	resp, err := model.Collect(ctx, s.model, model.Request{
		Contents:    transcript,
		Tools:       catalog.ModelTools(),
		ToolChoice:  model.ToolChoiceAuto,
		Temperature: model.Temperature(0),
	})
	if err != nil {
		return Selection{}, fmt.Errorf("select operation: %w", err)
	}

	sel := Selection{Assistant: core.Content{Role: core.RoleAssistant}}
	for _, p := range resp.Content.Parts {
		switch part := p.(type) {
		case core.FunctionCallPart:
			fc := part.FunctionCall
			if fc.ID == "" {
				fc.ID = core.NewID()
			}
			sel.Invocations = append(sel.Invocations, Invocation{ID: fc.ID, Name: fc.Name, Arguments: fc.Arguments})
			sel.Assistant.Parts = append(sel.Assistant.Parts, core.FunctionCallPart{FunctionCall: fc})
		default:
			sel.Assistant.Parts = append(sel.Assistant.Parts, p)
		}
	}
	sel.DirectReply = strings.TrimSpace(resp.Content.Text())

	names := make([]string, len(sel.Invocations))
	for i, inv := range sel.Invocations {
		names[i] = inv.Name
	}
	s.opts.Logger.Debug("flow.selector.selected", "count", len(sel.Invocations), "operations", names)
	return sel, nil
}
