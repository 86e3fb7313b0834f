package model

import (
	"context"
	"errors"

	"github.com/hupe1980/taskmesh/core"
)

// ErrInvalidRequest marks provider rejections that retrying cannot fix
// (bad parameters, authentication, unknown model). Adapters wrap it.
var ErrInvalidRequest = errors.New("invalid model request")

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

// Tool choice modes.
const (
	ToolChoiceAuto     ToolChoice = "auto"     // zero, one or many calls
	ToolChoiceNone     ToolChoice = "none"     // prose only
	ToolChoiceRequired ToolChoice = "required" // at least one call
)

// ResponseFormat constrains the reply to JSON matching Schema.
type ResponseFormat struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
}

// Request captures the normalized model input produced by flows.
type Request struct {
	Contents       []core.Content   `json:"contents"` // Converted to provider messages
	Tools          []ToolDefinition `json:"tools,omitempty"`
	ToolChoice     ToolChoice       `json:"tool_choice,omitempty"`
	Temperature    *float64         `json:"temperature,omitempty"` // nil keeps the adapter default
	ResponseFormat *ResponseFormat  `json:"response_format,omitempty"`
	Stream         bool             `json:"stream,omitempty"`
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(v float64) *float64 { return &v }

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name                     string `json:"name"`
	Provider                 string `json:"provider"` // "openai", "anthropic", "gemini", "scripted"
	SupportsTools            bool   `json:"supports_tools"`
	SupportsStructuredOutput bool   `json:"supports_structured_output"`
}

// Model is the minimal interface required by flows to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a generation and returns the final response. When a
// provider emits only partial chunks their text is concatenated.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		partials []core.Part
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partials = append(partials, r.Content.Parts...)
				continue
			}
			rr := r
			final = &rr
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if final != nil {
		return *final, nil
	}
	if len(partials) > 0 {
		text := core.Content{Parts: partials}.Text()
		return Response{Content: core.NewTextContent(core.RoleAssistant, text), FinishReason: "stop"}, nil
	}
	return Response{}, errors.New("model returned no response")
}
