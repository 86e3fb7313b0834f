package testutil

import (
	"github.com/hupe1980/taskmesh/core"
)

// ContentBuilder provides a fluent helper for constructing conversation
// content in tests.
// Example:
//
//	c := NewContentBuilder().Call("call-1", "create_task", `{"title":"x"}`).Build()
//
// Chain only the parts you need; the role defaults to assistant.
type ContentBuilder struct {
	role  string
	parts []core.Part
}

// NewContentBuilder creates a builder with default role "assistant".
func NewContentBuilder() *ContentBuilder { return &ContentBuilder{role: core.RoleAssistant} }

// Role overrides the content role (chainable).
func (b *ContentBuilder) Role(r string) *ContentBuilder { b.role = r; return b }

// UserText appends a text part and sets role to user (chainable).
func (b *ContentBuilder) UserText(t string) *ContentBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Text appends a text part without touching the role (chainable).
func (b *ContentBuilder) Text(t string) *ContentBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Call adds a function call part with the provided id, name and JSON
// argument string (chainable).
func (b *ContentBuilder) Call(id, name, args string) *ContentBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})
	return b
}

// Response adds a function response part and sets role to tool (chainable).
func (b *ContentBuilder) Response(id, name string, result any, err error) *ContentBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: fr})
	return b
}

// Build constructs the core.Content value.
func (b *ContentBuilder) Build() core.Content {
	parts := make([]core.Part, len(b.parts))
	copy(parts, b.parts)
	return core.Content{Role: b.role, Parts: parts}
}
