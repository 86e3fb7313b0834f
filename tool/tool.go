// Package tool implements the Operation Catalog: the fixed set of task
// operations a model may invoke, their parameter schemas, and the closed
// Operation sum type the executor dispatches on.
//
// Adding an operation means adding a Definition, an argument struct with a
// Dispatch method, a Decode case and a Handler method. Forgetting the handler
// side fails to compile.
package tool

import (
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by Decode and Catalog lookups for names outside
// the catalog. Its message is what the executor reports to the model.
var ErrUnknownTool = errors.New("Unknown tool")

// Error codes carried by ToolError.
const (
	CodeParse      = "PARSE_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeUnknown    = "UNKNOWN_TOOL"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during operation execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the operation that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	err     error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *ToolError) Unwrap() error { return e.err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// WrapError creates a ToolError whose message is err's text.
func WrapError(tool, code string, err error) *ToolError {
	return &ToolError{Tool: tool, Message: err.Error(), Code: code, err: err}
}
