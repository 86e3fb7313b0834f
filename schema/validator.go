package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks a decoded JSON value (or any JSON-serializable Go value)
// against a compiled schema.
type Validator interface {
	Validate(value any) error
}

// ValidationError reports the first violated constraint.
type ValidationError struct {
	Schema  string `json:"schema"`  // Name the schema was compiled under
	Field   string `json:"field"`   // JSON pointer of the offending value ("/" for root)
	Message string `json:"message"` // Human-readable error message
	err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s at '%s': %s", e.Schema, e.Field, e.Message)
}

// Unwrap returns the underlying jsonschema error.
func (e *ValidationError) Unwrap() error { return e.err }

type compiled struct {
	name   string
	schema *jsonschema.Schema
}

// Compile compiles s into a Validator registered under name.
func Compile(name string, s *Schema) (Validator, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", name, err)
	}
	return CompileJSON(name, b)
}

// CompileJSON compiles a raw JSON schema document into a Validator.
func CompileJSON(name string, data []byte) (Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", name, err)
	}
	url := resourceURL(name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &compiled{name: name, schema: sch}, nil
}

// Validate implements Validator. Values are normalized through a JSON round
// trip so structs and native Go numbers validate like decoded documents.
func (c *compiled) Validate(value any) error {
	instance, err := normalize(value)
	if err != nil {
		return &ValidationError{Schema: c.name, Field: "/", Message: err.Error(), err: err}
	}
	if err := c.schema.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepest(ve)
			return &ValidationError{
				Schema:  c.name,
				Field:   "/" + strings.Join(leaf.InstanceLocation, "/"),
				Message: leafMessage(leaf),
				err:     err,
			}
		}
		return &ValidationError{Schema: c.name, Field: "/", Message: err.Error(), err: err}
	}
	return nil
}

func normalize(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// deepest follows the first cause chain down to the most specific error.
func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func leafMessage(ve *jsonschema.ValidationError) string {
	return strings.Join(strings.Fields(ve.Error()), " ")
}

func resourceURL(name string) string {
	return fmt.Sprintf("mem://schemas/%s.schema.json", name)
}
