// Package schema provides a typed, JSON-Schema shaped description of
// operation parameters and structured outputs, plus a Validator backed by
// github.com/santhosh-tekuri/jsonschema/v6.
//
// Schemas are plain data: catalogs and registries are built from Schema
// values at process start and never mutated afterwards.
package schema

import (
	"encoding/json"
	"fmt"
)

// Primitive JSON types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

// Type is a JSON type or a union of types. A single type marshals as a
// string, a union as an array (e.g. ["string", "null"]).
type Type []string

// MarshalJSON implements json.Marshaler.
func (t Type) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Type) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*t = Type{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("schema type must be a string or array of strings: %w", err)
	}
	*t = many
	return nil
}

// Has reports whether the type union contains name.
func (t Type) Has(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

// Schema is the subset of JSON Schema used by operation parameters and
// structured responses.
type Schema struct {
	Type                 Type               `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	MinItems             *int               `json:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	Default              any                `json:"default,omitempty"`
}

// String returns a string schema.
func String(description string) *Schema {
	return &Schema{Type: Type{TypeString}, Description: description}
}

// Integer returns an integer schema.
func Integer(description string) *Schema {
	return &Schema{Type: Type{TypeInteger}, Description: description}
}

// Number returns a number schema.
func Number(description string) *Schema {
	return &Schema{Type: Type{TypeNumber}, Description: description}
}

// Boolean returns a boolean schema.
func Boolean(description string) *Schema {
	return &Schema{Type: Type{TypeBoolean}, Description: description}
}

// Array returns an array schema with the given item schema.
func Array(description string, items *Schema) *Schema {
	return &Schema{Type: Type{TypeArray}, Description: description, Items: items}
}

// Object returns a closed object schema (additionalProperties=false).
func Object(properties map[string]*Schema, required ...string) *Schema {
	closed := false
	if properties == nil {
		properties = map[string]*Schema{}
	}
	return &Schema{
		Type:                 Type{TypeObject},
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &closed,
	}
}

// Nullable adds "null" to the type union. If the schema is an enumeration,
// a literal null member is appended too, meaning "unset".
func (s *Schema) Nullable() *Schema {
	if !s.Type.Has(TypeNull) {
		s.Type = append(s.Type, TypeNull)
	}
	if s.Enum != nil && !hasNil(s.Enum) {
		s.Enum = append(s.Enum, nil)
	}
	return s
}

// OneOf restricts the schema to the given values.
func (s *Schema) OneOf(values ...any) *Schema {
	s.Enum = append([]any{}, values...)
	if s.Type.Has(TypeNull) {
		s.Enum = append(s.Enum, nil)
	}
	return s
}

// Between sets inclusive numeric bounds.
func (s *Schema) Between(minimum, maximum float64) *Schema {
	s.Minimum, s.Maximum = &minimum, &maximum
	return s
}

// AtLeast sets an inclusive lower bound.
func (s *Schema) AtLeast(minimum float64) *Schema {
	s.Minimum = &minimum
	return s
}

// Length sets inclusive string length bounds.
func (s *Schema) Length(minLen, maxLen int) *Schema {
	s.MinLength, s.MaxLength = &minLen, &maxLen
	return s
}

// Count sets inclusive array length bounds.
func (s *Schema) Count(minItems, maxItems int) *Schema {
	s.MinItems, s.MaxItems = &minItems, &maxItems
	return s
}

// Matching sets a regular expression pattern for strings.
func (s *Schema) Matching(pattern string) *Schema {
	s.Pattern = pattern
	return s
}

// WithDefault documents the value used when the field is unset.
func (s *Schema) WithDefault(v any) *Schema {
	s.Default = v
	return s
}

// Map converts the schema into a generic JSON map, the shape provider SDKs
// expect for tool parameters and response formats.
func (s *Schema) Map() map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": TypeObject}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": TypeObject}
	}
	return m
}

func hasNil(vals []any) bool {
	for _, v := range vals {
		if v == nil {
			return true
		}
	}
	return false
}
