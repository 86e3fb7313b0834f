package format

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

const modelFormatterPrompt = "Convert the operation result into a JSON object that matches the " +
	"response schema. Rename fields as the schema requires, keep values unchanged and " +
	"write a one sentence ai_summary. Reply with JSON only."

// ModelFormatter asks a model for schema constrained JSON. Any failure
// (provider error, invalid JSON, schema violation) falls back to the
// MappingFormatter.
type ModelFormatter struct {
	model   model.Model
	mapping *MappingFormatter
	opts    Options
}

// NewModelFormatter creates a ModelFormatter backed by m.
func NewModelFormatter(m model.Model, optFns ...func(o *Options)) *ModelFormatter {
	opts := newOptions(optFns)
	return &ModelFormatter{
		model:   m,
		mapping: &MappingFormatter{opts: opts},
		opts:    opts,
	}
}

// Format implements Formatter.
func (f *ModelFormatter) Format(ctx context.Context, operation string, raw any) (Structured, error) {
	doc, ok := f.opts.Registry.Schema(operation)
	if !ok {
		return fallback(f.opts, operation, raw, "no response schema registered")
	}
	s, err := f.generate(ctx, operation, doc, raw)
	if err != nil {
		f.opts.Logger.Warn("format.model.failed", "operation", operation, "error", err)
		return f.mapping.Format(ctx, operation, raw)
	}
	return s, nil
}

func (f *ModelFormatter) generate(ctx context.Context, operation string, doc map[string]any, raw any) (Structured, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return Structured{}, fmt.Errorf("encode output: %w", err)
	}
	resp, err := model.Collect(ctx, f.model, model.Request{
		Contents: []core.Content{
			core.NewTextContent(core.RoleSystem, modelFormatterPrompt),
			core.NewTextContent(core.RoleUser, fmt.Sprintf("Operation: %s\nResult: %s", operation, payload)),
		},
		Temperature: model.Temperature(0),
		ResponseFormat: &model.ResponseFormat{
			Name:        operation,
			Description: fmt.Sprintf("Structured response for %s", operation),
			Schema:      doc,
		},
	})
	if err != nil {
		return Structured{}, err
	}
	m, err := toMap([]byte(resp.Content.Text()))
	if err != nil {
		return Structured{}, err
	}
	v, _ := f.opts.Registry.Validator(operation)
	if err := v.Validate(m); err != nil {
		return Structured{}, err
	}
	return Structured{Operation: operation, Data: m, Validated: true}, nil
}
