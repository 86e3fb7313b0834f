package format

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/logging"
)

// ErrValidation is returned in strict mode when a response would otherwise
// fall back to unvalidated passthrough.
var ErrValidation = errors.New("structured response failed validation")

// Structured is the typed payload returned next to the prose reply.
type Structured struct {
	Operation string         `json:"operation"`
	Data      map[string]any `json:"data"` // always carries ai_summary when Validated
	Validated bool           `json:"validated"`
	Fallback  bool           `json:"fallback"`
	Reason    string         `json:"reason,omitempty"` // why a fallback happened
}

// Summary returns the ai_summary field, if any.
func (s Structured) Summary() string {
	v, _ := s.Data["ai_summary"].(string)
	return v
}

// Formatter coerces raw operation output into a Structured response. A
// non-nil error is only returned in strict mode and wraps ErrValidation.
type Formatter interface {
	Format(ctx context.Context, operation string, raw any) (Structured, error)
}

// Options configures the formatters.
type Options struct {
	Registry *Registry
	Logger   logging.Logger
	// Strict turns fallbacks into ErrValidation errors.
	Strict bool
}

// WithStrict enables strict mode.
func WithStrict(o *Options) { o.Strict = true }

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = MustDefaultRegistry()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

// fallback builds the passthrough response and applies the strict policy.
func fallback(opts Options, operation string, raw any, reason string) (Structured, error) {
	s := Structured{Operation: operation, Data: passthrough(raw), Fallback: true, Reason: reason}
	opts.Logger.Warn("format.fallback", "operation", operation, "reason", reason, "strict", opts.Strict)
	if opts.Strict {
		return s, fmt.Errorf("%w: %s: %s", ErrValidation, operation, reason)
	}
	return s, nil
}

// passthrough renders raw in JSON form. Objects are kept as is; any other
// value is wrapped under "output".
func passthrough(raw any) map[string]any {
	if m, err := toMap(raw); err == nil {
		return m
	}
	var v any
	if b, err := json.Marshal(raw); err == nil {
		if err := decodeJSON(b, &v); err == nil {
			return map[string]any{"output": v}
		}
	}
	return map[string]any{"output": fmt.Sprintf("%v", raw)}
}

// toMap normalizes raw into a JSON object with json.Number values.
func toMap(raw any) (map[string]any, error) {
	var b []byte
	switch t := raw.(type) {
	case []byte:
		b = t
	case json.RawMessage:
		b = t
	default:
		var err error
		if b, err = json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("encode output: %w", err)
		}
	}
	var m map[string]any
	if err := decodeJSON(b, &m); err != nil {
		return nil, fmt.Errorf("output is not a JSON object: %w", err)
	}
	if m == nil {
		return nil, errors.New("output is not a JSON object")
	}
	return m, nil
}

func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
