package util

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeArguments parses the JSON argument string proposed by a model into a
// generic argument bag. An empty string decodes to an empty bag.
func DecodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	if args == nil { // literal "null"
		return map[string]any{}, nil
	}
	return args, nil
}

// SanitizeArguments returns a copy of args with every null-valued key
// removed. Nested objects, including objects inside arrays, are sanitized
// recursively; every other value is preserved unchanged.
func SanitizeArguments(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return SanitizeArguments(tv)
	case []any:
		items := make([]any, len(tv))
		for i, item := range tv {
			items[i] = sanitizeValue(item)
		}
		return items
	default:
		return v
	}
}
