package format

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// fieldRenames maps store-native keys to their structured names. Keys are
// renamed at every depth so nested tasks, risk items and scores all follow
// the same vocabulary.
var fieldRenames = map[string]string{
	"id":                "task_id",
	"content":           "task_title",
	"description":       "task_description",
	"due_date":          "task_due_date",
	"priority":          "task_priority",
	"status":            "task_status",
	"tags":              "task_tags",
	"estimated_minutes": "task_estimated_minutes",
	"created_at":        "task_created_at",
	"updated_at":        "task_updated_at",
	"completed_at":      "task_completed_at",
}

// droppedFields never leave the process.
var droppedFields = map[string]bool{"user_id": true}

// summarizers synthesize ai_summary from the mapped output.
var summarizers = map[string]func(m map[string]any) string{
	"create_task": func(m map[string]any) string {
		return fmt.Sprintf("Created task %q (#%d).", str(dig(m, "task", "task_title")), num(m["task_id"]))
	},
	"list_tasks": func(m map[string]any) string {
		return fmt.Sprintf("Found %d task(s).", num(m["count"]))
	},
	"update_task": func(m map[string]any) string {
		fields := strs(m["updated_fields"])
		if len(fields) == 0 {
			return fmt.Sprintf("Task #%d is unchanged.", num(m["task_id"]))
		}
		return fmt.Sprintf("Updated task #%d: %s.", num(m["task_id"]), strings.Join(fields, ", "))
	},
	"delete_task": func(m map[string]any) string {
		return fmt.Sprintf("Deleted task %q (#%d).", str(dig(m, "task", "task_title")), num(m["task_id"]))
	},
	"check_deadline_risk": func(m map[string]any) string {
		return fmt.Sprintf("%d overdue and %d at-risk task(s) within %d day(s).",
			num(m["overdue_count"]), num(m["at_risk_count"]), num(m["threshold_days"]))
	},
	"score_priorities": func(m map[string]any) string {
		s := fmt.Sprintf("Ranked %d open task(s).", num(m["count"]))
		if scores, ok := m["scores"].([]any); ok && len(scores) > 0 {
			if top, ok := scores[0].(map[string]any); ok {
				s += fmt.Sprintf(" Top: %q.", str(top["task_title"]))
			}
		}
		return s
	},
	"bulk_update_tasks": func(m map[string]any) string {
		return fmt.Sprintf("Updated %d task(s), %d failed.", num(m["success_count"]), num(m["failed_count"]))
	},
	"generate_daily_brief": func(m map[string]any) string {
		return fmt.Sprintf("%s: %d due today, %d overdue, %d open.",
			str(m["date"]), count(m["due_today"]), count(m["overdue"]), num(m["open_count"]))
	},
	"undo_last_action": func(m map[string]any) string {
		return fmt.Sprintf("Undid the last %s affecting %d task(s).",
			strings.ReplaceAll(str(m["undone_action"]), "_", " "), count(m["task_ids"]))
	},
	"ask_clarification": func(m map[string]any) string {
		return str(m["question"])
	},
}

// MappingFormatter is the default strategy: rename, summarize, validate.
type MappingFormatter struct {
	opts Options
}

// NewMappingFormatter creates a MappingFormatter.
func NewMappingFormatter(optFns ...func(o *Options)) *MappingFormatter {
	return &MappingFormatter{opts: newOptions(optFns)}
}

// Format implements Formatter.
func (f *MappingFormatter) Format(_ context.Context, operation string, raw any) (Structured, error) {
	v, ok := f.opts.Registry.Validator(operation)
	if !ok {
		return fallback(f.opts, operation, raw, "no response schema registered")
	}
	m, err := toMap(raw)
	if err != nil {
		return fallback(f.opts, operation, raw, err.Error())
	}

	mapped := rename(m).(map[string]any)
	if summarize, ok := summarizers[operation]; ok {
		mapped["ai_summary"] = summarize(mapped)
	}

	if err := v.Validate(mapped); err != nil {
		return fallback(f.opts, operation, raw, err.Error())
	}
	return Structured{Operation: operation, Data: mapped, Validated: true}, nil
}

func rename(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if droppedFields[k] {
				continue
			}
			if to, ok := fieldRenames[k]; ok {
				if _, clash := t[to]; !clash {
					k = to
				}
			}
			out[k] = rename(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rename(val)
		}
		return out
	default:
		return v
	}
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[k]
	}
	return cur
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}
		return i
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

func count(v any) int {
	s, _ := v.([]any)
	return len(s)
}

func strs(v any) []string {
	s, _ := v.([]any)
	out := make([]string, 0, len(s))
	for _, x := range s {
		if str, ok := x.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
