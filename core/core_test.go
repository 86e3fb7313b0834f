package core

import (
	"encoding/json"
	"testing"
)

func TestContent_TextAndCalls(t *testing.T) {
	c := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "Sure, "},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "create_task", Arguments: `{"title":"x"}`}},
			TextPart{Text: "on it."},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c2", Name: "list_tasks"}},
		},
	}
	if got := c.Text(); got != "Sure, on it." {
		t.Fatalf("unexpected text %q", got)
	}
	calls := c.FunctionCalls()
	if len(calls) != 2 || calls[0].ID != "c1" || calls[1].Name != "list_tasks" {
		t.Fatalf("unexpected calls %#v", calls)
	}
	if len(c.FunctionResponses()) != 0 {
		t.Fatalf("expected no responses")
	}
}

func TestFunctionResponse_Text(t *testing.T) {
	ok := FunctionResponse{ID: "1", Name: "create_task", Response: map[string]any{"task_id": 7}}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(ok.Text()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["success"] != true {
		t.Fatalf("expected success, got %#v", decoded)
	}
	if out, _ := decoded["output"].(map[string]any); out["task_id"] != float64(7) {
		t.Fatalf("unexpected output %#v", decoded["output"])
	}

	failed := FunctionResponse{ID: "2", Name: "delete_task", Error: "task 9 not found"}
	decoded = nil
	if err := json.Unmarshal([]byte(failed.Text()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["success"] != false || decoded["error"] != "task 9 not found" {
		t.Fatalf("unexpected failure payload %#v", decoded)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
