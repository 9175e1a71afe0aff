package llm

import (
	"encoding/json"
	"testing"
)

func TestMessageTextContent(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			TextPart("hello "),
			ToolCallPart("tc-1", "lookup", json.RawMessage(`{}`)),
			TextPart("world"),
		},
	}
	if got := msg.TextContent(); got != "hello world" {
		t.Errorf("TextContent() = %q, want %q", got, "hello world")
	}
}

func TestMessageToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			TextPart("let me check"),
			ToolCallPart("tc-1", "lookup", json.RawMessage(`{"q":"a"}`)),
			ToolCallPart("tc-2", "fetch", json.RawMessage(`{"q":"b"}`)),
		},
	}
	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(calls))
	}
	if calls[0].ID != "tc-1" || calls[1].Name != "fetch" {
		t.Errorf("unexpected calls %+v", calls)
	}
}

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage("tc-9", "it worked", false)
	if msg.Role != RoleTool {
		t.Errorf("role %q, want tool", msg.Role)
	}
	if msg.ToolCallID != "tc-9" {
		t.Errorf("tool call id %q", msg.ToolCallID)
	}
	if len(msg.Content) != 1 || msg.Content[0].Kind != ContentToolResult {
		t.Fatalf("unexpected content %+v", msg.Content)
	}
	tr := msg.Content[0].ToolResult
	if tr.ToolCallID != "tc-9" || tr.IsError {
		t.Errorf("unexpected tool result %+v", tr)
	}
	var decoded string
	if err := json.Unmarshal(tr.Content, &decoded); err != nil || decoded != "it worked" {
		t.Errorf("content round-trip failed: %v / %q", err, decoded)
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}
	b := Usage{InputTokens: 50, OutputTokens: 30, TotalTokens: 80}
	sum := a.Add(b)
	if sum.InputTokens != 150 || sum.OutputTokens != 50 || sum.TotalTokens != 200 {
		t.Errorf("unexpected sum %+v", sum)
	}
	// Add is value-returning; operands stay untouched.
	if a.InputTokens != 100 {
		t.Error("Add mutated its receiver")
	}
}

func TestResponseToolCallsFromResponse(t *testing.T) {
	resp := Response{Message: Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			ToolCallPart("tc-1", "lookup", json.RawMessage(`{"q":1}`)),
		},
	}}
	calls := resp.ToolCallsFromResponse()
	if len(calls) != 1 || calls[0].Name != "lookup" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if string(calls[0].Arguments) != `{"q":1}` {
		t.Errorf("arguments %s", calls[0].Arguments)
	}
}
