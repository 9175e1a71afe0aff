package llm

import (
	"encoding/json"
	"testing"
)

func TestStreamAccumulatorRebuildsResponse(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Process(StreamEvent{Type: StreamStart})
	acc.Process(StreamEvent{Type: TextDelta, Delta: "par"})
	acc.Process(StreamEvent{Type: TextDelta, Delta: "tial"})
	acc.Process(StreamEvent{Type: ToolCallEnd, ToolCall: &ToolCall{
		ID: "tc-1", Name: "lookup", Arguments: json.RawMessage(`{"q":"x"}`),
	}})
	acc.Process(StreamEvent{Type: StreamFinish,
		FinishReason: &FinishReason{Reason: "tool_calls"},
		Usage:        &Usage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10},
	})

	resp := acc.Response()
	if resp.Text() != "partial" {
		t.Errorf("text %q, want partial", resp.Text())
	}
	calls := resp.ToolCallsFromResponse()
	if len(calls) != 1 || calls[0].Name != "lookup" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("finish reason %q", resp.FinishReason.Reason)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("usage %+v", resp.Usage)
	}
}

func TestStreamAccumulatorPrefersProviderResponse(t *testing.T) {
	full := &Response{
		ID:      "resp-1",
		Message: AssistantMessage("complete"),
		Usage:   Usage{InputTokens: 100, OutputTokens: 10, TotalTokens: 110},
	}
	acc := NewStreamAccumulator()
	acc.Process(StreamEvent{Type: TextDelta, Delta: "ignored partial"})
	acc.Process(StreamEvent{Type: StreamFinish, Response: full})

	resp := acc.Response()
	if resp != full {
		t.Error("provider-supplied response was not returned as-is")
	}
}

func TestStreamAccumulatorEmptyStream(t *testing.T) {
	acc := NewStreamAccumulator()
	resp := acc.Response()
	if resp == nil {
		t.Fatal("Response() returned nil")
	}
	if resp.Text() != "" || len(resp.ToolCallsFromResponse()) != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("default finish reason %q, want stop", resp.FinishReason.Reason)
	}
}
