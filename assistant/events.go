package assistant

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// EventType identifies the type of exchange event.
type EventType string

const (
	// EventDelta carries incremental assistant text as it is produced.
	EventDelta EventType = "delta"
	// EventToolCall reports that the model requested a tool invocation.
	EventToolCall EventType = "tool_call"
	// EventToolResult reports the outcome of an executed tool call, or the
	// synthetic outcome of a confirmation-seeking one.
	EventToolResult EventType = "tool_result"
	// EventToolConfirmation reports that a write tool was requested and
	// execution is withheld pending human approval.
	EventToolConfirmation EventType = "tool_confirmation_required"
	// EventDone terminates a successful exchange and carries aggregate usage.
	EventDone EventType = "done"
	// EventError terminates a failed exchange.
	EventError EventType = "error"
)

// Event is a single entry in an exchange's output stream.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Text      string          `json:"text,omitempty"`       // delta
	ToolID    string          `json:"tool_id,omitempty"`    // tool_call, tool_result, tool_confirmation_required
	ToolName  string          `json:"tool_name,omitempty"`  //
	Input     json.RawMessage `json:"input,omitempty"`      // tool_call, tool_confirmation_required
	Result    string          `json:"result,omitempty"`     // tool_result
	IsError   bool            `json:"is_error,omitempty"`   // tool_result
	Usage     *ExchangeUsage  `json:"usage,omitempty"`      // done
	Error     string          `json:"error,omitempty"`      // error
}

// ExchangeUsage is the aggregate accounting for one exchange, reported on the
// done event and persisted with the assistant turn.
type ExchangeUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Model        string  `json:"model"`
	Iterations   int     `json:"iterations"`
}

// EventSink receives exchange events in emission order. Emit returns an error
// only when the sink can no longer accept events (consumer detached); the
// orchestrator treats that as cancellation.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

// ChannelSink delivers events over a buffered channel, blocking the producer
// when the consumer falls behind. The producer closes it after the terminal
// event; the consumer ranges over Events until closed.
type ChannelSink struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Emit sends an event, waiting for buffer space. It returns the context error
// if the consumer detaches (cancels) before the event is accepted, and nil
// without sending if the sink is already closed.
func (s *ChannelSink) Emit(ctx context.Context, ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the read-only event channel.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close closes the event channel. Safe to call multiple times. Only the
// producer may call Close.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// CollectorSink records events in memory. Test helper and building block for
// callers that want the whole stream at once.
type CollectorSink struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends the event to the collected slice.
func (s *CollectorSink) Emit(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the collected events.
func (s *CollectorSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
