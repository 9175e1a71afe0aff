package llm

import (
	"context"
	"errors"
	"testing"
)

// mockAdapter is a scriptable ProviderAdapter for tests. The first failures
// calls fail with failWith before the adapter starts succeeding.
type mockAdapter struct {
	name      string
	response  *Response
	err       error
	failures  int
	failWith  error
	events    []StreamEvent
	lastReq   Request
	callCount int
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(_ context.Context, req Request) (*Response, error) {
	m.lastReq = req
	m.callCount++
	if m.failures > 0 {
		m.failures--
		return nil, m.failWith
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockAdapter) Stream(_ context.Context, req Request) (<-chan StreamEvent, error) {
	m.lastReq = req
	m.callCount++
	if m.failures > 0 {
		m.failures--
		return nil, m.failWith
	}
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan StreamEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func textResponse(text string) *Response {
	return &Response{
		Message:      AssistantMessage(text),
		FinishReason: FinishReason{Reason: "stop"},
		Usage:        Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
}

func TestClientRoutesToExplicitProvider(t *testing.T) {
	a := &mockAdapter{name: "a", response: textResponse("from a")}
	b := &mockAdapter{name: "b", response: textResponse("from b")}
	client := NewClient(WithProvider("a", a), WithProvider("b", b), WithDefaultProvider("a"))

	resp, err := client.Complete(context.Background(), Request{Provider: "b", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text() != "from b" {
		t.Errorf("expected response from b, got %q", resp.Text())
	}
	if a.callCount != 0 {
		t.Errorf("provider a should not have been called")
	}
}

func TestClientInfersProviderFromCatalog(t *testing.T) {
	openai := &mockAdapter{name: "openai", response: textResponse("openai reply")}
	anthropic := &mockAdapter{name: "anthropic", response: textResponse("anthropic reply")}
	client := NewClient(
		WithProvider("openai", openai),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("openai"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{UserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text() != "anthropic reply" {
		t.Errorf("expected catalog inference to route to anthropic, got %q", resp.Text())
	}
}

func TestClientFallsBackToDefaultProvider(t *testing.T) {
	a := &mockAdapter{name: "a", response: textResponse("default")}
	client := NewClient(WithProvider("a", a))

	resp, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text() != "default" {
		t.Errorf("unexpected response %q", resp.Text())
	}
}

func TestClientUnregisteredProvider(t *testing.T) {
	client := NewClient(WithProvider("a", &mockAdapter{name: "a"}))

	_, err := client.Complete(context.Background(), Request{Provider: "nope"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientNoProviders(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	adapter := &mockAdapter{name: "a", response: textResponse("ok")}
	var order []string
	mw := func(tag string) Middleware {
		return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
			order = append(order, tag)
			return next(ctx, req)
		}
	}
	client := NewClient(WithProvider("a", adapter), WithMiddleware(mw("first"), mw("second")))

	if _, err := client.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware ran in order %v, want [first second]", order)
	}
}

func TestClientStreamForwardsEvents(t *testing.T) {
	adapter := &mockAdapter{name: "a", events: []StreamEvent{
		{Type: StreamStart},
		{Type: TextDelta, Delta: "hel"},
		{Type: TextDelta, Delta: "lo"},
		{Type: StreamFinish, Response: textResponse("hello")},
	}}
	client := NewClient(WithProvider("a", adapter))

	events, err := client.Stream(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var deltas string
	var finished bool
	for ev := range events {
		switch ev.Type {
		case TextDelta:
			deltas += ev.Delta
		case StreamFinish:
			finished = true
		}
	}
	if deltas != "hello" {
		t.Errorf("accumulated deltas %q, want hello", deltas)
	}
	if !finished {
		t.Error("stream never finished")
	}
}

func transientServerError() error {
	return &ServerError{ProviderError: ProviderError{
		SDKError: SDKError{Message: "overloaded"}, Retryable: true, StatusCode: 500,
	}}
}

func TestClientCompleteRetriesRetryableErrors(t *testing.T) {
	adapter := &mockAdapter{
		name: "a", response: textResponse("recovered"),
		failures: 1, failWith: transientServerError(),
	}
	client := NewClient(WithProvider("a", adapter), WithRetryPolicy(fastPolicy()))

	resp, err := client.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text() != "recovered" {
		t.Errorf("unexpected response %q", resp.Text())
	}
	if adapter.callCount != 2 {
		t.Errorf("adapter called %d times, want 2 (one failure, one retry)", adapter.callCount)
	}
}

func TestClientCompleteDoesNotRetryNonRetryable(t *testing.T) {
	adapter := &mockAdapter{
		name: "a", response: textResponse("never"),
		failures: 1,
		failWith: &AuthenticationError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "bad key"}, StatusCode: 401,
		}},
	}
	client := NewClient(WithProvider("a", adapter), WithRetryPolicy(fastPolicy()))

	_, err := client.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if adapter.callCount != 1 {
		t.Errorf("non-retryable error was retried: %d calls", adapter.callCount)
	}
}

func TestClientStreamRetriesOpenFailure(t *testing.T) {
	adapter := &mockAdapter{
		name:     "a",
		failures: 1, failWith: transientServerError(),
		events: []StreamEvent{
			{Type: StreamStart},
			{Type: TextDelta, Delta: "ok"},
			{Type: StreamFinish},
		},
	}
	client := NewClient(WithProvider("a", adapter), WithRetryPolicy(fastPolicy()))

	events, err := client.Stream(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Stream failed after retry: %v", err)
	}
	var deltas string
	for ev := range events {
		if ev.Type == TextDelta {
			deltas += ev.Delta
		}
	}
	if deltas != "ok" {
		t.Errorf("accumulated deltas %q, want ok", deltas)
	}
	if adapter.callCount != 2 {
		t.Errorf("adapter called %d times, want 2", adapter.callCount)
	}
}

func TestClientFillsRequestProvider(t *testing.T) {
	adapter := &mockAdapter{name: "a", response: textResponse("ok")}
	client := NewClient(WithProvider("a", adapter))

	if _, err := client.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if adapter.lastReq.Provider != "a" {
		t.Errorf("adapter saw provider %q, want a", adapter.lastReq.Provider)
	}
}
