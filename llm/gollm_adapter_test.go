package llm

import (
	"errors"
	"testing"
)

func TestTranslateErrorMapsToStatusTaxonomy(t *testing.T) {
	a := &GollmAdapter{provider: "openai"}

	tests := []struct {
		message   string
		wantType  string
		retryable bool
	}{
		{"API error: 401 unauthorized", "*llm.AuthenticationError", false},
		{"request forbidden by policy", "*llm.AccessDeniedError", false},
		{"model not found", "*llm.NotFoundError", false},
		{"rate limit exceeded, slow down", "*llm.RateLimitError", true},
		{"prompt exceeds context length", "*llm.ContextLengthError", false},
		{"500 internal server error", "*llm.ServerError", true},
		{"request timeout after 30s", "*llm.RequestTimeoutError", true},
	}

	for _, tt := range tests {
		got := a.translateError(errors.New(tt.message))
		if typeName(got) != tt.wantType {
			t.Errorf("%q: got %s, want %s", tt.message, typeName(got), tt.wantType)
		}
		if IsRetryable(got) != tt.retryable {
			t.Errorf("%q: IsRetryable=%v, want %v", tt.message, IsRetryable(got), tt.retryable)
		}
	}
}

func TestTranslateErrorCarriesProviderAndStatus(t *testing.T) {
	a := &GollmAdapter{provider: "anthropic"}

	got := a.translateError(errors.New("rate limit exceeded"))
	rl, ok := got.(*RateLimitError)
	if !ok {
		t.Fatalf("got %T, want *RateLimitError", got)
	}
	if rl.Provider != "anthropic" || rl.StatusCode != 429 {
		t.Errorf("provider=%q status=%d, want anthropic/429", rl.Provider, rl.StatusCode)
	}
}

func TestTranslateErrorContentFilter(t *testing.T) {
	a := &GollmAdapter{provider: "openai"}
	got := a.translateError(errors.New("response blocked by content filter"))
	if _, ok := got.(*ContentFilterError); !ok {
		t.Fatalf("got %T, want *ContentFilterError", got)
	}
	if IsRetryable(got) {
		t.Error("content filter errors must not be retried")
	}
}

func TestTranslateErrorUnrecognizedIsNetwork(t *testing.T) {
	a := &GollmAdapter{provider: "openai"}
	got := a.translateError(errors.New("connection reset by peer"))
	if _, ok := got.(*NetworkError); !ok {
		t.Fatalf("got %T, want *NetworkError", got)
	}
}

func TestTranslateErrorNil(t *testing.T) {
	a := &GollmAdapter{provider: "openai"}
	if got := a.translateError(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
