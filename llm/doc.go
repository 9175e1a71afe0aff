// Package llm is a provider-agnostic LLM client layer built on top of the
// gollm library (github.com/teilomillet/gollm).
//
// It defines a small typed message protocol (text, tool-call, tool-result and
// thinking content parts), a ProviderAdapter interface for backends, a Client
// that routes requests to adapters through optional middleware, retry with
// exponential backoff for retryable provider errors, and a model catalog
// carrying context-window and pricing metadata.
//
// The assistant package drives this layer one streaming call per model round;
// nothing in this package loops or executes tools.
//
// Quick start:
//
//	adapter, _ := llm.NewGollmAdapter("anthropic", "")
//	client := llm.NewClient(llm.WithProvider("anthropic", adapter))
//
//	events, _ := client.Stream(ctx, llm.Request{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//	for ev := range events {
//	    if ev.Type == llm.TextDelta {
//	        fmt.Print(ev.Delta)
//	    }
//	}
package llm
