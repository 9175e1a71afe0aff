// Package assistant implements a streaming tool-orchestration loop for an
// LLM-backed assistant with human-in-the-loop approval of mutating actions.
//
// One call to Orchestrator.Run handles one exchange: a user message goes in,
// a bounded loop of model rounds and tool dispatch runs, and a typed event
// stream comes out. Tools are classified read or write in the Registry:
// read tools execute immediately and their results feed back into the next
// model round; write tools are never executed in the round that requested
// them. Instead the stream carries a confirmation request, and the approved action
// comes back on a later exchange as a ConfirmedAction.
//
// The orchestrator only emits events. Persistence is the caller's concern:
// after the stream terminates with a done event, the caller appends the
// finalized user and assistant turns (with accumulated token usage) to a
// Store.
//
// # Event grammar
//
// Per exchange the stream is a sequence of delta, tool_call, tool_result and
// tool_confirmation_required events in strict causal order, terminated by
// exactly one done or error event. Every tool_call is answered by exactly one
// tool_result or tool_confirmation_required before the next model round.
//
// # Quick start
//
//	reg, _ := assistant.NewRegistry(toolkit.CalendarTools(cal)...)
//	orch := assistant.NewOrchestrator(client)
//
//	sink := assistant.NewChannelSink(64)
//	go func() {
//	    defer sink.Close()
//	    orch.Run(ctx, assistant.ExchangeRequest{
//	        Message: "what's on my calendar today?",
//	        Model:   "claude-sonnet-4-5",
//	        Tools:   reg,
//	    }, sink)
//	}()
//	for ev := range sink.Events() {
//	    // forward to the client, e.g. as server-sent events
//	}
package assistant
