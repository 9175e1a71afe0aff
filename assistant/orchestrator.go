package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jgreely/concierge/llm"
)

// DefaultMaxIterations bounds model rounds per exchange. Hitting the ceiling
// is graceful completion, not an error: the caller still gets usable partial
// output and accurate usage.
const DefaultMaxIterations = 15

const defaultGuardWindow = 6

// ErrEmptyMessage is returned when an exchange is started without a user
// message. No events are emitted; callers reject this before opening a
// stream.
var ErrEmptyMessage = errors.New("exchange requires a user message")

// ConfirmedAction is a write tool invocation the human has explicitly
// approved, echoed back by the client on a follow-up exchange.
type ConfirmedAction struct {
	ToolID   string          `json:"tool_id"`
	ToolName string          `json:"tool_name"`
	Input    json.RawMessage `json:"input"`
}

// ExchangeRequest is the input to one exchange.
type ExchangeRequest struct {
	SystemPrompt     string
	History          []Turn
	Message          string
	Model            string
	Tools            *Registry // nil disables tool use
	WebSearch        bool      // forwards a provider-native web search declaration
	Source           string    // provenance tag carried in request metadata
	ConfirmedActions []ConfirmedAction
}

// ExchangeResult summarizes a completed exchange for persistence. It is only
// returned when the stream terminated with a done event; on error exchanges
// accumulated usage is discarded.
type ExchangeResult struct {
	AssistantText string
	Usage         ExchangeUsage
}

// Orchestrator drives the bounded loop of model rounds and tool dispatch for
// one exchange at a time. It holds no per-exchange state and is safe for
// concurrent Run calls.
type Orchestrator struct {
	client        *llm.Client
	maxIterations int
	guardWindow   int
	outputLimit   int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxIterations overrides the model-round ceiling.
func WithMaxIterations(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithGuardWindow overrides the repeated-call detection window. Zero
// disables the guard.
func WithGuardWindow(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.guardWindow = n
	}
}

// WithToolOutputLimit overrides the per-result character cap applied before
// a tool result is re-injected into model context.
func WithToolOutputLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.outputLimit = n
		}
	}
}

// NewOrchestrator creates an Orchestrator on top of the given client.
func NewOrchestrator(client *llm.Client, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:        client,
		maxIterations: DefaultMaxIterations,
		guardWindow:   defaultGuardWindow,
		outputLimit:   defaultToolOutputLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one exchange, emitting events to sink in strict causal order.
// The stream carries exactly one terminal event: done on success (including
// iteration-ceiling exhaustion) or error on model failure. The returned
// result is non-nil exactly when done was emitted. Run never closes the
// sink; the caller owns its lifecycle.
func (o *Orchestrator) Run(ctx context.Context, req ExchangeRequest, sink EventSink) (*ExchangeResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	userText := req.Message

	// Seed: execute confirmed actions before any model call, then splice a
	// summary of the outcomes into the front of the user message so the model
	// sees what happened.
	if len(req.ConfirmedActions) > 0 {
		summary, err := o.replayConfirmedActions(ctx, req, sink)
		if err != nil {
			return nil, err
		}
		userText = summary + "\n\n" + userText
	}

	messages := make([]llm.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, TurnsToMessages(req.History)...)
	messages = append(messages, llm.UserMessage(userText))

	var toolDefs []llm.ToolDefinition
	var toolChoice *llm.ToolChoice
	if req.Tools != nil && req.Tools.Len() > 0 {
		for _, ts := range req.Tools.Schemas() {
			toolDefs = append(toolDefs, llm.ToolDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  ts.InputSchema,
			})
		}
		toolChoice = &llm.ToolChoice{Mode: "auto"}
	}

	var providerOpts map[string]any
	if req.WebSearch {
		providerOpts = map[string]any{"web_search": true}
	}
	var metadata map[string]string
	if req.Source != "" {
		metadata = map[string]string{"source": req.Source}
	}

	guard := newCallGuard(o.guardWindow)
	var totalUsage llm.Usage
	var textParts []string
	iterations := 0

	for iterations < o.maxIterations {
		resp, err := o.modelRound(ctx, llm.Request{
			Model:           req.Model,
			Messages:        messages,
			ToolDefs:        toolDefs,
			ToolChoice:      toolChoice,
			Metadata:        metadata,
			ProviderOptions: providerOpts,
		}, sink)
		if err != nil {
			return nil, err
		}
		iterations++
		totalUsage = totalUsage.Add(resp.Usage)

		if text := resp.Text(); text != "" {
			textParts = append(textParts, text)
		}

		toolCalls := resp.ToolCallsFromResponse()
		if len(toolCalls) == 0 {
			// Natural completion: no tool work requested this round.
			break
		}

		// Answer every tool_use with exactly one tool-result block before the
		// next model call, whether executed, failed, or deferred.
		messages = append(messages, resp.Message)
		resultMsgs, err := o.dispatchToolCalls(ctx, req.Tools, toolCalls, sink)
		if err != nil {
			return nil, err
		}
		messages = append(messages, resultMsgs...)

		if guard.record(toolCalls) {
			messages = append(messages, llm.UserMessage(
				"Your recent tool calls follow a repeating pattern. Try a different approach or summarize what you have."))
		}
	}

	usage := ExchangeUsage{
		InputTokens:  totalUsage.InputTokens,
		OutputTokens: totalUsage.OutputTokens,
		CostUSD:      Cost(req.Model, totalUsage.InputTokens, totalUsage.OutputTokens),
		Model:        req.Model,
		Iterations:   iterations,
	}
	if err := emit(ctx, sink, Event{Type: EventDone, Usage: &usage}); err != nil {
		return nil, err
	}

	return &ExchangeResult{
		AssistantText: strings.Join(textParts, "\n\n"),
		Usage:         usage,
	}, nil
}

// modelRound issues one streaming model call, forwarding text deltas as they
// arrive and returning the accumulated response. Model failure is fatal to
// the exchange: one error event, then the error propagates.
func (o *Orchestrator) modelRound(ctx context.Context, req llm.Request, sink EventSink) (*llm.Response, error) {
	events, err := o.client.Stream(ctx, req)
	if err != nil {
		return nil, o.fatal(ctx, sink, err)
	}

	acc := llm.NewStreamAccumulator()
	for ev := range events {
		switch ev.Type {
		case llm.TextDelta:
			if err := emit(ctx, sink, Event{Type: EventDelta, Text: ev.Delta}); err != nil {
				return nil, err
			}
		case llm.StreamError:
			return nil, o.fatal(ctx, sink, ev.Error)
		}
		acc.Process(ev)
	}

	return acc.Response(), nil
}

// dispatchToolCalls handles one round's tool calls sequentially in emission
// order: read tools execute immediately, write tools get a confirmation
// request plus a synthetic deferred result, unknown names get an error
// result. Returns the tool-result messages to append to the running history.
func (o *Orchestrator) dispatchToolCalls(ctx context.Context, reg *Registry, calls []llm.ToolCall, sink EventSink) ([]llm.Message, error) {
	resultMsgs := make([]llm.Message, 0, len(calls))

	for _, tc := range calls {
		if err := emit(ctx, sink, Event{
			Type:     EventToolCall,
			ToolID:   tc.ID,
			ToolName: tc.Name,
			Input:    tc.Arguments,
		}); err != nil {
			return nil, err
		}

		var tool *Tool
		if reg != nil {
			tool, _ = reg.Get(tc.Name)
		}

		switch {
		case tool == nil:
			// Hallucinated name: same path as an execution error.
			errMsg := fmt.Sprintf("Unknown tool: %s", tc.Name)
			if err := emit(ctx, sink, Event{
				Type: EventToolResult, ToolID: tc.ID, ToolName: tc.Name,
				Result: errMsg, IsError: true,
			}); err != nil {
				return nil, err
			}
			resultMsgs = append(resultMsgs, llm.ToolResultMessage(tc.ID, errMsg, true))

		case tool.Classification == ClassificationWrite:
			// Withhold execution; the synthetic result keeps the tool-protocol
			// transcript valid without performing the side effect.
			if err := emit(ctx, sink, Event{
				Type: EventToolConfirmation, ToolID: tc.ID, ToolName: tc.Name,
				Input: tc.Arguments,
			}); err != nil {
				return nil, err
			}
			notice := fmt.Sprintf(
				"The %s action requires explicit user confirmation and has NOT been executed. "+
					"The user has been asked to approve it; do not assume it succeeded.", tc.Name)
			resultMsgs = append(resultMsgs, llm.ToolResultMessage(tc.ID, notice, false))

		default:
			result, execErr := tool.run(ctx, tc.Arguments)
			if execErr != nil {
				errMsg := fmt.Sprintf("Tool error (%s): %v", tc.Name, execErr)
				if err := emit(ctx, sink, Event{
					Type: EventToolResult, ToolID: tc.ID, ToolName: tc.Name,
					Result: errMsg, IsError: true,
				}); err != nil {
					return nil, err
				}
				resultMsgs = append(resultMsgs, llm.ToolResultMessage(tc.ID, errMsg, true))
				break
			}
			// The event stream carries the full output; the model sees it
			// clamped.
			if err := emit(ctx, sink, Event{
				Type: EventToolResult, ToolID: tc.ID, ToolName: tc.Name,
				Result: result,
			}); err != nil {
				return nil, err
			}
			resultMsgs = append(resultMsgs, llm.ToolResultMessage(tc.ID, truncateToolOutput(result, o.outputLimit), false))
		}
	}

	return resultMsgs, nil
}

// replayConfirmedActions executes previously approved actions regardless of
// classification (the approval already happened), emits their results, and
// returns a textual summary to splice into the user message. An action whose
// tool no longer resolves yields an error result and the exchange continues.
func (o *Orchestrator) replayConfirmedActions(ctx context.Context, req ExchangeRequest, sink EventSink) (string, error) {
	lines := make([]string, 0, len(req.ConfirmedActions))

	for _, ca := range req.ConfirmedActions {
		var tool *Tool
		if req.Tools != nil {
			tool, _ = req.Tools.Get(ca.ToolName)
		}

		var result string
		var isErr bool
		if tool == nil {
			result = fmt.Sprintf("Unknown tool: %s", ca.ToolName)
			isErr = true
		} else if out, err := tool.run(ctx, ca.Input); err != nil {
			result = fmt.Sprintf("Tool error (%s): %v", ca.ToolName, err)
			isErr = true
		} else {
			result = out
		}

		if err := emit(ctx, sink, Event{
			Type: EventToolResult, ToolID: ca.ToolID, ToolName: ca.ToolName,
			Result: result, IsError: isErr,
		}); err != nil {
			return "", err
		}

		status := "succeeded"
		if isErr {
			status = "failed"
		}
		lines = append(lines, fmt.Sprintf("- %s %s: %s", ca.ToolName, status, truncateToolOutput(result, o.outputLimit)))
	}

	return "The user approved the pending actions. Results:\n" + strings.Join(lines, "\n"), nil
}

// fatal emits the single error event for an unrecoverable model failure and
// returns the cause. Usage accumulated so far is discarded with the exchange.
func (o *Orchestrator) fatal(ctx context.Context, sink EventSink, cause error) error {
	if cause == nil {
		cause = errors.New("model stream failed")
	}
	// Best effort: the consumer may already be gone.
	_ = emit(ctx, sink, Event{Type: EventError, Error: cause.Error()})
	return cause
}

func emit(ctx context.Context, sink EventSink, ev Event) error {
	ev.Timestamp = time.Now().UTC()
	return sink.Emit(ctx, ev)
}
