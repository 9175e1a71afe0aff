// Package httpserver exposes the assistant over HTTP. The chat endpoint
// streams exchange events as server-sent events; conversation endpoints are
// thin reads over the store.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/jgreely/concierge/assistant"
	"github.com/jgreely/concierge/llm"
)

// DefaultSystemPrompt frames the assistant when the server is not configured
// with one.
const DefaultSystemPrompt = "You are a personal assistant with access to the user's calendar and notes. " +
	"Use the available tools when they help answer the question. " +
	"Mutating actions are sent to the user for confirmation before they run."

// Server wires the orchestrator, tool registry, store and rate limiter into
// an HTTP handler.
type Server struct {
	Orchestrator *assistant.Orchestrator
	Store        assistant.Store
	Registry     *assistant.Registry
	Limiter      *assistant.SlidingWindow

	DefaultModel string
	SystemPrompt string
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/assistant/chat", s.handleChat)
	mux.HandleFunc("GET /api/assistant/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /api/assistant/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /api/assistant/models", s.handleListModels)

	return mux
}

type chatRequest struct {
	ConversationID   string                      `json:"conversation_id,omitempty"`
	Message          string                      `json:"message"`
	Model            string                      `json:"model,omitempty"`
	ToolsEnabled     bool                        `json:"tools_enabled"`
	WebSearchEnabled bool                        `json:"web_search_enabled"`
	ConfirmedActions []assistant.ConfirmedAction `json:"confirmed_actions,omitempty"`
}

// handleChat runs one exchange and streams its events as SSE. Validation and
// rate limiting happen before the stream opens; once streaming has started,
// failures surface as in-stream error events, not HTTP status codes.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}
	for _, ca := range body.ConfirmedActions {
		if ca.ToolID == "" || ca.ToolName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "confirmed action requires tool_id and tool_name"})
			return
		}
	}

	if s.Limiter != nil {
		if ok, retryAfter := s.Limiter.Allow(clientKey(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
			return
		}
	}

	ctx := r.Context()
	var conv *assistant.Conversation
	var err error
	if body.ConversationID != "" {
		conv, err = s.Store.GetConversation(ctx, body.ConversationID)
		if errors.Is(err, assistant.ErrConversationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "conversation not found"})
			return
		}
	} else {
		conv, err = s.Store.CreateConversation(ctx)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "streaming unsupported"})
		return
	}

	model := body.Model
	if model == "" {
		model = s.DefaultModel
	}
	systemPrompt := s.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	var tools *assistant.Registry
	if body.ToolsEnabled {
		tools = s.Registry
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Conversation-Id", conv.ID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := assistant.NewChannelSink(64)
	resultCh := make(chan *assistant.ExchangeResult, 1)

	go func() {
		defer sink.Close()
		result, _ := s.Orchestrator.Run(ctx, assistant.ExchangeRequest{
			SystemPrompt:     systemPrompt,
			History:          conv.Turns,
			Message:          body.Message,
			Model:            model,
			Tools:            tools,
			WebSearch:        body.WebSearchEnabled,
			Source:           "web",
			ConfirmedActions: body.ConfirmedActions,
		}, sink)
		resultCh <- result
	}()

	for ev := range sink.Events() {
		data, merr := json.Marshal(ev)
		if merr != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	// Persistence happens strictly after stream closure, and only for
	// exchanges that reached done: error exchanges discard their usage.
	if result := <-resultCh; result != nil {
		_ = s.Store.AppendTurns(ctx, conv.ID,
			assistant.NewUserTurn(body.Message),
			assistant.NewAssistantTurn(result.AssistantText, &assistant.TokenUsage{
				InputTokens:  result.Usage.InputTokens,
				OutputTokens: result.Usage.OutputTokens,
				CostUSD:      result.Usage.CostUSD,
			}),
		)
	}
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Store.GetConversation(r.Context(), r.PathValue("id"))
	if errors.Is(err, assistant.ErrConversationNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "conversation not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := s.Store.DeleteConversation(r.Context(), r.PathValue("id"))
	if errors.Is(err, assistant.ErrConversationNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "conversation not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": llm.ListModels(r.URL.Query().Get("provider"))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientKey identifies the caller for rate limiting: the remote host, unless
// a proxy forwarded the original address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
