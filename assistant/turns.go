package assistant

import (
	"time"

	"github.com/jgreely/concierge/llm"
)

// TurnRole discriminates persisted turn ownership.
type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// TokenUsage is the accounting metadata persisted with an assistant turn.
// It reflects the sum for the whole exchange, not per-round values.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Turn is one finalized entry in a conversation. Content is a sequence of
// typed blocks because the model protocol interleaves narration with
// structured actions; plain-text turns carry a single text block.
type Turn struct {
	Role      TurnRole          `json:"role"`
	Content   []llm.ContentPart `json:"content"`
	Usage     *TokenUsage       `json:"usage,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewUserTurn creates a plain-text user turn.
func NewUserTurn(text string) Turn {
	return Turn{
		Role:      TurnUser,
		Content:   []llm.ContentPart{llm.TextPart(text)},
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantTurn creates a plain-text assistant turn with exchange usage.
func NewAssistantTurn(text string, usage *TokenUsage) Turn {
	return Turn{
		Role:      TurnAssistant,
		Content:   []llm.ContentPart{llm.TextPart(text)},
		Usage:     usage,
		Timestamp: time.Now().UTC(),
	}
}

// Text returns the concatenated text blocks of the turn.
func (t Turn) Text() string {
	var out string
	for _, part := range t.Content {
		if part.Kind == llm.ContentText {
			out += part.Text
		}
	}
	return out
}

// TurnsToMessages converts persisted turns into model messages for the next
// exchange's request.
func TurnsToMessages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == TurnAssistant {
			role = llm.RoleAssistant
		}
		content := make([]llm.ContentPart, len(turn.Content))
		copy(content, turn.Content)
		msgs = append(msgs, llm.Message{Role: role, Content: content})
	}
	return msgs
}
