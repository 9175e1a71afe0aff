package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrConversationNotFound is returned by stores for unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is an ordered, append-only sequence of turns identified by an
// opaque id. It is created on first message and mutated only by appends
// (plus explicit replacement and deletion).
type Conversation struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the conversation persistence contract consumed by the
// orchestrator's caller. The orchestrator itself never touches storage; the
// calling layer persists finalized turns after the stream completes, which
// keeps the loop testable without a database.
type Store interface {
	CreateConversation(ctx context.Context) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	AppendTurns(ctx context.Context, id string, turns ...Turn) error
	ReplaceTurns(ctx context.Context, id string, turns []Turn) error
	DeleteConversation(ctx context.Context, id string) error
}

// MemoryStore keeps conversations in process memory. Used in tests and as
// the default store when no durable backend is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	now           func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		now:           time.Now,
	}
}

// CreateConversation allocates a new empty conversation with a fresh id.
func (s *MemoryStore) CreateConversation(_ context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	conv := &Conversation{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	return cloneConversation(conv), nil
}

// GetConversation returns a copy of the conversation.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

// AppendTurns appends finalized turns to the conversation.
func (s *MemoryStore) AppendTurns(_ context.Context, id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Turns = append(conv.Turns, cloneTurns(turns)...)
	conv.UpdatedAt = s.now().UTC()
	return nil
}

// ReplaceTurns replaces the conversation's turns wholesale.
func (s *MemoryStore) ReplaceTurns(_ context.Context, id string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Turns = cloneTurns(turns)
	conv.UpdatedAt = s.now().UTC()
	return nil
}

// DeleteConversation removes the conversation. Deleting an unknown id is an
// error so callers can distinguish a stale reference.
func (s *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	return nil
}

func cloneConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Turns = cloneTurns(conv.Turns)
	return &out
}

func cloneTurns(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

var _ Store = (*MemoryStore)(nil)
