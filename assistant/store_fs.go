package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FSStore persists each conversation as one JSON document under a directory.
// Writes go through a temp file plus rename so a crash never leaves a
// half-written conversation. Concurrent writers to the same id are
// last-write-wins, guarded only within this process.
type FSStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFSStore creates the directory if needed and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FSStore{dir: dir, now: time.Now}, nil
}

func (s *FSStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// CreateConversation allocates a new conversation document.
func (s *FSStore) CreateConversation(_ context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	conv := &Conversation{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation loads a conversation document.
func (s *FSStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// AppendTurns loads, appends, and rewrites the conversation document.
func (s *FSStore) AppendTurns(_ context.Context, id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.read(id)
	if err != nil {
		return err
	}
	conv.Turns = append(conv.Turns, turns...)
	conv.UpdatedAt = s.now().UTC()
	return s.write(conv)
}

// ReplaceTurns rewrites the conversation's turns wholesale.
func (s *FSStore) ReplaceTurns(_ context.Context, id string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.read(id)
	if err != nil {
		return err
	}
	conv.Turns = turns
	conv.UpdatedAt = s.now().UTC()
	return s.write(conv)
}

// DeleteConversation removes the conversation document.
func (s *FSStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrConversationNotFound
	}
	return err
}

func (s *FSStore) read(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (s *FSStore) write(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "conv-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(conv.ID))
}

var _ Store = (*FSStore)(nil)
