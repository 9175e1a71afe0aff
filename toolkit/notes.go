package toolkit

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jgreely/concierge/assistant"
)

// Note is one notebook entry.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Notebook is an in-memory note store, safe for concurrent exchanges.
type Notebook struct {
	mu    sync.RWMutex
	notes map[string]Note
	now   func() time.Time
}

// NewNotebook creates a Notebook seeded with the given notes.
func NewNotebook(seed ...Note) *Notebook {
	n := &Notebook{
		notes: make(map[string]Note, len(seed)),
		now:   time.Now,
	}
	for _, note := range seed {
		if note.ID == "" {
			note.ID = uuid.New().String()
		}
		n.notes[note.ID] = note
	}
	return n
}

// Search returns notes whose title or body contains the query,
// case-insensitively, newest first. An empty query matches everything.
func (n *Notebook) Search(query string) []Note {
	n.mu.RLock()
	defer n.mu.RUnlock()

	q := strings.ToLower(query)
	var out []Note
	for _, note := range n.notes {
		if q == "" ||
			strings.Contains(strings.ToLower(note.Title), q) ||
			strings.Contains(strings.ToLower(note.Body), q) {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Create adds a note and returns it with its assigned id.
func (n *Notebook) Create(title, body string) Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	note := Note{
		ID:        uuid.New().String(),
		Title:     title,
		Body:      body,
		CreatedAt: n.now().UTC(),
	}
	n.notes[note.ID] = note
	return note
}

type searchNotesArgs struct {
	Query string `json:"query,omitempty" jsonschema:"description=Substring to match against note titles and bodies; omit for all notes"`
}

type createNoteArgs struct {
	Title string `json:"title" jsonschema:"description=Note title"`
	Body  string `json:"body" jsonschema:"description=Note body text"`
}

// NotebookTools returns the notebook tool set: search_notes is read-only,
// create_note mutates and requires confirmation.
func NotebookTools(nb *Notebook) []assistant.Tool {
	return []assistant.Tool{
		{
			Name:           "search_notes",
			Description:    "Search notes by substring match on title and body.",
			InputSchema:    schemaFor[searchNotesArgs](),
			Classification: assistant.ClassificationRead,
			Execute: func(_ context.Context, input json.RawMessage) (string, error) {
				var args searchNotesArgs
				if err := unmarshalArgs(input, &args); err != nil {
					return "", err
				}
				return marshalResult(nb.Search(args.Query))
			},
		},
		{
			Name:           "create_note",
			Description:    "Create a note.",
			InputSchema:    schemaFor[createNoteArgs](),
			Classification: assistant.ClassificationWrite,
			Execute: func(_ context.Context, input json.RawMessage) (string, error) {
				var args createNoteArgs
				if err := unmarshalArgs(input, &args); err != nil {
					return "", err
				}
				return marshalResult(nb.Create(args.Title, args.Body))
			},
		},
	}
}
