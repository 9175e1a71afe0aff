package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jgreely/concierge/assistant"
)

// CalendarEvent is one scheduled entry.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
}

// Calendar is an in-memory event store, safe for concurrent exchanges.
type Calendar struct {
	mu     sync.RWMutex
	events map[string]CalendarEvent
	now    func() time.Time
}

// NewCalendar creates a Calendar seeded with the given events. Events
// without an id get one.
func NewCalendar(seed ...CalendarEvent) *Calendar {
	c := &Calendar{
		events: make(map[string]CalendarEvent, len(seed)),
		now:    time.Now,
	}
	for _, ev := range seed {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		c.events[ev.ID] = ev
	}
	return c
}

// List returns events overlapping the given day (UTC), sorted by start time.
// A zero day returns everything.
func (c *Calendar) List(day time.Time) []CalendarEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []CalendarEvent
	for _, ev := range c.events {
		if !day.IsZero() {
			dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
			dayEnd := dayStart.Add(24 * time.Hour)
			if ev.End.Before(dayStart) || !ev.Start.Before(dayEnd) {
				continue
			}
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Create adds an event and returns it with its assigned id.
func (c *Calendar) Create(ev CalendarEvent) CalendarEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev.ID = uuid.New().String()
	c.events[ev.ID] = ev
	return ev
}

// Delete removes an event by id.
func (c *Calendar) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[id]; !ok {
		return fmt.Errorf("no event with id %s", id)
	}
	delete(c.events, id)
	return nil
}

type listEventsArgs struct {
	Date string `json:"date,omitempty" jsonschema:"description=Day to list in YYYY-MM-DD form; omit for all events"`
}

type createEventArgs struct {
	Title    string `json:"title" jsonschema:"description=Event title"`
	Start    string `json:"start" jsonschema:"description=Start time in RFC 3339 form"`
	End      string `json:"end" jsonschema:"description=End time in RFC 3339 form"`
	Location string `json:"location,omitempty" jsonschema:"description=Optional location"`
}

type deleteEventArgs struct {
	EventID string `json:"event_id" jsonschema:"description=Id of the event to delete"`
}

// CalendarTools returns the calendar tool set: list_events is read-only,
// create_event and delete_event mutate and require confirmation.
func CalendarTools(cal *Calendar) []assistant.Tool {
	return []assistant.Tool{
		{
			Name:           "list_events",
			Description:    "List calendar events, optionally restricted to one day.",
			InputSchema:    schemaFor[listEventsArgs](),
			Classification: assistant.ClassificationRead,
			Execute: func(_ context.Context, input json.RawMessage) (string, error) {
				var args listEventsArgs
				if err := unmarshalArgs(input, &args); err != nil {
					return "", err
				}
				var day time.Time
				if args.Date != "" {
					parsed, err := time.Parse("2006-01-02", args.Date)
					if err != nil {
						return "", fmt.Errorf("invalid date %q: %w", args.Date, err)
					}
					day = parsed
				}
				return marshalResult(cal.List(day))
			},
		},
		{
			Name:           "create_event",
			Description:    "Create a calendar event.",
			InputSchema:    schemaFor[createEventArgs](),
			Classification: assistant.ClassificationWrite,
			Execute: func(_ context.Context, input json.RawMessage) (string, error) {
				var args createEventArgs
				if err := unmarshalArgs(input, &args); err != nil {
					return "", err
				}
				start, err := time.Parse(time.RFC3339, args.Start)
				if err != nil {
					return "", fmt.Errorf("invalid start time %q: %w", args.Start, err)
				}
				end, err := time.Parse(time.RFC3339, args.End)
				if err != nil {
					return "", fmt.Errorf("invalid end time %q: %w", args.End, err)
				}
				if !end.After(start) {
					return "", fmt.Errorf("end time must be after start time")
				}
				created := cal.Create(CalendarEvent{
					Title:    args.Title,
					Start:    start,
					End:      end,
					Location: args.Location,
				})
				return marshalResult(created)
			},
		},
		{
			Name:           "delete_event",
			Description:    "Delete a calendar event by id.",
			InputSchema:    schemaFor[deleteEventArgs](),
			Classification: assistant.ClassificationWrite,
			Execute: func(_ context.Context, input json.RawMessage) (string, error) {
				var args deleteEventArgs
				if err := unmarshalArgs(input, &args); err != nil {
					return "", err
				}
				if err := cal.Delete(args.EventID); err != nil {
					return "", err
				}
				return marshalResult(map[string]string{"deleted": args.EventID})
			},
		},
	}
}

func unmarshalArgs(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
