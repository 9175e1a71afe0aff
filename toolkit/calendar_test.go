package toolkit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgreely/concierge/assistant"
)

func calendarRegistry(t *testing.T, cal *Calendar) *assistant.Registry {
	t.Helper()
	reg, err := assistant.NewRegistry(CalendarTools(cal)...)
	require.NoError(t, err)
	return reg
}

func runTool(t *testing.T, reg *assistant.Registry, name, input string) (string, error) {
	t.Helper()
	tool, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	return tool.Execute(context.Background(), json.RawMessage(input))
}

func TestCalendarListByDay(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar(
		CalendarEvent{Title: "standup", Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 15*time.Minute)},
		CalendarEvent{Title: "lunch", Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)},
		CalendarEvent{Title: "next week", Start: day.AddDate(0, 0, 7), End: day.AddDate(0, 0, 7).Add(time.Hour)},
	)

	events := cal.List(day)
	require.Len(t, events, 2)
	assert.Equal(t, "standup", events[0].Title, "sorted by start time")
	assert.Equal(t, "lunch", events[1].Title)

	all := cal.List(time.Time{})
	assert.Len(t, all, 3)
}

func TestCalendarToolClassifications(t *testing.T) {
	reg := calendarRegistry(t, NewCalendar())
	assert.False(t, reg.IsWrite("list_events"))
	assert.True(t, reg.IsWrite("create_event"))
	assert.True(t, reg.IsWrite("delete_event"))
}

func TestListEventsTool(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar(CalendarEvent{
		Title: "standup", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour),
	})
	reg := calendarRegistry(t, cal)

	out, err := runTool(t, reg, "list_events", `{"date":"2026-03-10"}`)
	require.NoError(t, err)
	var events []CalendarEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "standup", events[0].Title)

	_, err = runTool(t, reg, "list_events", `{"date":"not-a-date"}`)
	assert.Error(t, err)
}

func TestCreateEventTool(t *testing.T) {
	cal := NewCalendar()
	reg := calendarRegistry(t, cal)

	out, err := runTool(t, reg, "create_event",
		`{"title":"dentist","start":"2026-03-11T14:00:00Z","end":"2026-03-11T15:00:00Z","location":"downtown"}`)
	require.NoError(t, err)

	var created CalendarEvent
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "dentist", created.Title)
	assert.Equal(t, "downtown", created.Location)
	assert.Len(t, cal.List(time.Time{}), 1)
}

func TestCreateEventToolRejectsBadTimes(t *testing.T) {
	reg := calendarRegistry(t, NewCalendar())

	_, err := runTool(t, reg, "create_event",
		`{"title":"x","start":"tomorrow","end":"2026-03-11T15:00:00Z"}`)
	assert.Error(t, err)

	_, err = runTool(t, reg, "create_event",
		`{"title":"x","start":"2026-03-11T15:00:00Z","end":"2026-03-11T14:00:00Z"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end time must be after start time")
}

func TestDeleteEventTool(t *testing.T) {
	cal := NewCalendar(CalendarEvent{
		ID: "ev-1", Title: "cancel me",
		Start: time.Now(), End: time.Now().Add(time.Hour),
	})
	reg := calendarRegistry(t, cal)

	_, err := runTool(t, reg, "delete_event", `{"event_id":"ev-1"}`)
	require.NoError(t, err)
	assert.Empty(t, cal.List(time.Time{}))

	_, err = runTool(t, reg, "delete_event", `{"event_id":"ev-1"}`)
	assert.Error(t, err, "deleting a missing event reports an error")
}

func TestCalendarSchemasValidateThroughRegistry(t *testing.T) {
	reg := calendarRegistry(t, NewCalendar())
	schemas := reg.Schemas()
	require.Len(t, schemas, 3)
	for _, s := range schemas {
		assert.Equal(t, "object", s.InputSchema["type"], "schema for %s", s.Name)
	}
}
