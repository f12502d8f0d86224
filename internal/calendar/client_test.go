package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	calendar "google.golang.org/api/calendar/v3"
)

func TestToModelEvent(t *testing.T) {
	event := &calendar.Event{
		ICalUID:   "uid-1@google.com",
		Summary:   "Planning",
		Location:  "Room 4",
		Status:    "confirmed",
		Organizer: &calendar.EventOrganizer{Email: "organizer@example.com"},
		Attendees: []*calendar.EventAttendee{
			{Email: "organizer@example.com", ResponseStatus: "accepted"},
			{Email: "me@example.com", Self: true, ResponseStatus: "needsAction"},
		},
		Start: &calendar.EventDateTime{DateTime: "2024-01-15T14:00:00Z"},
		End:   &calendar.EventDateTime{DateTime: "2024-01-15T15:00:00Z"},
	}

	got := toModelEvent(event)

	assert.Equal(t, "uid-1@google.com", got.UID)
	assert.Equal(t, "Planning", got.Title)
	assert.Equal(t, "organizer@example.com", got.Organizer)
	assert.Equal(t, []string{"organizer@example.com", "me@example.com"}, got.Attendees)
	assert.Equal(t, "needsAction", got.ResponseStatus)
	assert.False(t, got.IsAllDay)
	assert.Equal(t, int64(1705327200), got.StartTS)
	assert.Equal(t, int64(1705330800), got.EndTS)
}

func TestToModelEventAllDayAndUntitled(t *testing.T) {
	event := &calendar.Event{
		Start: &calendar.EventDateTime{Date: "2024-03-01"},
		End:   &calendar.EventDateTime{Date: "2024-03-02"},
	}

	got := toModelEvent(event)

	assert.Equal(t, "(No title)", got.Title)
	assert.True(t, got.IsAllDay)
	assert.Equal(t, int64(1709251200), got.StartTS)
}

func TestEventTimeNil(t *testing.T) {
	ts, allDay := eventTime(nil)
	assert.Zero(t, ts)
	assert.False(t, allDay)
}
