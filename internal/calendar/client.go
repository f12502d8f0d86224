package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/postamail/posta/internal/model"
)

// Valid RSVP responses accepted by Respond.
const (
	ResponseAccepted  = "accepted"
	ResponseDeclined  = "declined"
	ResponseTentative = "tentative"
)

const primaryCalendar = "primary"

// Client wraps the Google Calendar service for one account.
type Client struct {
	svc *calendar.Service
}

// New creates a Calendar client over an authenticated HTTP client.
func New(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ResponseStatus returns the viewer's RSVP state for the event with the given
// iCalUID, one of accepted, declined, tentative or needsAction. An empty
// string means the event is not on the viewer's calendar.
func (c *Client) ResponseStatus(ctx context.Context, iCalUID string) (string, error) {
	event, err := c.findByUID(ctx, iCalUID)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "", nil
	}

	for _, attendee := range event.Attendees {
		if attendee.Self {
			return attendee.ResponseStatus, nil
		}
	}
	return "", nil
}

// Respond sets the viewer's RSVP for the event with the given iCalUID.
func (c *Client) Respond(ctx context.Context, iCalUID, response string) error {
	switch response {
	case ResponseAccepted, ResponseDeclined, ResponseTentative:
	default:
		return fmt.Errorf("invalid RSVP response %q", response)
	}

	event, err := c.findByUID(ctx, iCalUID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("no calendar event with UID %s", iCalUID)
	}

	updated := false
	for _, attendee := range event.Attendees {
		if attendee.Self {
			attendee.ResponseStatus = response
			updated = true
		}
	}
	if !updated {
		return fmt.Errorf("viewer is not an attendee of event %s", event.Id)
	}

	patch := &calendar.Event{Attendees: event.Attendees}
	_, err = c.svc.Events.Patch(primaryCalendar, event.Id, patch).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating RSVP for event %s: %w", event.Id, err)
	}
	return nil
}

// ListUpcoming returns the next events on the primary calendar, mapped into
// the card event shape.
func (c *Client) ListUpcoming(ctx context.Context, maxResults int64) ([]model.CalendarEvent, error) {
	if maxResults <= 0 {
		maxResults = 20
	}

	res, err := c.svc.Events.List(primaryCalendar).
		TimeMin(time.Now().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing upcoming events: %w", err)
	}

	events := make([]model.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, toModelEvent(item))
	}
	return events, nil
}

func (c *Client) findByUID(ctx context.Context, iCalUID string) (*calendar.Event, error) {
	res, err := c.svc.Events.List(primaryCalendar).
		ICalUID(iCalUID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("looking up event by UID %s: %w", iCalUID, err)
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	return res.Items[0], nil
}

func toModelEvent(event *calendar.Event) model.CalendarEvent {
	out := model.CalendarEvent{
		UID:         event.ICalUID,
		Title:       event.Summary,
		Location:    event.Location,
		Description: event.Description,
		Status:      event.Status,
	}
	if out.Title == "" {
		out.Title = "(No title)"
	}
	if event.Organizer != nil {
		out.Organizer = event.Organizer.Email
	}
	for _, attendee := range event.Attendees {
		out.Attendees = append(out.Attendees, attendee.Email)
		if attendee.Self {
			out.ResponseStatus = attendee.ResponseStatus
		}
	}

	out.StartTS, out.IsAllDay = eventTime(event.Start)
	out.EndTS, _ = eventTime(event.End)
	return out
}

// eventTime converts an EventDateTime into epoch seconds. Date-only values
// mark all-day events and resolve to UTC midnight.
func eventTime(dt *calendar.EventDateTime) (int64, bool) {
	if dt == nil {
		return 0, false
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, time.UTC)
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	}
	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), false
}
