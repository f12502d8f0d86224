package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/postamail/posta/internal/model"
)

// placeholderTitle is used when an event has no SUMMARY property.
const placeholderTitle = "(No title)"

// Parse extracts the first VEVENT from an iCalendar blob. It returns an
// error when the blob is not an invite, when no VEVENT is present, or when
// DTSTART (or a present DTEND) cannot be parsed. There are no partial
// events: any failure discards the whole parse.
func Parse(content string) (*model.CalendarEvent, error) {
	if !strings.Contains(content, "BEGIN:VCALENDAR") {
		return nil, fmt.Errorf("missing BEGIN:VCALENDAR marker")
	}
	if !strings.Contains(content, "BEGIN:VEVENT") {
		return nil, fmt.Errorf("missing BEGIN:VEVENT marker")
	}

	lines := splitLines(content)

	// METHOD lives at the calendar level, outside the VEVENT span.
	method := ""
	for _, line := range lines {
		if v, ok := propertyValue(line, "METHOD"); ok {
			method = v
			break
		}
	}

	event, err := parseEvent(eventSpan(lines))
	if err != nil {
		return nil, err
	}
	event.Method = method
	return event, nil
}

// splitLines splits the blob into lines, tolerating CRLF and LF endings.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// eventSpan returns the lines between the first BEGIN:VEVENT and its
// matching END:VEVENT, exclusive.
func eventSpan(lines []string) []string {
	start := -1
	for i, line := range lines {
		if line == "BEGIN:VEVENT" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}
	for i := start; i < len(lines); i++ {
		if lines[i] == "END:VEVENT" {
			return lines[start:i]
		}
	}
	return lines[start:]
}

// propertyValue matches a line against a property name, accepting the bare
// name or the name followed by ;-delimited parameters, and returns the value
// after the first colon.
func propertyValue(line, name string) (string, bool) {
	if !strings.HasPrefix(line, name) {
		return "", false
	}
	rest := line[len(name):]
	if rest == "" || (rest[0] != ':' && rest[0] != ';') {
		return "", false
	}
	_, value, found := strings.Cut(line, ":")
	if !found {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// stripMailto removes a leading mailto: scheme from an organizer or attendee
// value.
func stripMailto(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}

func parseEvent(lines []string) (*model.CalendarEvent, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty VEVENT")
	}

	event := &model.CalendarEvent{Title: placeholderTitle}
	dtstart := ""
	dtend := ""

	for _, line := range lines {
		switch {
		case matchInto(line, "SUMMARY", &event.Title):
		case matchInto(line, "UID", &event.UID):
		case matchInto(line, "LOCATION", &event.Location):
		case matchInto(line, "DESCRIPTION", &event.Description):
		case matchInto(line, "STATUS", &event.Status):
		case matchInto(line, "DTSTART", &dtstart):
		case matchInto(line, "DTEND", &dtend):
		default:
			if v, ok := propertyValue(line, "ORGANIZER"); ok {
				event.Organizer = stripMailto(v)
			} else if v, ok := propertyValue(line, "ATTENDEE"); ok {
				event.Attendees = append(event.Attendees, stripMailto(v))
			}
		}
	}

	if event.Title == "" {
		event.Title = placeholderTitle
	}
	if dtstart == "" {
		return nil, fmt.Errorf("missing DTSTART")
	}

	startTS, allDay, err := ParseDateTime(dtstart)
	if err != nil {
		return nil, fmt.Errorf("parsing DTSTART: %w", err)
	}
	event.StartTS = startTS
	event.IsAllDay = allDay

	if dtend != "" {
		endTS, _, err := ParseDateTime(dtend)
		if err != nil {
			return nil, fmt.Errorf("parsing DTEND: %w", err)
		}
		event.EndTS = endTS
	}

	return event, nil
}

// matchInto assigns the property value to dst if the line matches name and
// the value is non-empty. Repeated properties keep the last occurrence.
func matchInto(line, name string, dst *string) bool {
	v, ok := propertyValue(line, name)
	if !ok {
		return false
	}
	if v != "" {
		*dst = v
	}
	return true
}

// ParseDateTime parses an iCalendar date or date-time value into epoch
// milliseconds. An 8-digit value without a T is an all-day date, interpreted
// as midnight UTC. A value containing T must be YYYYMMDDTHHMMSS with an
// optional trailing Z; with Z the fields are UTC, without it they are host
// local time converted to UTC. Anything else is an error.
func ParseDateTime(value string) (ts int64, allDay bool, err error) {
	value = strings.TrimSpace(value)

	if len(value) == 8 && !strings.Contains(value, "T") {
		year, month, day, err := parseDateFields(value)
		if err != nil {
			return 0, false, err
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return t.UnixMilli(), true, nil
	}

	if !strings.Contains(value, "T") {
		return 0, false, fmt.Errorf("unrecognized datetime %q", value)
	}

	utc := strings.HasSuffix(value, "Z")
	trimmed := strings.TrimSuffix(value, "Z")
	if len(trimmed) < 15 || trimmed[8] != 'T' {
		return 0, false, fmt.Errorf("unrecognized datetime %q", value)
	}

	year, month, day, err := parseDateFields(trimmed[:8])
	if err != nil {
		return 0, false, err
	}
	hour, err := atoiField(trimmed[9:11], "hour")
	if err != nil {
		return 0, false, err
	}
	minute, err := atoiField(trimmed[11:13], "minute")
	if err != nil {
		return 0, false, err
	}
	second, err := atoiField(trimmed[13:15], "second")
	if err != nil {
		return 0, false, err
	}

	loc := time.Local
	if utc {
		loc = time.UTC
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	return t.UTC().UnixMilli(), false, nil
}

func parseDateFields(s string) (year, month, day int, err error) {
	if year, err = atoiField(s[:4], "year"); err != nil {
		return 0, 0, 0, err
	}
	if month, err = atoiField(s[4:6], "month"); err != nil {
		return 0, 0, 0, err
	}
	if day, err = atoiField(s[6:8], "day"); err != nil {
		return 0, 0, 0, err
	}
	return year, month, day, nil
}

func atoiField(s, name string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s field %q", name, s)
	}
	return n, nil
}
