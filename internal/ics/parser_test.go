package ics

import (
	"strings"
	"testing"
	"time"
)

func invite(props ...string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
	}
	lines = append(lines, props...)
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, title, uid, organizer string, attendees []string, startTS int64, allDay bool)
	}{
		{
			name: "full invite",
			content: invite(
				"UID:abc-123",
				"SUMMARY:Design review",
				"LOCATION:Room 4",
				"DTSTART:20240115T140000Z",
				"DTEND:20240115T150000Z",
				"ORGANIZER;CN=Alice:mailto:alice@example.com",
				"ATTENDEE;PARTSTAT=NEEDS-ACTION:mailto:bob@example.com",
				"ATTENDEE:mailto:carol@example.com",
			),
			check: func(t *testing.T, title, uid, organizer string, attendees []string, startTS int64, allDay bool) {
				if title != "Design review" {
					t.Errorf("title = %q", title)
				}
				if uid != "abc-123" {
					t.Errorf("uid = %q", uid)
				}
				if organizer != "alice@example.com" {
					t.Errorf("organizer = %q", organizer)
				}
				if len(attendees) != 2 || attendees[0] != "bob@example.com" || attendees[1] != "carol@example.com" {
					t.Errorf("attendees = %v", attendees)
				}
				want := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC).UnixMilli()
				if startTS != want {
					t.Errorf("startTS = %d, want %d", startTS, want)
				}
				if allDay {
					t.Error("allDay = true for timed event")
				}
			},
		},
		{
			name: "all day event",
			content: invite(
				"SUMMARY:Offsite",
				"DTSTART;VALUE=DATE:20240301",
			),
			check: func(t *testing.T, title, _, _ string, _ []string, startTS int64, allDay bool) {
				if !allDay {
					t.Error("allDay = false")
				}
				want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
				if startTS != want {
					t.Errorf("startTS = %d, want %d", startTS, want)
				}
			},
		},
		{
			name: "missing summary uses placeholder",
			content: invite(
				"DTSTART:20240115T140000Z",
			),
			check: func(t *testing.T, title, _, _ string, _ []string, _ int64, _ bool) {
				if title != "(No title)" {
					t.Errorf("title = %q", title)
				}
			},
		},
		{
			name:    "missing DTSTART fails the whole parse",
			content: invite("SUMMARY:No start"),
			wantErr: true,
		},
		{
			name: "unparseable DTSTART fails the whole parse",
			content: invite(
				"SUMMARY:Bad start",
				"DTSTART:sometime tomorrow",
			),
			wantErr: true,
		},
		{
			name: "unparseable DTEND fails the whole parse",
			content: invite(
				"SUMMARY:Bad end",
				"DTSTART:20240115T140000Z",
				"DTEND:oops",
			),
			wantErr: true,
		},
		{
			name:    "not a calendar blob",
			content: "hello world",
			wantErr: true,
		},
		{
			name:    "calendar without event",
			content: "BEGIN:VCALENDAR\r\nMETHOD:REQUEST\r\nEND:VCALENDAR",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := Parse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if tt.check != nil {
				tt.check(t, event.Title, event.UID, event.Organizer, event.Attendees, event.StartTS, event.IsAllDay)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	event, err := Parse(invite("SUMMARY:Standup", "DTSTART:20240115T090000Z"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if event.Method != "REQUEST" {
		t.Errorf("method = %q, want REQUEST", event.Method)
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantTS     int64
		wantAllDay bool
		wantErr    bool
	}{
		{
			name:       "all day date",
			value:      "20240301",
			wantTS:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			wantAllDay: true,
		},
		{
			name:   "UTC datetime",
			value:  "20240115T143000Z",
			wantTS: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC).UnixMilli(),
		},
		{
			name:   "local datetime converted to UTC",
			value:  "20240115T143000",
			wantTS: time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local).UTC().UnixMilli(),
		},
		{name: "too short", value: "2024T01", wantErr: true},
		{name: "nine digit date", value: "202403011", wantErr: true},
		{name: "non numeric date", value: "20240x01", wantErr: true},
		{name: "truncated time", value: "20240115T1430", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, allDay, err := ParseDateTime(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got ts=%d", ts)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateTime(%q): %v", tt.value, err)
			}
			if ts != tt.wantTS {
				t.Errorf("ts = %d, want %d", ts, tt.wantTS)
			}
			if allDay != tt.wantAllDay {
				t.Errorf("allDay = %v, want %v", allDay, tt.wantAllDay)
			}
		})
	}
}
