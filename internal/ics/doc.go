// Package ics parses iCalendar invite attachments into calendar events.
//
// This is deliberately not a full RFC 5545 parser. Invite attachments
// produced by mainstream calendar servers are line-oriented and regular
// enough that a prefix scan over unfolded lines recovers everything the UI
// needs. Property parameters (such as TZID=) are ignored; values are taken
// verbatim after the first colon on the line.
package ics
