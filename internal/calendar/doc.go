// Package calendar resolves RSVP state for invites embedded in mail threads
// and submits responses. Invites arrive as ICS attachments carrying an
// iCalUID; the Calendar API is the source of truth for the viewer's response
// status, which the ICS body never has.
package calendar
