package model

// Attachment describes one file part of one message. InlineData is populated
// only for small images that were prefetched for immediate display; all other
// attachments are fetched on demand via their AttachmentID.
type Attachment struct {
	// MessageID is the message this attachment belongs to. It always refers
	// to a message within the owning thread.
	MessageID string `json:"message_id"`
	// AttachmentID is the opaque remote identifier required to fetch bytes.
	AttachmentID string `json:"attachment_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	// InlineData holds base64-encoded bytes for prefetched inline images.
	InlineData string `json:"inline_data,omitempty"`
	// ContentID is the MIME Content-ID, without angle brackets, used to
	// resolve cid: references in HTML bodies.
	ContentID string `json:"content_id,omitempty"`
}

// IsImage reports whether the attachment is an image by MIME type.
func (a *Attachment) IsImage() bool {
	return len(a.MimeType) >= 6 && a.MimeType[:6] == "image/"
}

// IsCalendar reports whether the attachment carries an iCalendar invite,
// either by MIME type or by filename extension.
func (a *Attachment) IsCalendar() bool {
	if a.MimeType == "text/calendar" || a.MimeType == "application/ics" {
		return true
	}
	n := len(a.Filename)
	return n >= 4 && a.Filename[n-4:] == ".ics"
}

// CalendarEvent is an event parsed from the first iCalendar attachment found
// on a thread. ResponseStatus is filled in later from the Calendar API, not
// from the ICS body.
type CalendarEvent struct {
	UID         string   `json:"uid,omitempty"`
	Title       string   `json:"title"`
	StartTS     int64    `json:"start_ts"`
	EndTS       int64    `json:"end_ts,omitempty"`
	IsAllDay    bool     `json:"is_all_day"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Organizer   string   `json:"organizer,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	// Method is the iTIP method (REQUEST, REPLY, CANCEL) if present.
	Method string `json:"method,omitempty"`
	Status string `json:"status,omitempty"`
	// ResponseStatus is the viewer's RSVP state (accepted, declined,
	// tentative, needsAction).
	ResponseStatus string `json:"response_status,omitempty"`
}

// Thread is one conversation as shown in a card. It is rebuilt from the wire
// representation on every fetch and never mutated in place.
type Thread struct {
	ID        string `json:"thread_id"`
	AccountID string `json:"account_id"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
	// LastMessageTS is the internal date of the most recent message, in
	// milliseconds since the Unix epoch, UTC.
	LastMessageTS int64    `json:"last_message_ts"`
	UnreadCount   int      `json:"unread_count"`
	Labels        []string `json:"labels"`
	// Participants are sender addresses in first-appearance order, case
	// preserved, deduplicated by exact address.
	Participants  []string       `json:"participants"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	HasAttachment bool           `json:"has_attachment"`
	CalendarEvent *CalendarEvent `json:"calendar_event,omitempty"`
}

// HistoryChanges is the result of draining the history endpoint from a stored
// cursor to pagination exhaustion.
type HistoryChanges struct {
	// ThreadIDs is the deduplicated set of thread IDs touched by any
	// add/delete/label event, in first-seen order.
	ThreadIDs []string
	// DeletedThreadIDs is the subset of ThreadIDs that carried at least one
	// messageDeleted event.
	DeletedThreadIDs []string
	// DeletedMessageIDs is the deduplicated set of deleted message IDs.
	DeletedMessageIDs []string
	// NewHistoryID is the cursor to persist once the changes are applied.
	NewHistoryID string
}

// IncrementalSyncResult is what a sync run hands back to the UI.
type IncrementalSyncResult struct {
	ModifiedThreads  []Thread `json:"modified_threads"`
	DeletedThreadIDs []string `json:"deleted_thread_ids"`
	NewHistoryID     string   `json:"new_history_id"`
	// IsFullSync is true when no usable cursor existed and the caller must
	// perform its own full listing.
	IsFullSync bool `json:"is_full_sync"`
}

// Account is a connected Google account.
type Account struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
}

// CardType discriminates email cards from calendar cards.
type CardType string

const (
	CardTypeEmail    CardType = "email"
	CardTypeCalendar CardType = "calendar"
)

// Card is a user-defined saved search with display metadata. Cards are
// mirrored to the remote key-value store after every local mutation.
type Card struct {
	ID        string   `json:"id" db:"id"`
	AccountID string   `json:"account_id" db:"account_id"`
	Name      string   `json:"name" db:"name"`
	Query     string   `json:"query" db:"query"`
	Position  int      `json:"position" db:"position"`
	Collapsed bool     `json:"collapsed" db:"collapsed"`
	Color     string   `json:"color,omitempty" db:"color"`
	GroupBy   string   `json:"group_by,omitempty" db:"group_by"`
	Type      CardType `json:"card_type" db:"card_type"`
}
