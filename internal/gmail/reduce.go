package gmail

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"
	"golang.org/x/sync/errgroup"

	"github.com/postamail/posta/internal/ics"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// ReduceThread folds a raw thread into a Thread value. Subject, snippet,
// label set, and date come from the last message; the unread count is the
// number of messages labeled UNREAD; participants are sender addresses in
// first-occurrence order. The reduction is pure: the inline-image and
// calendar side effects are applied separately by the fetch engine.
func ReduceThread(raw *gmail.Thread, accountID string) model.Thread {
	t := model.Thread{
		ID:        raw.Id,
		AccountID: accountID,
	}
	if len(raw.Messages) == 0 {
		return t
	}

	last := raw.Messages[len(raw.Messages)-1]
	t.Snippet = last.Snippet
	t.Labels = last.LabelIds
	t.LastMessageTS = last.InternalDate
	if last.Payload != nil {
		t.Subject = headerValue(last.Payload.Headers, "Subject")
	}

	seen := make(map[string]bool)
	for _, msg := range raw.Messages {
		for _, label := range msg.LabelIds {
			if label == "UNREAD" {
				t.UnreadCount++
				break
			}
		}

		if msg.Payload != nil {
			if from := headerValue(msg.Payload.Headers, "From"); from != "" {
				addr := extractEmailAddress(from)
				if addr != "" && !seen[addr] {
					seen[addr] = true
					t.Participants = append(t.Participants, addr)
				}
			}
		}

		t.Attachments = append(t.Attachments, ExtractAttachments(msg.Id, msg.Payload)...)
	}

	t.HasAttachment = len(t.Attachments) > 0
	return t
}

// extractEmailAddress pulls the address portion out of a From header,
// preferring the <...> form and falling back to the raw trimmed value.
func extractEmailAddress(from string) string {
	open := strings.Index(from, "<")
	if open >= 0 {
		if end := strings.Index(from[open:], ">"); end > 0 {
			return from[open+1 : open+end]
		}
	}
	return strings.TrimSpace(from)
}

// reduceThread runs the pure reduction and then the two network side
// effects: inline-image prefetch and calendar invite extraction. Neither
// side effect can fail the thread.
func (c *Client) reduceThread(ctx context.Context, raw *gmail.Thread) model.Thread {
	t := ReduceThread(raw, c.accountID)
	c.attachInlineImages(ctx, &t)
	c.attachCalendarEvent(ctx, &t)
	return t
}

// attachInlineImages prefetches up to MaxInlineImages image attachments
// under MaxInlineImageSize, in discovery order, concurrently. A failed fetch
// leaves that attachment's InlineData empty and is only logged.
func (c *Client) attachInlineImages(ctx context.Context, t *model.Thread) {
	var candidates []int
	for i := range t.Attachments {
		a := &t.Attachments[i]
		if a.IsImage() && a.Size < MaxInlineImageSize {
			candidates = append(candidates, i)
			if len(candidates) == MaxInlineImages {
				break
			}
		}
	}
	if len(candidates) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range candidates {
		a := &t.Attachments[i]
		g.Go(func() error {
			data, err := c.GetAttachment(gctx, a.MessageID, a.AttachmentID)
			if err != nil {
				c.logger.Warn("inline image fetch failed",
					logging.Thread(t.ID),
					slog.String(logging.KeyAttachment, a.AttachmentID),
					logging.Err(err),
				)
				return nil
			}
			a.InlineData = base64.StdEncoding.EncodeToString(data)
			return nil
		})
	}
	_ = g.Wait()
}

// attachCalendarEvent tries calendar-classified attachments in discovery
// order and keeps the first one that fetches, decodes as UTF-8, and parses.
// Failures are logged and the next candidate is tried.
func (c *Client) attachCalendarEvent(ctx context.Context, t *model.Thread) {
	for i := range t.Attachments {
		a := &t.Attachments[i]
		if !a.IsCalendar() {
			continue
		}

		data, err := c.GetAttachment(ctx, a.MessageID, a.AttachmentID)
		if err != nil {
			c.logger.Warn("calendar attachment fetch failed",
				logging.Thread(t.ID),
				slog.String(logging.KeyAttachment, a.AttachmentID),
				logging.Err(err),
			)
			continue
		}
		if !utf8.Valid(data) {
			c.logger.Warn("calendar attachment is not valid UTF-8",
				logging.Thread(t.ID),
				slog.String(logging.KeyAttachment, a.AttachmentID),
			)
			continue
		}

		event, err := ics.Parse(string(data))
		if err != nil {
			c.logger.Warn("calendar attachment parse failed",
				logging.Thread(t.ID),
				slog.String(logging.KeyAttachment, a.AttachmentID),
				logging.Err(err),
			)
			continue
		}

		t.CalendarEvent = event
		return
	}
}
