package commands

import (
	"context"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/postamail/posta/internal/ai"
	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/model"
	"github.com/postamail/posta/internal/people"
)

// RespondToInvite sets the viewer's RSVP for a calendar invite found on a
// thread.
func (s *Service) RespondToInvite(ctx context.Context, accountID, iCalUID, response string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "calendar.rsvp", start, err) }(time.Now())

	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	client, err := s.newCalendar(ctx, account)
	if err != nil {
		return err
	}
	return client.Respond(ctx, iCalUID, response)
}

// InviteResponseStatus returns the viewer's RSVP state for an invite.
func (s *Service) InviteResponseStatus(ctx context.Context, accountID, iCalUID string) (status string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "calendar.status", start, err) }(time.Now())

	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	client, err := s.newCalendar(ctx, account)
	if err != nil {
		return "", err
	}
	return client.ResponseStatus(ctx, iCalUID)
}

// UpcomingEvents lists the next events for a calendar card and refreshes its
// snapshot.
func (s *Service) UpcomingEvents(ctx context.Context, cardID string) (events []model.CalendarEvent, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "calendar.upcoming", start, err) }(time.Now())

	card, err := s.cache.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	account, err := s.cache.GetAccount(ctx, card.AccountID)
	if err != nil {
		return nil, err
	}
	client, err := s.newCalendar(ctx, account)
	if err != nil {
		return nil, err
	}

	events, err = client.ListUpcoming(ctx, 0)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SaveCalendarSnapshot(ctx, cardID, events); err != nil {
		s.logger.Warn("failed to cache calendar snapshot", "card_id", cardID, "error", err)
	}
	return events, nil
}

// SearchContacts returns autocomplete candidates for the composer.
func (s *Service) SearchContacts(ctx context.Context, accountID, query string) (contacts []people.Contact, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "contacts.search", start, err) }(time.Now())

	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := s.newPeople(ctx, account)
	if err != nil {
		return nil, err
	}
	return client.Search(ctx, query)
}

// SuggestReplies asks the AI layer for short replies to a thread. Returns
// nothing when the feature is disabled.
func (s *Service) SuggestReplies(ctx context.Context, accountID, threadID string) (suggestions []string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "ai.suggest", start, err) }(time.Now())

	if !s.ai.Enabled() {
		return nil, nil
	}

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetThreadDetail(ctx, threadID)
	if err != nil {
		return nil, err
	}

	subject, messages := promptInput(raw)
	return s.ai.SuggestReplies(ctx, subject, messages)
}

// promptInput flattens a raw thread into the subject and message list the AI
// prompt consumes.
func promptInput(raw *gmailapi.Thread) (string, []ai.Message) {
	var subject string
	var messages []ai.Message
	for _, msg := range raw.Messages {
		if msg == nil {
			continue
		}
		var from string
		if msg.Payload != nil {
			for _, header := range msg.Payload.Headers {
				switch header.Name {
				case "From":
					from = header.Value
				case "Subject":
					subject = header.Value
				}
			}
		}
		body, ok := gmail.ExtractPlainTextBody(msg)
		if !ok {
			body = msg.Snippet
		}
		messages = append(messages, ai.Message{From: from, Body: body})
	}
	return subject, messages
}
