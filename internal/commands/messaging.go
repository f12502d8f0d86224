package commands

import (
	"context"
	"time"

	"github.com/postamail/posta/internal/gmail"
)

// SendEmail sends a new message from the given account.
func (s *Service) SendEmail(ctx context.Context, accountID string, msg *gmail.EmailMessage) (id string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "mail.send", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return client.SendEmail(ctx, msg)
}

// ReplyToEmail sends a reply within an existing thread.
func (s *Service) ReplyToEmail(ctx context.Context, accountID, threadID, origMessageID string, msg *gmail.EmailMessage) (id string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "mail.reply", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return client.ReplyToEmail(ctx, threadID, origMessageID, msg)
}

// CreateDraft saves a draft without sending.
func (s *Service) CreateDraft(ctx context.Context, accountID string, msg *gmail.EmailMessage) (id string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "mail.draft", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return client.CreateDraft(ctx, msg)
}

// MarkThreadRead clears the unread marker on a thread.
func (s *Service) MarkThreadRead(ctx context.Context, accountID, threadID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.mark_read", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return client.MarkThreadRead(ctx, threadID)
}

// MarkThreadUnread restores the unread marker on a thread.
func (s *Service) MarkThreadUnread(ctx context.Context, accountID, threadID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.mark_unread", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return client.MarkThreadUnread(ctx, threadID)
}

// ArchiveThread removes a thread from the inbox.
func (s *Service) ArchiveThread(ctx context.Context, accountID, threadID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.archive", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return client.ArchiveThread(ctx, threadID)
}

// TrashThread moves a thread to the trash.
func (s *Service) TrashThread(ctx context.Context, accountID, threadID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.trash", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return client.TrashThread(ctx, threadID)
}

// ModifyThreadLabels adds and removes labels on a thread.
func (s *Service) ModifyThreadLabels(ctx context.Context, accountID, threadID string, add, remove []string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.labels", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return client.ModifyThreadLabels(ctx, threadID, add, remove)
}
