package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// SearchResult is a page of grouped threads for one card.
type SearchResult struct {
	Groups        []model.ThreadGroup `json:"groups"`
	NextPageToken string              `json:"next_page_token,omitempty"`
	// FromCache marks results served from the local snapshot.
	FromCache bool `json:"from_cache,omitempty"`
}

// SearchThreads runs a card's saved query, fetches full thread details and
// groups them by recency. The first page refreshes the card's snapshot.
func (s *Service) SearchThreads(ctx context.Context, cardID, pageToken string) (result *SearchResult, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.search", start, err) }(time.Now())

	card, err := s.cache.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	client, err := s.gmailForAccount(ctx, card.AccountID)
	if err != nil {
		return nil, err
	}

	page, err := client.SearchThreads(ctx, card.Query, 0, pageToken)
	if err != nil {
		return nil, err
	}

	threads := client.FetchThreads(ctx, page.ThreadIDs)
	groups := gmail.GroupThreadsByDate(threads, time.Now())

	if pageToken == "" {
		if err := s.cache.SaveThreadSnapshot(ctx, cardID, groups, page.NextPageToken); err != nil {
			s.logger.Warn("failed to cache card snapshot",
				logging.Card(cardID), logging.Err(err))
		}
	}

	return &SearchResult{Groups: groups, NextPageToken: page.NextPageToken}, nil
}

// GetCachedThreads serves the card's last snapshot, or nil when none exists.
func (s *Service) GetCachedThreads(ctx context.Context, cardID string) (result *SearchResult, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.cached", start, err) }(time.Now())

	snapshot, ok, err := s.cache.GetThreadSnapshot(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &SearchResult{
		Groups:        snapshot.Groups,
		NextPageToken: snapshot.NextPageToken,
		FromCache:     true,
	}, nil
}

// GetThreadBody returns the plain-text body of one message.
func (s *Service) GetThreadBody(ctx context.Context, accountID, messageID string) (body string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "threads.body", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	body, ok, err := client.GetMessagePlainText(ctx, messageID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return body, nil
}

// DownloadAttachment fetches one attachment's bytes.
func (s *Service) DownloadAttachment(ctx context.Context, accountID, messageID, attachmentID string) (data []byte, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "attachments.download", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return client.GetAttachment(ctx, messageID, attachmentID)
}

// SaveAttachment downloads one attachment and writes it into dir. The
// filename comes from the message and is untrusted, so it is sanitized
// before joining it to the directory. Returns the path written.
func (s *Service) SaveAttachment(ctx context.Context, accountID, messageID, attachmentID, filename, dir string) (path string, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "attachments.save", start, err) }(time.Now())

	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	data, err := client.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = "attachment.bin"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	path = filepath.Join(dir, gmail.SanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment: %w", err)
	}
	return path, nil
}

// SyncThreadsIncremental runs one incremental sync for an account. Runs for
// the same account are serialized; callers racing a sync wait for the one in
// flight.
func (s *Service) SyncThreadsIncremental(ctx context.Context, accountID string) (result *model.IncrementalSyncResult, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "sync.incremental", start, err) }(time.Now())

	gate := s.syncGate(accountID)
	gate.Lock()
	defer gate.Unlock()

	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := s.gmailForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, err = s.controller.Run(ctx, account, client, s.cache)
	if err != nil {
		return nil, err
	}

	s.publish(Event{Type: EventSyncCompleted, AccountID: accountID})
	return result, nil
}

// ClearOldCache drops card snapshots older than maxAge.
func (s *Service) ClearOldCache(ctx context.Context, maxAge time.Duration) error {
	return s.cache.ClearOldCache(ctx, maxAge)
}

func (s *Service) gmailForAccount(ctx context.Context, accountID string) (*gmail.Client, error) {
	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := s.newGmail(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("building mail client for %s: %w", accountID, err)
	}
	return client, nil
}
