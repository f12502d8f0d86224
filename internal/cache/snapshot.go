package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/postamail/posta/internal/model"
)

// ThreadSnapshot is the last successful result of a card's thread search,
// served to the UI before a fresh fetch completes.
type ThreadSnapshot struct {
	Groups        []model.ThreadGroup `json:"groups"`
	NextPageToken string              `json:"next_page_token,omitempty"`
	CachedAt      time.Time           `json:"cached_at"`
}

// CalendarSnapshot is the last event list shown on a calendar card.
type CalendarSnapshot struct {
	Events   []model.CalendarEvent `json:"events"`
	CachedAt time.Time             `json:"cached_at"`
}

// SaveThreadSnapshot stores the thread groups for a card.
func (s *Store) SaveThreadSnapshot(ctx context.Context, cardID string, groups []model.ThreadGroup, nextPageToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("marshaling thread snapshot for card %s: %w", cardID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO card_thread_cache (card_id, thread_groups, next_page_token, cached_at)
		 VALUES (?, ?, ?, ?)`,
		cardID, string(payload), nextPageToken, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving thread snapshot for card %s: %w", cardID, err)
	}
	return nil
}

// GetThreadSnapshot returns the cached thread groups for a card. The second
// return value is false when no snapshot exists.
func (s *Store) GetThreadSnapshot(ctx context.Context, cardID string) (ThreadSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row struct {
		ThreadGroups  string    `db:"thread_groups"`
		NextPageToken string    `db:"next_page_token"`
		CachedAt      time.Time `db:"cached_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT thread_groups, next_page_token, cached_at FROM card_thread_cache WHERE card_id = ?`,
		cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return ThreadSnapshot{}, false, nil
	}
	if err != nil {
		return ThreadSnapshot{}, false, fmt.Errorf("getting thread snapshot for card %s: %w", cardID, err)
	}

	var groups []model.ThreadGroup
	if err := json.Unmarshal([]byte(row.ThreadGroups), &groups); err != nil {
		return ThreadSnapshot{}, false, fmt.Errorf("unmarshaling thread snapshot for card %s: %w", cardID, err)
	}

	return ThreadSnapshot{
		Groups:        groups,
		NextPageToken: row.NextPageToken,
		CachedAt:      row.CachedAt,
	}, true, nil
}

// ClearThreadSnapshot drops the cached thread groups for a card.
func (s *Store) ClearThreadSnapshot(ctx context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM card_thread_cache WHERE card_id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("clearing thread snapshot for card %s: %w", cardID, err)
	}
	return nil
}

// SaveCalendarSnapshot stores the event list for a calendar card.
func (s *Store) SaveCalendarSnapshot(ctx context.Context, cardID string, events []model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshaling calendar snapshot for card %s: %w", cardID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO card_calendar_cache (card_id, events, cached_at)
		 VALUES (?, ?, ?)`,
		cardID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving calendar snapshot for card %s: %w", cardID, err)
	}
	return nil
}

// GetCalendarSnapshot returns the cached events for a calendar card. The
// second return value is false when no snapshot exists.
func (s *Store) GetCalendarSnapshot(ctx context.Context, cardID string) (CalendarSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row struct {
		Events   string    `db:"events"`
		CachedAt time.Time `db:"cached_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT events, cached_at FROM card_calendar_cache WHERE card_id = ?`, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return CalendarSnapshot{}, false, nil
	}
	if err != nil {
		return CalendarSnapshot{}, false, fmt.Errorf("getting calendar snapshot for card %s: %w", cardID, err)
	}

	var events []model.CalendarEvent
	if err := json.Unmarshal([]byte(row.Events), &events); err != nil {
		return CalendarSnapshot{}, false, fmt.Errorf("unmarshaling calendar snapshot for card %s: %w", cardID, err)
	}

	return CalendarSnapshot{Events: events, CachedAt: row.CachedAt}, true, nil
}

// ClearOldCache drops snapshots older than maxAge from both snapshot tables.
func (s *Store) ClearOldCache(ctx context.Context, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	for _, table := range []string{"card_thread_cache", "card_calendar_cache"} {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE cached_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("clearing old cache from %s: %w", table, err)
		}
	}
	return nil
}
