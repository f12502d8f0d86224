package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetHistoryID returns the stored sync cursor for an account, or an empty
// string when no cursor has been persisted yet.
func (s *Store) GetHistoryID(ctx context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var historyID string
	err := s.db.GetContext(ctx, &historyID,
		`SELECT history_id FROM sync_state WHERE account_id = ?`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting history ID for %s: %w", accountID, err)
	}
	return historyID, nil
}

// SetHistoryID persists the sync cursor for an account, stamping the sync
// time.
func (s *Store) SetHistoryID(ctx context.Context, accountID, historyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_state (account_id, history_id, last_sync_at)
		 VALUES (?, ?, ?)`,
		accountID, historyID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting history ID for %s: %w", accountID, err)
	}
	return nil
}

// ClearHistoryID drops the sync cursor for an account. The next sync run
// starts from a fresh profile cursor.
func (s *Store) ClearHistoryID(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_state WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("clearing history ID for %s: %w", accountID, err)
	}
	return nil
}
