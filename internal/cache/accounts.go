package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/postamail/posta/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("cache: not found")

// UpsertAccount inserts or replaces an account by ID.
func (s *Store) UpsertAccount(ctx context.Context, account model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO accounts (id, email, name) VALUES (?, ?, ?)`,
		account.ID, account.Email, account.Name,
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", account.ID, err)
	}
	return nil
}

// GetAccount retrieves a single account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var account model.Account
	err := s.db.GetContext(ctx, &account,
		`SELECT id, email, name FROM accounts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("getting account %s: %w", id, err)
	}
	return account, nil
}

// ListAccounts returns all connected accounts ordered by email.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accounts []model.Account
	err := s.db.SelectContext(ctx, &accounts,
		`SELECT id, email, name FROM accounts ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account along with its cards, sync cursor and any
// snapshots cached for those cards.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM card_thread_cache WHERE card_id IN (SELECT id FROM cards WHERE account_id = ?)`,
		`DELETE FROM card_calendar_cache WHERE card_id IN (SELECT id FROM cards WHERE account_id = ?)`,
		`DELETE FROM cards WHERE account_id = ?`,
		`DELETE FROM sync_state WHERE account_id = ?`,
		`DELETE FROM accounts WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting account %s: %w", id, err)
		}
	}
	return tx.Commit()
}
