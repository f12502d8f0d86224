package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/postamail/posta/internal/model"
)

const cardColumns = `id, account_id, name, query, position, collapsed, color, group_by, card_type`

// UpsertCard inserts or replaces a card by ID.
func (s *Store) UpsertCard(ctx context.Context, card model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertCard(ctx, s.db, card)
}

// UpsertCards replaces a batch of cards in one transaction. Used by mirror
// reconciliation, where a partial write would leave local and remote state
// disagreeing.
func (s *Store) UpsertCards(ctx context.Context, cards []model.Card) error {
	if len(cards) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, card := range cards {
		if err := upsertCard(ctx, tx, card); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertCard(ctx context.Context, e sqlx.ExecerContext, card model.Card) error {
	_, err := e.ExecContext(ctx,
		`INSERT OR REPLACE INTO cards (`+cardColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.AccountID, card.Name, card.Query, card.Position,
		boolToInt(card.Collapsed), card.Color, card.GroupBy, string(card.Type),
	)
	if err != nil {
		return fmt.Errorf("upserting card %s: %w", card.ID, err)
	}
	return nil
}

// GetCard retrieves a single card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var card model.Card
	err := s.db.GetContext(ctx, &card,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Card{}, fmt.Errorf("getting card %s: %w", id, err)
	}
	return card, nil
}

// ListCards returns all cards across accounts in display order.
func (s *Store) ListCards(ctx context.Context) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cards []model.Card
	err := s.db.SelectContext(ctx, &cards,
		`SELECT `+cardColumns+` FROM cards ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card and its cached snapshots.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM card_thread_cache WHERE card_id = ?`,
		`DELETE FROM card_calendar_cache WHERE card_id = ?`,
		`DELETE FROM cards WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting card %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ReorderCards rewrites card positions to match the order of ids. IDs not
// present in the store are ignored.
func (s *Store) ReorderCards(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for position, id := range ids {
		_, err := tx.ExecContext(ctx,
			`UPDATE cards SET position = ? WHERE id = ?`, position, id)
		if err != nil {
			return fmt.Errorf("reordering card %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
