package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/mirror"
	"github.com/postamail/posta/internal/model"
)

// ListCards returns all cards in display order.
func (s *Service) ListCards(ctx context.Context) (cards []model.Card, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "cards.list", start, err) }(time.Now())
	return s.cache.ListCards(ctx)
}

// CreateCard stores a new card and mirrors the updated list.
func (s *Service) CreateCard(ctx context.Context, card model.Card) (created model.Card, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "cards.create", start, err) }(time.Now())

	if card.AccountID == "" {
		return model.Card{}, fmt.Errorf("card account_id is required")
	}
	if _, err := s.cache.GetAccount(ctx, card.AccountID); err != nil {
		return model.Card{}, err
	}
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.Type == "" {
		card.Type = model.CardTypeEmail
	}

	if err := s.cache.UpsertCard(ctx, card); err != nil {
		return model.Card{}, err
	}
	s.afterCardMutation(ctx, card.ID)
	return card, nil
}

// UpdateCard overwrites an existing card and mirrors the updated list.
func (s *Service) UpdateCard(ctx context.Context, card model.Card) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "cards.update", start, err) }(time.Now())

	if _, err := s.cache.GetCard(ctx, card.ID); err != nil {
		return err
	}
	if err := s.cache.UpsertCard(ctx, card); err != nil {
		return err
	}
	s.afterCardMutation(ctx, card.ID)
	return nil
}

// DeleteCard removes a card and mirrors the updated list.
func (s *Service) DeleteCard(ctx context.Context, cardID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "cards.delete", start, err) }(time.Now())

	if err := s.cache.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.afterCardMutation(ctx, cardID)
	return nil
}

// ReorderCards rewrites display positions to match ids and mirrors the
// updated list.
func (s *Service) ReorderCards(ctx context.Context, ids []string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "cards.reorder", start, err) }(time.Now())

	if err := s.cache.ReorderCards(ctx, ids); err != nil {
		return err
	}
	s.afterCardMutation(ctx, "")
	return nil
}

// PullFromMirror reconciles cards replicated from other machines into the
// local store. Returns whether local state changed.
func (s *Service) PullFromMirror(ctx context.Context) (changed bool, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "mirror.pull", start, err) }(time.Now())

	remoteCards, err := s.mirror.LoadCards(ctx)
	if err != nil {
		return false, fmt.Errorf("loading mirrored cards: %w", err)
	}
	if len(remoteCards) == 0 {
		return false, nil
	}
	remoteMappings, err := s.mirror.LoadAccountMappings(ctx)
	if err != nil {
		return false, fmt.Errorf("loading mirrored account mappings: %w", err)
	}

	localAccounts, err := s.cache.ListAccounts(ctx)
	if err != nil {
		return false, err
	}
	localCards, err := s.cache.ListCards(ctx)
	if err != nil {
		return false, err
	}

	result := mirror.Reconcile(remoteCards, remoteMappings, localAccounts, localCards, s.logger)
	if !result.Changed {
		return false, nil
	}
	if err := s.cache.UpsertCards(ctx, result.Cards); err != nil {
		return false, err
	}

	s.logger.Info("pulled cards from mirror",
		"cards", len(result.Cards), "skipped", result.Skipped)
	s.publish(Event{Type: EventCardsChanged})
	return true, nil
}

// afterCardMutation mirrors the new card list and notifies subscribers.
func (s *Service) afterCardMutation(ctx context.Context, cardID string) {
	s.pushMirror(ctx)
	s.publish(Event{Type: EventCardsChanged, CardID: cardID})
}

// pushMirror replicates cards and account mappings. Best effort; a mirror
// outage must not fail the local mutation.
func (s *Service) pushMirror(ctx context.Context) {
	cards, err := s.cache.ListCards(ctx)
	if err != nil {
		s.logger.Warn("mirror push skipped", logging.Err(err))
		return
	}
	accounts, err := s.cache.ListAccounts(ctx)
	if err != nil {
		s.logger.Warn("mirror push skipped", logging.Err(err))
		return
	}

	mappings := make(map[string]string, len(accounts))
	for _, account := range accounts {
		mappings[account.ID] = account.Email
	}

	result := instrumentation.StatusSuccess
	if err := s.mirror.SaveCards(ctx, cards); err != nil {
		s.logger.Warn("failed to mirror cards", logging.Err(err))
		result = instrumentation.StatusError
	} else if err := s.mirror.SaveAccountMappings(ctx, mappings); err != nil {
		s.logger.Warn("failed to mirror account mappings", logging.Err(err))
		result = instrumentation.StatusError
	}
	s.metrics.RecordMirrorPush(ctx, result)
}
