package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// AddAccount registers a connected account: the refresh token goes to the
// keychain, the account row to the local store, and the account mapping to
// the mirror.
func (s *Service) AddAccount(ctx context.Context, email, name, refreshToken string) (account model.Account, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "accounts.add", start, err) }(time.Now())

	if email == "" {
		return model.Account{}, fmt.Errorf("account email is required")
	}
	if s.tokens != nil && refreshToken != "" {
		if err := s.tokens.SetRefreshToken(email, refreshToken); err != nil {
			return model.Account{}, err
		}
	}

	account = model.Account{ID: uuid.New().String(), Email: email, Name: name}
	if err := s.cache.UpsertAccount(ctx, account); err != nil {
		return model.Account{}, err
	}

	s.logger.Info("account connected",
		logging.Account(account.ID),
		logging.UserHash(email),
		logging.Domain(email))
	s.pushMirror(ctx)
	return account, nil
}

// ListAccounts returns all connected accounts.
func (s *Service) ListAccounts(ctx context.Context) (accounts []model.Account, err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "accounts.list", start, err) }(time.Now())
	return s.cache.ListAccounts(ctx)
}

// RemoveAccount disconnects an account, dropping its cards, cursor and
// keychain token.
func (s *Service) RemoveAccount(ctx context.Context, accountID string) (err error) {
	defer func(start time.Time) { s.recordCommand(ctx, "accounts.remove", start, err) }(time.Now())

	account, err := s.cache.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.cache.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	if deleter, ok := s.tokens.(interface{ DeleteRefreshToken(string) error }); ok {
		if err := deleter.DeleteRefreshToken(account.Email); err != nil {
			s.logger.Warn("failed to remove keychain token",
				logging.Account(accountID), logging.Err(err))
		}
	}

	s.logger.Info("account removed", logging.Account(accountID))
	s.pushMirror(ctx)
	return nil
}
