package mirror

import (
	"log/slog"
	"strings"

	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// PullResult is the outcome of reconciling remote cards into local state.
type PullResult struct {
	// Cards is the card list to upsert locally, with orphaned account IDs
	// already remapped. Remote wins over local on conflicting IDs.
	Cards []model.Card
	// Changed reports whether any upsert would alter local state.
	Changed bool
	// Skipped counts remote cards that could not be bound to any local
	// account.
	Skipped int
}

// Reconcile merges cards pulled from the mirror into local state. Remote
// cards referencing an unknown account ID are remapped through the remote
// account-id to email mapping, matched case-insensitively against local
// account emails. When no mapping matches and exactly one local account
// exists, the card is bound to it; otherwise the card is skipped.
func Reconcile(
	remoteCards []model.Card,
	remoteMappings map[string]string,
	localAccounts []model.Account,
	localCards []model.Card,
	logger *slog.Logger,
) PullResult {
	if logger == nil {
		logger = slog.Default()
	}

	localByID := make(map[string]model.Account, len(localAccounts))
	localByEmail := make(map[string]model.Account, len(localAccounts))
	for _, account := range localAccounts {
		localByID[account.ID] = account
		localByEmail[strings.ToLower(account.Email)] = account
	}

	existing := make(map[string]model.Card, len(localCards))
	for _, card := range localCards {
		existing[card.ID] = card
	}

	var result PullResult
	for _, card := range remoteCards {
		if _, ok := localByID[card.AccountID]; !ok {
			remapped, ok := remapAccount(card, remoteMappings, localByEmail, localAccounts)
			if !ok {
				logger.Warn("skipping mirrored card with unresolvable account",
					logging.Card(card.ID),
					slog.String("remote_account_id", card.AccountID))
				result.Skipped++
				continue
			}
			card = remapped
		}

		result.Cards = append(result.Cards, card)
		if prev, ok := existing[card.ID]; !ok || prev != card {
			result.Changed = true
		}
	}
	return result
}

func remapAccount(
	card model.Card,
	remoteMappings map[string]string,
	localByEmail map[string]model.Account,
	localAccounts []model.Account,
) (model.Card, bool) {
	if email, ok := remoteMappings[card.AccountID]; ok {
		if account, ok := localByEmail[strings.ToLower(email)]; ok {
			card.AccountID = account.ID
			return card, true
		}
	}
	if len(localAccounts) == 1 {
		card.AccountID = localAccounts[0].ID
		return card, true
	}
	return model.Card{}, false
}
