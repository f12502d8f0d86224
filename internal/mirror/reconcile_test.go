package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/model"
)

func TestReconcileKeepsCardsWithKnownAccounts(t *testing.T) {
	local := []model.Account{{ID: "acc-1", Email: "alice@example.com"}}
	remote := []model.Card{{ID: "c1", AccountID: "acc-1", Name: "Inbox", Query: "in:inbox"}}

	result := Reconcile(remote, nil, local, nil, nil)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "acc-1", result.Cards[0].AccountID)
	assert.True(t, result.Changed)
	assert.Zero(t, result.Skipped)
}

func TestReconcileRemapsViaCaseInsensitiveEmail(t *testing.T) {
	// Card written on another machine under a different local account ID.
	local := []model.Account{
		{ID: "NEW1", Email: "Alice@Example.com"},
		{ID: "NEW2", Email: "bob@example.com"},
	}
	remote := []model.Card{{ID: "c1", AccountID: "OLD1", Name: "Inbox", Query: "in:inbox"}}
	mappings := map[string]string{"OLD1": "alice@example.COM"}

	result := Reconcile(remote, mappings, local, nil, nil)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "NEW1", result.Cards[0].AccountID)
	assert.True(t, result.Changed)
}

func TestReconcileSingleAccountFallback(t *testing.T) {
	local := []model.Account{{ID: "only", Email: "solo@example.com"}}
	remote := []model.Card{{ID: "c1", AccountID: "unknown", Name: "Inbox", Query: "q"}}

	result := Reconcile(remote, nil, local, nil, nil)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "only", result.Cards[0].AccountID)
}

func TestReconcileSkipsUnresolvableCards(t *testing.T) {
	local := []model.Account{
		{ID: "acc-1", Email: "a@x.com"},
		{ID: "acc-2", Email: "b@x.com"},
	}
	remote := []model.Card{{ID: "c1", AccountID: "unknown", Name: "Inbox", Query: "q"}}

	result := Reconcile(remote, map[string]string{"unknown": "nobody@x.com"}, local, nil, nil)

	assert.Empty(t, result.Cards)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.Changed)
}

func TestReconcileUnchangedWhenRemoteMatchesLocal(t *testing.T) {
	local := []model.Account{{ID: "acc-1", Email: "a@x.com"}}
	card := model.Card{ID: "c1", AccountID: "acc-1", Name: "Inbox", Query: "in:inbox", Position: 2}

	result := Reconcile([]model.Card{card}, nil, local, []model.Card{card}, nil)

	require.Len(t, result.Cards, 1)
	assert.False(t, result.Changed)
}

func TestReconcileRemoteWinsOnConflict(t *testing.T) {
	local := []model.Account{{ID: "acc-1", Email: "a@x.com"}}
	localCard := model.Card{ID: "c1", AccountID: "acc-1", Name: "Old name", Query: "q"}
	remoteCard := model.Card{ID: "c1", AccountID: "acc-1", Name: "New name", Query: "q"}

	result := Reconcile([]model.Card{remoteCard}, nil, local, []model.Card{localCard}, nil)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "New name", result.Cards[0].Name)
	assert.True(t, result.Changed)
}
