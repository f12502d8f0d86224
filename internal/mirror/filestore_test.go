package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cards := []model.Card{
		{ID: "c1", AccountID: "acc-1", Name: "Inbox", Query: "in:inbox", Type: model.CardTypeEmail},
		{ID: "c2", AccountID: "acc-1", Name: "Starred", Query: "is:starred", Position: 1, Type: model.CardTypeEmail},
	}
	require.NoError(t, store.SaveCards(ctx, cards))

	got, err := store.LoadCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, cards, got)

	mappings := map[string]string{"acc-1": "alice@example.com"}
	require.NoError(t, store.SaveAccountMappings(ctx, mappings))

	gotMappings, err := store.LoadAccountMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, mappings, gotMappings)
}

func TestFileStoreEmptyReads(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cards, err := store.LoadCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	mappings, err := store.LoadAccountMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveCards(ctx, []model.Card{{ID: "c1", AccountID: "a", Name: "n", Query: "q"}}))
	require.NoError(t, store.SaveCards(ctx, []model.Card{{ID: "c2", AccountID: "a", Name: "n2", Query: "q2"}}))

	got, err := store.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
}

func TestNoopStore(t *testing.T) {
	var store NoopStore
	ctx := context.Background()

	require.NoError(t, store.SaveCards(ctx, []model.Card{{ID: "c1"}}))
	cards, err := store.LoadCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}
