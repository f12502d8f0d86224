package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	account := model.Account{ID: "acc-1", Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, s.UpsertAccount(ctx, account))

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, account, got)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestGetAccountNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, model.Account{ID: "acc-1", Email: "a@x.com"}))
	require.NoError(t, s.UpsertCard(ctx, model.Card{ID: "card-1", AccountID: "acc-1", Name: "Inbox", Query: "in:inbox", Type: model.CardTypeEmail}))
	require.NoError(t, s.SetHistoryID(ctx, "acc-1", "1000"))
	require.NoError(t, s.SaveThreadSnapshot(ctx, "card-1", nil, ""))

	require.NoError(t, s.DeleteAccount(ctx, "acc-1"))

	cards, err := s.ListCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	historyID, err := s.GetHistoryID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, historyID)

	_, ok, err := s.GetThreadSnapshot(ctx, "card-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCardRoundTripAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cards := []model.Card{
		{ID: "c1", AccountID: "acc-1", Name: "Inbox", Query: "in:inbox", Position: 1, Collapsed: true, Color: "#336699", Type: model.CardTypeEmail},
		{ID: "c2", AccountID: "acc-1", Name: "Starred", Query: "is:starred", Position: 0, Type: model.CardTypeEmail},
	}
	require.NoError(t, s.UpsertCards(ctx, cards))

	got, err := s.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Position order, not insertion order.
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)

	one, err := s.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, one.Collapsed)
	assert.Equal(t, "#336699", one.Color)
	assert.Equal(t, model.CardTypeEmail, one.Type)
}

func TestReorderCards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.UpsertCard(ctx, model.Card{
			ID: id, AccountID: "acc-1", Name: id, Query: "q", Position: i, Type: model.CardTypeEmail,
		}))
	}

	require.NoError(t, s.ReorderCards(ctx, []string{"c3", "c1", "c2"}))

	got, err := s.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c3", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)
	assert.Equal(t, "c2", got[2].ID)
}

func TestDeleteCardDropsSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCard(ctx, model.Card{ID: "c1", AccountID: "acc-1", Name: "n", Query: "q", Type: model.CardTypeEmail}))
	require.NoError(t, s.SaveThreadSnapshot(ctx, "c1", []model.ThreadGroup{{Label: "Today"}}, "tok"))

	require.NoError(t, s.DeleteCard(ctx, "c1"))

	_, err := s.GetCard(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok, err := s.GetThreadSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryCursorLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Absent cursor reads as empty, not an error.
	id, err := s.GetHistoryID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SetHistoryID(ctx, "acc-1", "1000"))
	id, err = s.GetHistoryID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "1000", id)

	require.NoError(t, s.SetHistoryID(ctx, "acc-1", "1050"))
	id, err = s.GetHistoryID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "1050", id)

	require.NoError(t, s.ClearHistoryID(ctx, "acc-1"))
	id, err = s.GetHistoryID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestThreadSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	groups := []model.ThreadGroup{
		{Label: "Today", Threads: []model.Thread{{ID: "T1", AccountID: "acc-1", Subject: "hi"}}},
		{Label: "Older", Threads: []model.Thread{{ID: "T2", AccountID: "acc-1"}}},
	}
	require.NoError(t, s.SaveThreadSnapshot(ctx, "c1", groups, "next-tok"))

	snap, ok, err := s.GetThreadSnapshot(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, groups, snap.Groups)
	assert.Equal(t, "next-tok", snap.NextPageToken)
	assert.WithinDuration(t, time.Now(), snap.CachedAt, time.Minute)

	require.NoError(t, s.ClearThreadSnapshot(ctx, "c1"))
	_, ok, err = s.GetThreadSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCalendarSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []model.CalendarEvent{{Title: "Planning", StartTS: 1700000000}}
	require.NoError(t, s.SaveCalendarSnapshot(ctx, "c1", events))

	snap, ok, err := s.GetCalendarSnapshot(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, events, snap.Events)
}

func TestClearOldCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveThreadSnapshot(ctx, "c1", []model.ThreadGroup{{Label: "Today"}}, ""))

	// A generous max age keeps the fresh snapshot.
	require.NoError(t, s.ClearOldCache(ctx, time.Hour))
	_, ok, err := s.GetThreadSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	// A negative max age puts the cutoff in the future and drops everything.
	require.NoError(t, s.ClearOldCache(ctx, -time.Hour))
	_, ok, err = s.GetThreadSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}
