package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/model"
)

type fakeMailbox struct {
	profileHistoryID string
	profileErr       error

	changes    *model.HistoryChanges
	historyErr error

	fetched [][]string
}

func (f *fakeMailbox) GetProfileHistoryID(context.Context) (string, error) {
	return f.profileHistoryID, f.profileErr
}

func (f *fakeMailbox) CollectHistory(_ context.Context, startHistoryID string) (*model.HistoryChanges, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.changes, nil
}

func (f *fakeMailbox) FetchThreads(_ context.Context, threadIDs []string) []model.Thread {
	f.fetched = append(f.fetched, threadIDs)
	threads := make([]model.Thread, 0, len(threadIDs))
	for _, id := range threadIDs {
		threads = append(threads, model.Thread{ID: id})
	}
	return threads
}

type fakeCursors struct {
	cursors map[string]string
	setErr  error
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{cursors: make(map[string]string)}
}

func (f *fakeCursors) GetHistoryID(_ context.Context, accountID string) (string, error) {
	return f.cursors[accountID], nil
}

func (f *fakeCursors) SetHistoryID(_ context.Context, accountID, historyID string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.cursors[accountID] = historyID
	return nil
}

func (f *fakeCursors) ClearHistoryID(_ context.Context, accountID string) error {
	delete(f.cursors, accountID)
	return nil
}

var testAccount = model.Account{ID: "acc-1", Email: "alice@example.com"}

func TestRunBootstrapsWithoutCursor(t *testing.T) {
	mailbox := &fakeMailbox{profileHistoryID: "1000"}
	cursors := newFakeCursors()

	result, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.NoError(t, err)

	assert.True(t, result.IsFullSync)
	assert.Empty(t, result.ModifiedThreads)
	assert.Empty(t, result.DeletedThreadIDs)
	assert.Equal(t, "1000", result.NewHistoryID)
	assert.Equal(t, "1000", cursors.cursors["acc-1"])
	assert.Empty(t, mailbox.fetched)
}

func TestRunDelta(t *testing.T) {
	mailbox := &fakeMailbox{
		changes: &model.HistoryChanges{
			ThreadIDs:         []string{"T1", "T2"},
			DeletedThreadIDs:  []string{"T2"},
			DeletedMessageIDs: []string{"M9"},
			NewHistoryID:      "1050",
		},
	}
	cursors := newFakeCursors()
	cursors.cursors["acc-1"] = "1000"

	result, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.NoError(t, err)

	assert.False(t, result.IsFullSync)
	require.Len(t, result.ModifiedThreads, 2)
	assert.Equal(t, []string{"T2"}, result.DeletedThreadIDs)
	assert.Equal(t, "1050", result.NewHistoryID)
	assert.Equal(t, "1050", cursors.cursors["acc-1"])
	require.Len(t, mailbox.fetched, 1)
	assert.Equal(t, []string{"T1", "T2"}, mailbox.fetched[0])
}

func TestRunDeltaWithNoChangesSkipsFetch(t *testing.T) {
	mailbox := &fakeMailbox{
		changes: &model.HistoryChanges{NewHistoryID: "1001"},
	}
	cursors := newFakeCursors()
	cursors.cursors["acc-1"] = "1000"

	result, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.NoError(t, err)

	assert.Empty(t, result.ModifiedThreads)
	assert.Empty(t, mailbox.fetched)
	assert.Equal(t, "1001", cursors.cursors["acc-1"])
}

func TestRunExpiredCursorFallsBackToBootstrap(t *testing.T) {
	mailbox := &fakeMailbox{
		historyErr:       fmt.Errorf("history list: %w", gmail.ErrHistoryExpired),
		profileHistoryID: "2000",
	}
	cursors := newFakeCursors()
	cursors.cursors["acc-1"] = "500"

	result, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.NoError(t, err)

	assert.True(t, result.IsFullSync)
	assert.Empty(t, result.ModifiedThreads)
	assert.Equal(t, "2000", result.NewHistoryID)
	assert.Equal(t, "2000", cursors.cursors["acc-1"])
}

func TestRunSurfacesOtherHistoryErrors(t *testing.T) {
	boom := errors.New("upstream unavailable")
	mailbox := &fakeMailbox{historyErr: boom}
	cursors := newFakeCursors()
	cursors.cursors["acc-1"] = "1000"

	_, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// The cursor stays put so the next run retries the same delta.
	assert.Equal(t, "1000", cursors.cursors["acc-1"])
}

func TestRunSurfacesCursorWriteFailure(t *testing.T) {
	mailbox := &fakeMailbox{
		changes: &model.HistoryChanges{ThreadIDs: []string{"T1"}, NewHistoryID: "1050"},
	}
	cursors := newFakeCursors()
	cursors.cursors["acc-1"] = "1000"
	cursors.setErr = errors.New("disk full")

	_, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting sync cursor")
}

func TestRunProfileFailureDuringBootstrap(t *testing.T) {
	mailbox := &fakeMailbox{profileErr: errors.New("auth expired")}
	cursors := newFakeCursors()

	_, err := NewController(nil, nil).Run(context.Background(), testAccount, mailbox, cursors)
	require.Error(t, err)
	assert.Empty(t, cursors.cursors)
}
