package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// Mailbox is the slice of the Gmail client the controller needs.
type Mailbox interface {
	GetProfileHistoryID(ctx context.Context) (string, error)
	CollectHistory(ctx context.Context, startHistoryID string) (*model.HistoryChanges, error)
	FetchThreads(ctx context.Context, threadIDs []string) []model.Thread
}

// CursorStore persists the per-account history cursor between runs.
type CursorStore interface {
	GetHistoryID(ctx context.Context, accountID string) (string, error)
	SetHistoryID(ctx context.Context, accountID, historyID string) error
	ClearHistoryID(ctx context.Context, accountID string) error
}

// Controller drives one account's incremental sync.
type Controller struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewController returns a sync controller. Both arguments may be nil.
func NewController(logger *slog.Logger, metrics *instrumentation.Metrics) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger, metrics: metrics}
}

// Run synchronizes one account. The result distinguishes two shapes: a delta
// run returns the modified and deleted threads, a bootstrap run returns an
// empty result with IsFullSync set and leaves the full listing to the caller.
func (c *Controller) Run(ctx context.Context, account model.Account, mailbox Mailbox, cursors CursorStore) (*model.IncrementalSyncResult, error) {
	start := time.Now()

	historyID, err := cursors.GetHistoryID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("reading sync cursor: %w", err)
	}

	if historyID == "" {
		return c.bootstrap(ctx, account, mailbox, cursors, start)
	}

	result, err := c.delta(ctx, account, historyID, mailbox, cursors)
	if errors.Is(err, gmail.ErrHistoryExpired) {
		c.logger.Info("sync cursor expired, starting over",
			logging.Account(account.ID),
			slog.String("history_id", historyID))
		c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultExpired, time.Since(start))
		if err := cursors.ClearHistoryID(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("clearing expired cursor: %w", err)
		}
		return c.bootstrap(ctx, account, mailbox, cursors, start)
	}
	if err != nil {
		c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultError, time.Since(start))
		return nil, err
	}

	c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultDelta, time.Since(start))
	return result, nil
}

// bootstrap establishes a cursor from the account profile. No thread data is
// fetched; the caller performs its own full listing.
func (c *Controller) bootstrap(ctx context.Context, account model.Account, mailbox Mailbox, cursors CursorStore, start time.Time) (*model.IncrementalSyncResult, error) {
	historyID, err := mailbox.GetProfileHistoryID(ctx)
	if err != nil {
		c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultError, time.Since(start))
		return nil, fmt.Errorf("fetching profile history ID: %w", err)
	}
	if err := cursors.SetHistoryID(ctx, account.ID, historyID); err != nil {
		c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultError, time.Since(start))
		return nil, fmt.Errorf("persisting sync cursor: %w", err)
	}

	c.logger.Info("sync cursor established",
		logging.Account(account.ID),
		slog.String("history_id", historyID))
	c.metrics.RecordSyncRun(ctx, account.Email, instrumentation.SyncResultFull, time.Since(start))

	return &model.IncrementalSyncResult{
		NewHistoryID: historyID,
		IsFullSync:   true,
	}, nil
}

func (c *Controller) delta(ctx context.Context, account model.Account, historyID string, mailbox Mailbox, cursors CursorStore) (*model.IncrementalSyncResult, error) {
	changes, err := mailbox.CollectHistory(ctx, historyID)
	if err != nil {
		return nil, err
	}

	var threads []model.Thread
	if len(changes.ThreadIDs) > 0 {
		threads = mailbox.FetchThreads(ctx, changes.ThreadIDs)
	}

	if err := cursors.SetHistoryID(ctx, account.ID, changes.NewHistoryID); err != nil {
		return nil, fmt.Errorf("persisting sync cursor: %w", err)
	}

	c.logger.Info("incremental sync complete",
		logging.Account(account.ID),
		slog.Int("modified", len(threads)),
		slog.Int("deleted", len(changes.DeletedThreadIDs)),
		slog.String("history_id", changes.NewHistoryID))

	return &model.IncrementalSyncResult{
		ModifiedThreads:  threads,
		DeletedThreadIDs: changes.DeletedThreadIDs,
		NewHistoryID:     changes.NewHistoryID,
	}, nil
}
