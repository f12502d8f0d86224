package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/postamail/posta/internal/model"
)

// ErrHistoryExpired reports that a stored history cursor is too old for the
// server to replay. It is not a terminal error: the sync controller reacts
// by clearing the cursor and falling back to full-sync semantics.
var ErrHistoryExpired = errors.New("history cursor expired")

// historyTypes are the event classes the sync pipeline cares about.
var historyTypes = []string{"messageAdded", "messageDeleted", "labelAdded", "labelRemoved"}

// CollectHistory drains the history endpoint from startHistoryID to
// pagination exhaustion and folds the events into a HistoryChanges value:
// the deduplicated set of touched thread IDs, the subset of threads with
// deleted messages, and the new cursor. A 404 from the endpoint means the
// cursor has expired and is returned as ErrHistoryExpired.
func (c *Client) CollectHistory(ctx context.Context, startHistoryID string) (*model.HistoryChanges, error) {
	changes := &model.HistoryChanges{}
	seenThreads := make(map[string]bool)
	seenDeletedThreads := make(map[string]bool)
	seenDeletedMessages := make(map[string]bool)

	touchThread := func(id string) {
		if id == "" || seenThreads[id] {
			return
		}
		seenThreads[id] = true
		changes.ThreadIDs = append(changes.ThreadIDs, id)
	}

	pageToken := ""
	for {
		res, err := c.listHistoryPage(ctx, startHistoryID, pageToken)
		if err != nil {
			return nil, err
		}

		if res.HistoryId != 0 {
			changes.NewHistoryID = strconv.FormatUint(res.HistoryId, 10)
		}

		for _, record := range res.History {
			for _, added := range record.MessagesAdded {
				if added.Message != nil {
					touchThread(added.Message.ThreadId)
				}
			}
			for _, deleted := range record.MessagesDeleted {
				if deleted.Message == nil {
					continue
				}
				touchThread(deleted.Message.ThreadId)
				if tid := deleted.Message.ThreadId; tid != "" && !seenDeletedThreads[tid] {
					seenDeletedThreads[tid] = true
					changes.DeletedThreadIDs = append(changes.DeletedThreadIDs, tid)
				}
				if mid := deleted.Message.Id; mid != "" && !seenDeletedMessages[mid] {
					seenDeletedMessages[mid] = true
					changes.DeletedMessageIDs = append(changes.DeletedMessageIDs, mid)
				}
			}
			for _, labeled := range record.LabelsAdded {
				if labeled.Message != nil {
					touchThread(labeled.Message.ThreadId)
				}
			}
			for _, labeled := range record.LabelsRemoved {
				if labeled.Message != nil {
					touchThread(labeled.Message.ThreadId)
				}
			}
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if changes.NewHistoryID == "" {
		// An empty change log still advances nothing; keep the old cursor.
		changes.NewHistoryID = startHistoryID
	}
	return changes, nil
}

// listHistoryPage fetches one page of the change log.
func (c *Client) listHistoryPage(ctx context.Context, startHistoryID, pageToken string) (*gmail.ListHistoryResponse, error) {
	params := url.Values{}
	params.Set("startHistoryId", startHistoryID)
	for _, t := range historyTypes {
		params.Add("historyTypes", t)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var res gmail.ListHistoryResponse
	err := c.getJSON(ctx, "history", c.baseURL+"/history?"+params.Encode(), &res)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("history from %s: %w", startHistoryID, ErrHistoryExpired)
		}
		return nil, fmt.Errorf("listing history from %s: %w", startHistoryID, err)
	}
	return &res, nil
}
