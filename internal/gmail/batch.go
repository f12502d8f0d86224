package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// FetchThreads fetches and reduces as many of the given threads as it can,
// tolerating partial failure. IDs are fetched in chunks of up to 50 through
// the batch endpoint; a chunk whose batch call or parse fails falls back to
// sequential single-thread fetches, and IDs failing both paths are dropped
// from the result. Chunks are independent and processed sequentially.
//
// Result order is not guaranteed to match input order; callers must not
// assume positional correspondence between requested IDs and returned
// threads.
func (c *Client) FetchThreads(ctx context.Context, threadIDs []string) []model.Thread {
	var threads []model.Thread
	for start := 0; start < len(threadIDs); start += maxBatchSize {
		end := min(start+maxBatchSize, len(threadIDs))
		threads = append(threads, c.fetchChunk(ctx, threadIDs[start:end])...)
	}
	return threads
}

// fetchChunk fetches one chunk: batch first, then sequential fallback for
// every ID the batch did not deliver.
func (c *Client) fetchChunk(ctx context.Context, chunk []string) []model.Thread {
	raw, err := c.batchGetThreadDetails(ctx, chunk)
	if err != nil {
		c.logger.Warn("batch thread fetch failed, falling back to sequential",
			logging.Operation("batch_get"),
			slog.Int("thread_count", len(chunk)),
			logging.Err(err),
		)
		c.metrics.RecordBatchFallback(ctx)
		raw = nil
	}

	fetched := make(map[string]bool, len(raw))
	var threads []model.Thread
	for _, detail := range raw {
		fetched[detail.Id] = true
		threads = append(threads, c.reduceThread(ctx, detail))
	}

	dropped := 0
	for _, id := range chunk {
		if fetched[id] {
			continue
		}
		detail, err := c.GetThreadDetail(ctx, id)
		if err != nil {
			// IDs that fail both paths are dropped, not surfaced.
			c.logger.Warn("sequential thread fetch failed, dropping thread",
				logging.Thread(id),
				logging.Err(err),
			)
			dropped++
			continue
		}
		threads = append(threads, c.reduceThread(ctx, detail))
	}
	c.metrics.RecordDroppedThreads(ctx, dropped)

	return threads
}

// batchGetThreadDetails performs one multipart batch call for up to
// maxBatchSize thread IDs and returns the raw details that decoded cleanly.
func (c *Client) batchGetThreadDetails(ctx context.Context, threadIDs []string) ([]*gmail.Thread, error) {
	if len(threadIDs) == 0 {
		return nil, nil
	}
	if len(threadIDs) > maxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds the %d sub-request ceiling", len(threadIDs), maxBatchSize)
	}

	basePath, err := apiPath(c.baseURL)
	if err != nil {
		return nil, err
	}

	boundary := newBatchBoundary()
	body := buildThreadBatchBody(threadIDs, basePath, boundary)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.batchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building batch request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/mixed; boundary="+boundary)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationBatchGet, start, err)
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		err := newStatusError(res)
		c.recordOperation(ctx, instrumentation.OperationBatchGet, start, err)
		return nil, err
	}

	resBoundary, err := boundaryFromContentType(res.Header.Get("Content-Type"))
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationBatchGet, start, err)
		return nil, fmt.Errorf("batch response envelope: %w", err)
	}

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationBatchGet, start, err)
		return nil, fmt.Errorf("reading batch response: %w", err)
	}

	parts, err := parseBatchResponse(payload, resBoundary)
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationBatchGet, start, err)
		return nil, fmt.Errorf("batch response envelope: %w", err)
	}
	c.recordOperation(ctx, instrumentation.OperationBatchGet, start, nil)

	var details []*gmail.Thread
	for _, part := range parts {
		if part.StatusCode < 200 || part.StatusCode > 299 || part.Body == nil {
			continue
		}
		var thread gmail.Thread
		if err := json.Unmarshal(part.Body, &thread); err != nil || thread.Id == "" {
			// Undeliverable sub-responses are left to the sequential
			// fallback, which knows which IDs are still missing.
			continue
		}
		details = append(details, &thread)
	}
	return details, nil
}

// apiPath returns the path component of the base URL, used to build the raw
// sub-request lines inside a batch body.
func apiPath(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("base URL %q has no path", baseURL)
	}
	return u.Path, nil
}
