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
	"strconv"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/logging"
)

const (
	// DefaultBaseURL is the Gmail REST endpoint for the authenticated user.
	DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"
	// DefaultBatchURL is the multipart batch endpoint.
	DefaultBatchURL = "https://www.googleapis.com/batch/gmail/v1"

	// DefaultPageSize is the thread listing page size.
	DefaultPageSize = 20

	// threadFields is the projection used for thread detail fetches. It
	// keeps headers, part metadata, and attachment references while
	// excluding message body data to bound payload size.
	threadFields = "id,messages(id,threadId,labelIds,snippet,internalDate," +
		"payload(headers,mimeType,parts(mimeType,filename,body(size,attachmentId)," +
		"parts(mimeType,filename,body(size,attachmentId)))))"

	// maxErrorBodyBytes caps how much of an error response is kept for the
	// error message.
	maxErrorBodyBytes = 512
)

// Config configures a Client. AccountID and HTTPClient are required; the
// HTTP client must carry OAuth2 credentials for the account. The URL fields
// exist so tests can point the client at a local server.
type Config struct {
	AccountID  string
	HTTPClient *http.Client
	BaseURL    string
	BatchURL   string
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Client is a Gmail REST client for one account.
type Client struct {
	httpClient *http.Client
	baseURL    string
	batchURL   string
	accountID  string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg Config) (*Client, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	if cfg.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.BatchURL == "" {
		cfg.BatchURL = DefaultBatchURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		batchURL:   cfg.BatchURL,
		accountID:  cfg.AccountID,
		logger:     logging.WithService(logging.WithAccount(cfg.Logger, cfg.AccountID), "gmail"),
		metrics:    cfg.Metrics,
	}, nil
}

// AccountID returns the account this client is associated with.
func (c *Client) AccountID() string {
	return c.accountID
}

// ThreadPage is one page of a thread listing.
type ThreadPage struct {
	ThreadIDs     []string
	NextPageToken string
}

// SearchThreads lists thread IDs matching query, one page at a time.
// maxResults <= 0 uses DefaultPageSize.
func (c *Client) SearchThreads(ctx context.Context, query string, maxResults int64, pageToken string) (*ThreadPage, error) {
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.FormatInt(maxResults, 10))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var res gmail.ListThreadsResponse
	err := c.getJSON(ctx, "list", c.baseURL+"/threads?"+params.Encode(), &res)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	page := &ThreadPage{NextPageToken: res.NextPageToken}
	for _, t := range res.Threads {
		page.ThreadIDs = append(page.ThreadIDs, t.Id)
	}
	return page, nil
}

// GetThreadDetail fetches one thread with the field-limited projection.
func (c *Client) GetThreadDetail(ctx context.Context, threadID string) (*gmail.Thread, error) {
	params := url.Values{}
	params.Set("format", "full")
	params.Set("fields", threadFields)

	var thread gmail.Thread
	err := c.getJSON(ctx, "get", c.baseURL+"/threads/"+url.PathEscape(threadID)+"?"+params.Encode(), &thread)
	if err != nil {
		return nil, fmt.Errorf("getting thread %s: %w", threadID, err)
	}
	return &thread, nil
}

// GetAttachment fetches and decodes the bytes of one attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	var body gmail.MessagePartBody
	u := c.baseURL + "/messages/" + url.PathEscape(messageID) + "/attachments/" + url.PathEscape(attachmentID)
	if err := c.getJSON(ctx, "get_attachment", u, &body); err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", attachmentID, err)
	}

	data, err := decodeWireBase64(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment %s: %w", attachmentID, err)
	}
	return data, nil
}

// GetProfileHistoryID fetches the account's current history cursor.
func (c *Client) GetProfileHistoryID(ctx context.Context) (string, error) {
	var profile gmail.Profile
	if err := c.getJSON(ctx, "profile", c.baseURL+"/profile", &profile); err != nil {
		return "", fmt.Errorf("getting profile: %w", err)
	}
	if profile.HistoryId == 0 {
		return "", fmt.Errorf("profile response carried no history ID")
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// getJSON performs a GET against u and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, operation, u string, out any) error {
	start := time.Now()
	err := c.doJSON(ctx, http.MethodGet, u, nil, "", out)
	c.recordOperation(ctx, operation, start, err)
	return err
}

// postJSON performs a POST with a JSON body against u and decodes the JSON
// response into out. out may be nil when the response body is irrelevant.
func (c *Client) postJSON(ctx context.Context, operation, u string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	start := time.Now()
	err = c.doJSON(ctx, http.MethodPost, u, payload, "application/json", out)
	c.recordOperation(ctx, operation, start, err)
	return err
}

func (c *Client) recordOperation(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
}

func (c *Client) doJSON(ctx context.Context, method, u string, body []byte, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newStatusError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StatusError is an HTTP-level failure from the Gmail API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func newStatusError(res *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
	return &StatusError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       string(raw),
	}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gmail API: %s", e.Status)
	}
	return fmt.Sprintf("gmail API: %s: %s", e.Status, e.Body)
}
