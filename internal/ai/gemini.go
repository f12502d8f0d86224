package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second

	// promptMessages is how many of the thread's latest messages feed the
	// prompt; promptBodyLimit caps each body.
	promptMessages  = 3
	promptBodyLimit = 2000
	maxSuggestions  = 3
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: reply suggestions disabled")

// Message is one thread message as seen by the prompt.
type Message struct {
	From string
	Body string
}

// Client calls the Gemini generateContent API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New returns a Gemini client. An empty API key yields a disabled client; it
// is still safe to call.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates,omitempty"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini API error %d (%s): %s", e.Code, e.Status, e.Message)
}

// SuggestReplies returns up to three short replies the viewer could send to
// the thread. Messages should be ordered oldest first.
func (c *Client) SuggestReplies(ctx context.Context, subject string, messages []Message) ([]string, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if len(messages) == 0 {
		return nil, nil
	}

	req := &generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(subject, messages)}},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gemini response: %w", err)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling gemini response: %w", err)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if len(result.Candidates) == 0 {
		return nil, nil
	}

	return parseSuggestions(result.Candidates[0].Content)
}

// buildPrompt renders the last messages of the thread into the instruction.
func buildPrompt(subject string, messages []Message) string {
	if len(messages) > promptMessages {
		messages = messages[len(messages)-promptMessages:]
	}

	var b strings.Builder
	b.WriteString("You are helping a user reply to an email thread. ")
	b.WriteString("Suggest up to 3 short replies the user could send, as a JSON array of strings. ")
	b.WriteString("Each reply must be a single sentence in the tone of the conversation.\n\n")
	fmt.Fprintf(&b, "Subject: %s\n\n", subject)
	for _, msg := range messages {
		body := msg.Body
		if len(body) > promptBodyLimit {
			body = body[:promptBodyLimit]
		}
		fmt.Fprintf(&b, "From: %s\n%s\n\n", msg.From, body)
	}
	return b.String()
}

func parseSuggestions(c content) ([]string, error) {
	var text strings.Builder
	for _, p := range c.Parts {
		text.WriteString(p.Text)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(text.String()), &suggestions); err != nil {
		return nil, fmt.Errorf("unmarshaling suggestions: %w", err)
	}

	out := suggestions[:0]
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out, nil
}
