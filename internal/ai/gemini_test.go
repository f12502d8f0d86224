package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestRepliesDisabledWithoutKey(t *testing.T) {
	c := New("")

	assert.False(t, c.Enabled())
	_, err := c.SuggestReplies(context.Background(), "hi", []Message{{From: "a@x.com", Body: "hello"}})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSuggestReplies(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		gotPrompt = req.Contents[0].Parts[0].Text

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"[\"Sounds good!\",\"Thanks, will do.\",\"\",\"Extra one\",\"Another\"]"}]}}]}`)
	}))
	defer server.Close()

	c := New("test-key", WithBaseURL(server.URL))

	suggestions, err := c.SuggestReplies(context.Background(), "Lunch?", []Message{
		{From: "old@x.com", Body: "ancient context"},
		{From: "a@x.com", Body: "Want to grab lunch?"},
		{From: "b@x.com", Body: "Sure, when?"},
		{From: "a@x.com", Body: "Noon works for me."},
	})
	require.NoError(t, err)

	// Blank entries are dropped and the list is capped at three.
	assert.Equal(t, []string{"Sounds good!", "Thanks, will do.", "Extra one"}, suggestions)

	// Only the last three messages make it into the prompt.
	assert.NotContains(t, gotPrompt, "ancient context")
	assert.Contains(t, gotPrompt, "Noon works for me.")
	assert.Contains(t, gotPrompt, "Subject: Lunch?")
}

func TestSuggestRepliesTruncatesLongBodies(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Contents[0].Parts[0].Text
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"[\"ok\"]"}]}}]}`)
	}))
	defer server.Close()

	c := New("test-key", WithBaseURL(server.URL))

	long := strings.Repeat("x", 5000)
	_, err := c.SuggestReplies(context.Background(), "s", []Message{{From: "a@x.com", Body: long}})
	require.NoError(t, err)

	assert.Less(t, strings.Count(gotPrompt, "x"), 2001)
}

func TestSuggestRepliesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`)
	}))
	defer server.Close()

	c := New("test-key", WithBaseURL(server.URL))

	_, err := c.SuggestReplies(context.Background(), "s", []Message{{From: "a@x.com", Body: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
}

func TestSuggestRepliesEmptyThread(t *testing.T) {
	c := New("test-key")

	suggestions, err := c.SuggestReplies(context.Background(), "s", nil)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}
