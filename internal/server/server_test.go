package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/cache"
	"github.com/postamail/posta/internal/commands"
	"github.com/postamail/posta/internal/model"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *commands.Service) {
	t.Helper()

	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := commands.NewService(commands.Config{Cache: store})
	srv, err := New(Config{Service: service})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, ts, service
}

func postJSON(t *testing.T, url string, body any) (*http.Response, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	srv, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.health.SetShuttingDown()
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPIRequiresPost(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/cards/list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCardLifecycleOverAPI(t *testing.T) {
	_, ts, service := newTestServer(t)

	account, err := service.AddAccount(context.Background(), "alice@example.com", "Alice", "")
	require.NoError(t, err)

	resp, created := postJSON(t, ts.URL+"/api/v1/cards/create", model.Card{
		AccountID: account.ID,
		Name:      "Inbox",
		Query:     "in:inbox",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, created.Error)

	resp, list := postJSON(t, ts.URL+"/api/v1/cards/list", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cards, ok := list.Data.([]any)
	require.True(t, ok)
	assert.Len(t, cards, 1)
}

func TestAPIErrorStatuses(t *testing.T) {
	_, ts, _ := newTestServer(t)

	// Unknown card: not found.
	resp, body := postJSON(t, ts.URL+"/api/v1/threads/cached", map[string]string{"card_id": "ghost"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Error)
	assert.Nil(t, body.Data)

	// Unknown account surfaces as 404.
	resp, body = postJSON(t, ts.URL+"/api/v1/sync/incremental", map[string]string{"account_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body.Error)

	// Missing parameters surface as 400.
	resp, body = postJSON(t, ts.URL+"/api/v1/sync/incremental", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body.Error)
}

func TestEventsStream(t *testing.T) {
	_, ts, service := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	account, err := service.AddAccount(context.Background(), "alice@example.com", "", "")
	require.NoError(t, err)
	_, err = service.CreateCard(context.Background(), model.Card{
		AccountID: account.ID, Name: "Inbox", Query: "in:inbox",
	})
	require.NoError(t, err)

	var event commands.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, commands.EventCardsChanged, event.Type)
}

func TestServerBindsLoopbackOnly(t *testing.T) {
	srv, _, _ := newTestServer(t)
	assert.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1:"))
}
