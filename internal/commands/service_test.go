package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postamail/posta/internal/cache"
	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/model"
)

// recordingMirror counts pushes and serves canned pulls.
type recordingMirror struct {
	mu          sync.Mutex
	savedCards  [][]model.Card
	savedMaps   []map[string]string
	remoteCards []model.Card
	remoteMaps  map[string]string
}

func (m *recordingMirror) SaveCards(_ context.Context, cards []model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedCards = append(m.savedCards, cards)
	return nil
}

func (m *recordingMirror) LoadCards(context.Context) ([]model.Card, error) {
	return m.remoteCards, nil
}

func (m *recordingMirror) SaveAccountMappings(_ context.Context, mappings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedMaps = append(m.savedMaps, mappings)
	return nil
}

func (m *recordingMirror) LoadAccountMappings(context.Context) (map[string]string, error) {
	return m.remoteMaps, nil
}

func (m *recordingMirror) pushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.savedCards)
}

func newTestService(t *testing.T, mirrorStore *recordingMirror, gmailHandler http.Handler) *Service {
	t.Helper()

	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := Config{Cache: store, Mirror: mirrorStore}
	if gmailHandler != nil {
		server := httptest.NewServer(gmailHandler)
		t.Cleanup(server.Close)
		cfg.NewGmail = func(_ context.Context, account model.Account) (*gmail.Client, error) {
			return gmail.New(gmail.Config{
				AccountID:  account.ID,
				HTTPClient: server.Client(),
				BaseURL:    server.URL + "/gmail/v1/users/me",
				BatchURL:   server.URL + "/batch/gmail/v1",
			})
		}
	}
	return NewService(cfg)
}

func addAccount(t *testing.T, s *Service, email string) model.Account {
	t.Helper()
	account, err := s.AddAccount(context.Background(), email, "", "")
	require.NoError(t, err)
	return account
}

func TestCardMutationsPushToMirror(t *testing.T) {
	m := &recordingMirror{}
	s := newTestService(t, m, nil)
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")
	before := m.pushCount()

	card, err := s.CreateCard(ctx, model.Card{AccountID: account.ID, Name: "Inbox", Query: "in:inbox"})
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, model.CardTypeEmail, card.Type)
	assert.Equal(t, before+1, m.pushCount())

	card.Name = "All mail"
	require.NoError(t, s.UpdateCard(ctx, card))
	assert.Equal(t, before+2, m.pushCount())

	require.NoError(t, s.DeleteCard(ctx, card.ID))
	assert.Equal(t, before+3, m.pushCount())

	// The last push carries the current empty list plus the account mapping.
	last := m.savedCards[len(m.savedCards)-1]
	assert.Empty(t, last)
	lastMap := m.savedMaps[len(m.savedMaps)-1]
	assert.Equal(t, map[string]string{account.ID: "alice@example.com"}, lastMap)
}

func TestCreateCardRequiresKnownAccount(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, nil)

	_, err := s.CreateCard(context.Background(), model.Card{AccountID: "ghost", Name: "n", Query: "q"})
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestPullFromMirrorRemapsAccounts(t *testing.T) {
	m := &recordingMirror{
		remoteCards: []model.Card{
			{ID: "c1", AccountID: "OLD1", Name: "Inbox", Query: "in:inbox", Type: model.CardTypeEmail},
		},
		remoteMaps: map[string]string{"OLD1": "Alice@Example.com"},
	}
	s := newTestService(t, m, nil)
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")

	changed, err := s.PullFromMirror(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	cards, err := s.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, account.ID, cards[0].AccountID)

	// A second pull with identical remote state changes nothing.
	changed, err = s.PullFromMirror(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSubscribeReceivesCardEvents(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, nil)
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	card, err := s.CreateCard(ctx, model.Card{AccountID: account.ID, Name: "n", Query: "q"})
	require.NoError(t, err)

	event := <-events
	assert.Equal(t, EventCardsChanged, event.Type)
	assert.Equal(t, card.ID, event.CardID)
}

func threadJSON(id string, internalDate int64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"messages": [{
			"id": "m-%s",
			"threadId": %q,
			"labelIds": ["INBOX"],
			"internalDate": "%d",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [
					{"name": "From", "value": "alice@example.com"},
					{"name": "Subject", "value": "subject %s"}
				]
			}
		}]
	}`, id, id, id, internalDate, id)
}

func gmailBackend(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/gmail/v1/users/me/threads":
			fmt.Fprint(w, `{"threads":[{"id":"T1"}],"nextPageToken":""}`)
		case r.URL.Path == "/batch/gmail/v1":
			const boundary = "batch_response"
			w.Header().Set("Content-Type", "multipart/mixed; boundary="+boundary)
			fmt.Fprintf(w, "--%s\r\nContent-Type: application/http\r\n\r\nHTTP/1.1 200 OK\r\n\r\n%s\r\n--%s--\r\n",
				boundary, threadJSON("T1", 1700000000000), boundary)
		case strings.HasPrefix(r.URL.Path, "/gmail/v1/users/me/threads/"):
			id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/threads/")
			fmt.Fprint(w, threadJSON(id, 1700000000000))
		case strings.Contains(r.URL.Path, "/attachments/"):
			data := base64.URLEncoding.EncodeToString([]byte("attachment bytes"))
			fmt.Fprintf(w, `{"size":16,"data":%q}`, data)
		case r.URL.Path == "/gmail/v1/users/me/profile":
			fmt.Fprint(w, `{"emailAddress":"alice@example.com","historyId":"1000"}`)
		case r.URL.Path == "/gmail/v1/users/me/history":
			fmt.Fprint(w, `{"historyId":"1050","history":[{"messagesAdded":[{"message":{"id":"M1","threadId":"T1"}}]}]}`)
		default:
			t.Errorf("unexpected gmail request %s", r.URL.Path)
		}
	})
}

func TestSearchThreadsSavesSnapshot(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, gmailBackend(t))
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")
	card, err := s.CreateCard(ctx, model.Card{AccountID: account.ID, Name: "Inbox", Query: "in:inbox"})
	require.NoError(t, err)

	result, err := s.SearchThreads(ctx, card.ID, "")
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	require.Len(t, result.Groups[0].Threads, 1)
	assert.Equal(t, "T1", result.Groups[0].Threads[0].ID)

	cached, err := s.GetCachedThreads(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.True(t, cached.FromCache)
	assert.Equal(t, result.Groups, cached.Groups)
}

func TestSyncThreadsIncremental(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, gmailBackend(t))
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	// First run bootstraps a cursor.
	result, err := s.SyncThreadsIncremental(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.IsFullSync)
	assert.Equal(t, "1000", result.NewHistoryID)

	// Second run is a delta from the stored cursor.
	result, err = s.SyncThreadsIncremental(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, result.IsFullSync)
	require.Len(t, result.ModifiedThreads, 1)
	assert.Equal(t, "T1", result.ModifiedThreads[0].ID)
	assert.Equal(t, "1050", result.NewHistoryID)

	for i := 0; i < 2; i++ {
		event := <-events
		assert.Equal(t, EventSyncCompleted, event.Type)
		assert.Equal(t, account.ID, event.AccountID)
	}
}

func TestSaveAttachmentSanitizesFilename(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, gmailBackend(t))
	ctx := context.Background()

	account := addAccount(t, s, "alice@example.com")
	dir := t.TempDir()

	path, err := s.SaveAttachment(ctx, account.ID, "m-T1", "att-1", "../../etc/passwd", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "____etc_passwd"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("attachment bytes"), data)
}

func TestSyncUnknownAccount(t *testing.T) {
	s := newTestService(t, &recordingMirror{}, nil)

	_, err := s.SyncThreadsIncremental(context.Background(), "ghost")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}
