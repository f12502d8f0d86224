package google

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthURL(t *testing.T) {
	cfg := Config{
		ClientID:    "client-123",
		RedirectURL: "http://127.0.0.1:7333/oauth/callback",
	}

	url := cfg.AuthURL("state-xyz")

	assert.Contains(t, url, "client_id=client-123")
	assert.Contains(t, url, "state=state-xyz")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
}

type staticSource struct {
	token *oauth2.Token
	err   error
}

func (s staticSource) Token() (*oauth2.Token, error) { return s.token, s.err }

type mapStore map[string]string

func (m mapStore) GetRefreshToken(email string) (string, error) {
	token, ok := m[email]
	if !ok {
		return "", errors.New("not found")
	}
	return token, nil
}

func (m mapStore) SetRefreshToken(email, token string) error {
	m[email] = token
	return nil
}

func TestPersistingSourceWritesRotatedToken(t *testing.T) {
	store := mapStore{"alice@example.com": "old-refresh"}
	src := &persistingSource{
		inner: staticSource{token: &oauth2.Token{AccessToken: "at", RefreshToken: "new-refresh"}},
		email: "alice@example.com",
		store: store,
		last:  "old-refresh",
	}

	_, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", store["alice@example.com"])

	// A second call with the same refresh token writes nothing new.
	_, err = src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", store["alice@example.com"])
}

func TestPersistingSourceKeepsTokenWithoutRotation(t *testing.T) {
	store := mapStore{"alice@example.com": "stable"}
	src := &persistingSource{
		inner: staticSource{token: &oauth2.Token{AccessToken: "at"}},
		email: "alice@example.com",
		store: store,
		last:  "stable",
	}

	_, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "stable", store["alice@example.com"])
}
