package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Config holds the OAuth client credentials for the app.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// TokenStore is where refresh tokens are persisted between runs. Implemented
// by secrets.Keyring.
type TokenStore interface {
	GetRefreshToken(email string) (string, error)
	SetRefreshToken(email, token string) error
}

func (c Config) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       DefaultScopes,
	}
}

// AuthURL returns the consent page URL for connecting a new account. The
// offline access type is what yields a refresh token.
func (c Config) AuthURL(state string) string {
	return c.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens.
func (c Config) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging auth code: %w", err)
	}
	return token, nil
}

// TokenSource returns a self-refreshing token source for a connected account.
// Rotated refresh tokens are written back to the store.
func (c Config) TokenSource(ctx context.Context, email string, store TokenStore) (oauth2.TokenSource, error) {
	refreshToken, err := store.GetRefreshToken(email)
	if err != nil {
		return nil, err
	}

	// An expiry in the past forces a refresh on first use.
	seed := &oauth2.Token{
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Unix(1, 0),
	}

	return &persistingSource{
		inner: c.oauthConfig().TokenSource(ctx, seed),
		email: email,
		store: store,
		last:  refreshToken,
	}, nil
}

// HTTPClient returns an authenticated HTTP client for a connected account.
// The transport is pinned to HTTP/1.1; the batch endpoint misbehaves over
// HTTP/2.
func (c Config) HTTPClient(ctx context.Context, email string, store TokenStore) (*http.Client, error) {
	ts, err := c.TokenSource(ctx, email, store)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}

// persistingSource wraps a token source and writes rotated refresh tokens
// back to the store.
type persistingSource struct {
	inner oauth2.TokenSource
	email string
	store TokenStore
	last  string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if token.RefreshToken != "" && token.RefreshToken != s.last {
		if err := s.store.SetRefreshToken(s.email, token.RefreshToken); err != nil {
			return nil, fmt.Errorf("persisting rotated refresh token: %w", err)
		}
		s.last = token.RefreshToken
	}
	return token, nil
}
