package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/postamail/posta/internal/ai"
	"github.com/postamail/posta/internal/cache"
	"github.com/postamail/posta/internal/commands"
	"github.com/postamail/posta/internal/google"
	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/mirror"
	"github.com/postamail/posta/internal/secrets"
)

// app bundles everything a command needs: the command service plus the
// handles that have to be shut down when the command finishes.
type app struct {
	service  *commands.Service
	cache    *cache.Store
	provider *instrumentation.Provider
	oauth    google.Config
	logger   *slog.Logger
}

// buildApp wires the cache, keyring, mirror, OAuth config, and AI client
// into a command service, all rooted under the data directory.
func buildApp(ctx context.Context) (*app, error) {
	logger := slog.Default()
	dataDir := defaultDataDir()

	store, err := cache.Open(filepath.Join(dataDir, "posta.db"))
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}

	keyring, err := secrets.Open(filepath.Join(dataDir, "keyring"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening keyring: %w", err)
	}

	var mirrorStore mirror.Store = mirror.NoopStore{}
	if dir := viper.GetString("mirror-dir"); dir != "" {
		fileStore, err := mirror.NewFileStore(dir)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("opening mirror directory: %w", err)
		}
		mirrorStore = fileStore
		logger.Info("card mirror enabled", slog.String("dir", dir))
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating instrumentation provider: %w", err)
	}

	oauthConfig := google.Config{
		ClientID:     viper.GetString("google.client_id"),
		ClientSecret: viper.GetString("google.client_secret"),
		RedirectURL:  viper.GetString("google.redirect_url"),
	}
	if oauthConfig.RedirectURL == "" {
		oauthConfig.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	}

	aiClient := ai.New(viper.GetString("gemini.api_key"))
	if aiClient.Enabled() {
		logger.Info("reply suggestions enabled")
	}

	service := commands.NewService(commands.Config{
		Cache:   store,
		Mirror:  mirrorStore,
		Tokens:  keyring,
		OAuth:   oauthConfig,
		AI:      aiClient,
		Logger:  logger,
		Metrics: provider.Metrics(),
	})

	return &app{
		service:  service,
		cache:    store,
		provider: provider,
		oauth:    oauthConfig,
		logger:   logger,
	}, nil
}

// close releases the app's resources in reverse order of construction.
func (a *app) close(ctx context.Context) {
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("closing cache failed", logging.Err(err))
	}
}
