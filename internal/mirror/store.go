package mirror

import (
	"context"

	"github.com/postamail/posta/internal/model"
)

// Store is the remote key-value mirror holding card definitions and the
// account-id to email mapping they depend on.
type Store interface {
	SaveCards(ctx context.Context, cards []model.Card) error
	LoadCards(ctx context.Context) ([]model.Card, error)
	SaveAccountMappings(ctx context.Context, mappings map[string]string) error
	LoadAccountMappings(ctx context.Context) (map[string]string, error)
}

// NoopStore is the mirror used when replication is disabled or unsupported on
// the platform. Saves succeed and loads return nothing.
type NoopStore struct{}

func (NoopStore) SaveCards(context.Context, []model.Card) error { return nil }

func (NoopStore) LoadCards(context.Context) ([]model.Card, error) { return nil, nil }

func (NoopStore) SaveAccountMappings(context.Context, map[string]string) error { return nil }

func (NoopStore) LoadAccountMappings(context.Context) (map[string]string, error) {
	return nil, nil
}
