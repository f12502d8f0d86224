package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/postamail/posta/internal/model"
)

const (
	cardsFile    = "cards.json"
	mappingsFile = "account_mappings.json"
)

// FileStore is a mirror backed by JSON documents in a directory. It stands in
// for the platform key-value binding on systems that lack one, and doubles as
// the mirror used in tests.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating mirror directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// SaveCards writes the full card list, replacing any previous document.
func (s *FileStore) SaveCards(_ context.Context, cards []model.Card) error {
	return s.writeJSON(cardsFile, cards)
}

// LoadCards reads the card list. A missing document is an empty list.
func (s *FileStore) LoadCards(_ context.Context) ([]model.Card, error) {
	var cards []model.Card
	if err := s.readJSON(cardsFile, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// SaveAccountMappings writes the account-id to email mapping.
func (s *FileStore) SaveAccountMappings(_ context.Context, mappings map[string]string) error {
	return s.writeJSON(mappingsFile, mappings)
}

// LoadAccountMappings reads the account-id to email mapping. A missing
// document is an empty mapping.
func (s *FileStore) LoadAccountMappings(_ context.Context) (map[string]string, error) {
	var mappings map[string]string
	if err := s.readJSON(mappingsFile, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// writeJSON writes atomically: temp file then rename, so a crashed push never
// leaves a truncated document behind.
func (s *FileStore) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) readJSON(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", name, err)
	}
	return nil
}
