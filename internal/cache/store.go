package cache

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding accounts, cards, sync cursors and
// card snapshots.
type Store struct {
	mu sync.Mutex
	db *sqlx.DB
}

// Open opens (or creates) the database at path, enables WAL mode, and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id    TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		query      TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		collapsed  INTEGER NOT NULL DEFAULT 0,
		color      TEXT NOT NULL DEFAULT '',
		group_by   TEXT NOT NULL DEFAULT '',
		card_type  TEXT NOT NULL DEFAULT 'email'
	)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		account_id   TEXT PRIMARY KEY,
		history_id   TEXT NOT NULL,
		last_sync_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS card_thread_cache (
		card_id         TEXT PRIMARY KEY,
		thread_groups   TEXT NOT NULL,
		next_page_token TEXT NOT NULL DEFAULT '',
		cached_at       TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS card_calendar_cache (
		card_id   TEXT PRIMARY KEY,
		events    TEXT NOT NULL,
		cached_at TIMESTAMP NOT NULL
	)`,
}
