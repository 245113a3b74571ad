// Package sqlitestore keeps the session in a SQLite key/value table so that every process of
// the same user reads and writes one shared slot.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	_ "modernc.org/sqlite"
)

var _ sessions.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv_slots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store is a SQLite-backed sessions.Store.
type Store struct {
	db  *sql.DB
	key string
}

// Open opens (creating if needed) the database at path and prepares the slot table.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "[sqlitestore.Open] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[sqlitestore.Open] failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Open] failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("[sqlitestore.Open] failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("[sqlitestore.Open] failed to create schema: %w", err)
	}
	return &Store{db: db, key: sessions.Key}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (*sessions.Session, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_slots WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Load] %w", err)
	}
	return sessions.Decode([]byte(value))
}

func (s *Store) Save(ctx context.Context, session *sessions.Session) error {
	data, err := sessions.Encode(session)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO kv_slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, s.key, string(data), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("[sqlitestore.Save] %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_slots WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("[sqlitestore.Remove] %w", err)
	}
	return nil
}
