// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists entries as JSON in a SQLite file so they survive
// restarts. Values round-trip through encoding/json, so V must be JSON-safe.
// Numbers inside untyped values come back as json.Number, keeping integers
// wider than 53 bits exact.
type SQLiteStore[V any] struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache database at path.
func OpenSQLite[V any](path string) (*SQLiteStore[V], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache db %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteStore[V]{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache_entries WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read cache entry: %w", err)
	}
	var v V
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return zero, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *SQLiteStore[V]) Set(ctx context.Context, key string, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore[V]) Close() error {
	return s.db.Close()
}
