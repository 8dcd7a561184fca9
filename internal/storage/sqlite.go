package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storefront/internal/pkg/logger"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	createSQLiteSlotsQuery = `CREATE TABLE IF NOT EXISTS slots (
		key        TEXT    PRIMARY KEY,
		value      TEXT    NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	getSQLiteSlotQuery    = `SELECT value FROM slots WHERE key = ?;`
	setSQLiteSlotQuery    = `INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	removeSQLiteSlotQuery = `DELETE FROM slots WHERE key = ?;`
)

// SQLite keeps slots in a single SQLite file. It is the default driver and
// plays the role the browser's localStorage played for the web client.
type SQLite struct {
	db        *sql.DB
	log       *logger.Logger
	writeLock *sync.Mutex // modernc sqlite does not support concurrent writes
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and ensures the schema exists.
func NewSQLite(path string, l *logger.Logger) (*SQLite, error) {
	log := l.Named("storage.sqlite").With(zap.String("path", path))

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := db.Exec(createSQLiteSlotsQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLite{db: db, log: log, writeLock: new(sync.Mutex)}, nil
}

// Get returns the value stored under key and whether it exists.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getSQLiteSlotQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		s.log.Sugar().Errorf("Failed to read slot %q: %s", key, err)
		return "", false, fmt.Errorf("query slot: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := s.db.ExecContext(ctx, setSQLiteSlotQuery, key, value, time.Now().Unix()); err != nil {
		s.log.Sugar().Errorf("Failed to write slot %q: %s", key, err)
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := s.db.ExecContext(ctx, removeSQLiteSlotQuery, key); err != nil {
		s.log.Sugar().Errorf("Failed to remove slot %q: %s", key, err)
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
