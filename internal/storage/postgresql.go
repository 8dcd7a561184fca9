package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/pkg/logger"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	createSlotsTableQuery = `CREATE TABLE IF NOT EXISTS storefront_slots (slot_key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW());`
	getSlotQuery          = `SELECT value FROM storefront_slots WHERE slot_key = $1;`
	setSlotQuery          = `INSERT INTO storefront_slots (slot_key, value, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (slot_key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();`
	removeSlotQuery       = `DELETE FROM storefront_slots WHERE slot_key = $1;`
)

// PostgreSQL implements the Storage interface using a PostgreSQL table.
// The table is created lazily the first time a query reports it missing.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

var _ Storage = (*PostgreSQL)(nil)

// NewPostgreSQL opens the connection described by dsn and pings the database to ensure connectivity.
func NewPostgreSQL(ctx context.Context, dsn string, l *logger.Logger) (*PostgreSQL, error) {
	log := l.Named("storage.postgresql")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}

	const defaultTimeout = 10 * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Sugar().Errorf("Database ping failed: %s", err)
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db, log: log}, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

func (p *PostgreSQL) createTable(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSlotsTableQuery); err != nil {
		p.log.Sugar().Errorf("Failed to execute a query createSlotsTableQuery: %s", err)
		return fmt.Errorf("create slots table: %w", err)
	}
	return nil
}

// Get returns the value stored under key and whether it exists.
func (p *PostgreSQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, getSlotQuery, key).Scan(&value)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, sql.ErrNoRows), isUndefinedTable(err):
		return "", false, nil
	default:
		p.log.Sugar().Errorf("Failed to execute a query getSlotQuery: %s", err)
		return "", false, err
	}
}

// Set stores value under key.
func (p *PostgreSQL) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, setSlotQuery, key, value)
	if isUndefinedTable(err) {
		if err = p.createTable(ctx); err != nil {
			return err
		}
		_, err = p.db.ExecContext(ctx, setSlotQuery, key, value)
	}
	if err != nil {
		p.log.Sugar().Errorf("Failed to execute a query setSlotQuery: %s", err)
		return err
	}
	return nil
}

// Remove deletes key.
func (p *PostgreSQL) Remove(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, removeSlotQuery, key)
	if err != nil && !isUndefinedTable(err) {
		p.log.Sugar().Errorf("Failed to execute a query removeSlotQuery: %s", err)
		return err
	}
	return nil
}

// Close closes the database connection if it is open.
func (p *PostgreSQL) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
