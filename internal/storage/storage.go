// Package storage provides the durable key-value slots the storefront keeps
// between runs: the credential, the cached user profile and the legacy cart
// snapshot slot. It defines the Storage interface and drivers for SQLite,
// Redis, PostgreSQL and process memory.
package storage

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks storefront/internal/storage Storage

// Durable slot names.
const (
	KeyToken    = "token"
	KeyUserInfo = "userInfo"
	// KeyCart held the client-only cart snapshot before the cart moved
	// server-side. It is only ever removed.
	KeyCart = "cart"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Storage defines durable slot operations. Reads and writes are independent;
// there is no transaction spanning several keys.
type Storage interface {
	// Get returns the value of key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the underlying connection.
	Close() error
}

// Open connects to the storage selected by driver. dsn is a file path for
// sqlite, a redis:// URL for redis and a connection string for postgres.
func Open(ctx context.Context, driver, dsn string, l *logger.Logger) (Storage, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(dsn, l)
	case DriverRedis:
		return NewRedis(ctx, dsn, l)
	case DriverPostgres:
		return NewPostgreSQL(ctx, dsn, l)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
