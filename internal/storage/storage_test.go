package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSlots(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "fresh storage should not hold a token")

	require.NoError(t, s.Set(ctx, KeyToken, "abc"))
	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Set(ctx, KeyToken, "def"))
	v, _, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Set(ctx, KeyUserInfo, `{"id":"u1"}`))
	require.NoError(t, s.Remove(ctx, KeyToken))
	_, ok, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = s.Get(ctx, KeyUserInfo)
	require.NoError(t, err)
	assert.True(t, ok, "removing one slot must not touch another")
	assert.Equal(t, `{"id":"u1"}`, v)

	require.NoError(t, s.Remove(ctx, KeyCart), "removing a missing slot is not an error")
}

func TestMemory(t *testing.T) {
	exerciseSlots(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storefront.db")

	s, err := NewSQLite(path, logger.Nop())
	require.NoError(t, err)
	exerciseSlots(t, s)
	require.NoError(t, s.Set(context.Background(), KeyToken, "persisted"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path, logger.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}
	defer client.Close()

	prefix := "storefront-test:" + t.Name() + ":"
	s := NewRedisWithClient(client, prefix, logger.Nop())
	t.Cleanup(func() {
		for _, k := range []string{KeyToken, KeyUserInfo, KeyCart} {
			client.Del(context.Background(), prefix+k)
		}
	})
	exerciseSlots(t, s)
}

func TestPostgreSQL(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}

	s, err := NewPostgreSQL(context.Background(), dsn, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`DROP TABLE IF EXISTS storefront_slots;`)
	require.NoError(t, err)
	exerciseSlots(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), DriverMemory, "", logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "s.db"), logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(context.Background(), "etcd", "", logger.Nop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
