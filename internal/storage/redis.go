package storage

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "storefront:"

// Redis keeps slots as plain string keys under a prefix. Useful when several
// gateway instances serve the same shopper.
type Redis struct {
	client redis.UniversalClient
	prefix string
	log    *logger.Logger
}

var _ Storage = (*Redis)(nil)

// NewRedis connects to the redis:// URL and pings it.
func NewRedis(ctx context.Context, url string, l *logger.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisWithClient(client, defaultRedisPrefix, l), nil
}

// NewRedisWithClient wraps an existing client with a custom key prefix.
func NewRedisWithClient(client redis.UniversalClient, prefix string, l *logger.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, log: l.Named("storage.redis")}
}

// Get returns the value stored under key and whether it exists.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.log.Sugar().Errorf("Failed to read slot %q: %s", key, err)
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Set stores value under key.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		r.log.Sugar().Errorf("Failed to write slot %q: %s", key, err)
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Remove deletes key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.log.Sugar().Errorf("Failed to remove slot %q: %s", key, err)
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
