package transport

import (
	"context"

	"storefront/internal/pkg/logger"
	"storefront/internal/storage"

	"go.uber.org/zap"
)

// StoredCredentials reads and clears the credential in the durable token slot.
type StoredCredentials struct {
	store storage.Storage
	log   *logger.Logger
}

var _ Credentials = (*StoredCredentials)(nil)

// NewStoredCredentials returns Credentials backed by store.
func NewStoredCredentials(store storage.Storage, l *logger.Logger) *StoredCredentials {
	return &StoredCredentials{store: store, log: l}
}

// Token returns the durable credential, or "" when absent or unreadable.
func (s *StoredCredentials) Token(ctx context.Context) string {
	token, ok, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		s.log.Warn("read credential", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// ClearToken removes the durable credential.
func (s *StoredCredentials) ClearToken(ctx context.Context) {
	if err := s.store.Remove(ctx, storage.KeyToken); err != nil {
		s.log.Error("clear credential", zap.Error(err))
	}
}
