package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/db/redis"
	"github.com/spinwin-labs/spin-reward-service/errors"
)

const sessionKeyPrefix = "wallet_session_"

// SessionProvider checks wallet session records in Redis. The
// wallet-connect flow writes the record; this provider only reads it.
type SessionProvider struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewSessionProvider creates a Redis-backed session provider.
func NewSessionProvider(client *redis.Client, logger zerolog.Logger) *SessionProvider {
	return &SessionProvider{
		client: client,
		logger: logger.With().Str("component", "session_provider").Logger(),
	}
}

// HasSession reports whether the identity holds a live wallet session.
func (p *SessionProvider) HasSession(ctx context.Context, identity string) (bool, error) {
	exists, err := p.client.Exists(ctx, sessionKeyPrefix+identity)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrRedisError, "failed to check wallet session")
	}
	return exists, nil
}
