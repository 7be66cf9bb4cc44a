// Package redisledger keeps the refresh-token blacklist in Redis. Each
// revoked token id becomes a key with a TTL matching the token's remaining
// lifetime, so expired entries vanish without a purge job.
package redisledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authcore.org/internal/auth"
)

const keyPrefix = "revoked:"

type Ledger struct {
	client *redis.Client
	now    func() time.Time
}

var _ auth.RevocationLedger = (*Ledger)(nil)

func New(client *redis.Client) *Ledger {
	return &Ledger{client: client, now: time.Now}
}

// Revoke marks the token id as revoked until expiresAt. Tokens that already
// expired are not stored: they can no longer validate anyway.
func (l *Ledger) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, keyPrefix+tokenID, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

func (l *Ledger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check token: %w", err)
	}
	return n > 0, nil
}
