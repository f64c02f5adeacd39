package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"verisyntra.org/internal/obs"
)

// BlacklistStore is the key-value backend for revocations. Satisfied by
// go-redis and by fakes in tests.
type BlacklistStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Blacklist revokes tokens until their natural expiry. IsBlacklisted is
// fail-secure: any store error denies access rather than letting a possibly
// revoked token through.
type Blacklist struct {
	store  BlacklistStore
	prefix string
}

// NewBlacklist wraps a store.
func NewBlacklist(store BlacklistStore) *Blacklist {
	return &Blacklist{store: store, prefix: "revoked:"}
}

// NewRedisBlacklist connects to redis with the given options.
func NewRedisBlacklist(addr, password string, db int) *Blacklist {
	return NewBlacklist(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// key hashes the raw token so the blacklist never stores credentials.
func (b *Blacklist) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return b.prefix + hex.EncodeToString(sum[:])
}

// Revoke records the token for its remaining lifetime. An already expired
// token needs no entry.
func (b *Blacklist) Revoke(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return b.store.Set(ctx, b.key(token), 1, remaining).Err()
}

// IsBlacklisted reports whether the token was revoked. On any store error it
// returns true: deny by default.
func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) bool {
	n, err := b.store.Exists(ctx, b.key(token)).Result()
	if err != nil {
		obs.Error("blacklist check failed, denying token", map[string]any{
			"error": err.Error(),
		})
		return true
	}
	return n > 0
}

// Ping probes the backing store for health checks.
func (b *Blacklist) Ping(ctx context.Context) error {
	return b.store.Ping(ctx).Err()
}
