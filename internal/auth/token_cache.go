package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "token_verify:"

// RedisTokenCache caches the accountID of already-verified bearer tokens
// so repeated requests skip the identity-provider round trip. Keys are a
// hash of the token, never the token itself.
type RedisTokenCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisTokenCache(client *redis.Client, ttl time.Duration) *RedisTokenCache {
	return &RedisTokenCache{Client: client, TTL: ttl}
}

func tokenKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached accountID for a token, or "" on a miss.
func (c *RedisTokenCache) Get(ctx context.Context, rawToken string) (string, error) {
	if c == nil || c.Client == nil {
		return "", nil
	}
	accountID, err := c.Client.Get(ctx, tokenKey(rawToken)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// Set stores a verified token's accountID for the configured TTL.
func (c *RedisTokenCache) Set(ctx context.Context, rawToken, accountID string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Set(ctx, tokenKey(rawToken), accountID, c.TTL).Err()
}
