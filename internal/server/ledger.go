package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenLedger records which activation tokens have already been verified,
// making repeated verification calls idempotent: a repeat returns success
// without touching the user record again.
type TokenLedger interface {
	WasVerified(ctx context.Context, token string) (bool, error)
	MarkVerified(ctx context.Context, token string) error
}

// RedisLedger keeps verified-token marks in redis so the contract
// survives restarts. Marks expire together with any reasonable invite
// window.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func (l *RedisLedger) key(token string) string {
	return fmt.Sprintf("verified_%s", token)
}

func (l *RedisLedger) WasVerified(ctx context.Context, token string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check verified token: %w", err)
	}
	return n > 0, nil
}

func (l *RedisLedger) MarkVerified(ctx context.Context, token string) error {
	if err := l.rdb.Set(ctx, l.key(token), "true", 30*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("mark token verified: %w", err)
	}
	return nil
}
