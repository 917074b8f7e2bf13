package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenLedger records single-use token identifiers.
type TokenLedger interface {
	// Consume marks jti as used. It returns false when jti was already consumed.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// RedisTokenLedger stores consumed identifiers in Redis until the token would have expired anyway.
type RedisTokenLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenLedger constructs a ledger on top of client.
func NewRedisTokenLedger(client *redis.Client, prefix string) *RedisTokenLedger {
	if prefix == "" {
		prefix = "connexa:reset"
	}
	return &RedisTokenLedger{client: client, prefix: prefix}
}

func (l *RedisTokenLedger) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	return l.client.SetNX(ctx, l.prefix+":"+jti, 1, ttl).Result()
}
