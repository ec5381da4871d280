package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token:blacklist:"

// TokenBlacklist хранит jti отозванных access токенов до истечения их срока.
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist хранит отозванные jti в Redis с TTL, общий для всех инстансов.
type RedisBlacklist struct {
	client redis.UniversalClient
}

func NewRedisBlacklist(client redis.UniversalClient) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("token blacklist: revoke %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("token blacklist: check %w", err)
	}
	return n > 0, nil
}

// MemoryBlacklist - вариант для одного инстанса без Redis.
type MemoryBlacklist struct {
	cache *CacheService
}

func NewMemoryBlacklist(cache *CacheService) *MemoryBlacklist {
	return &MemoryBlacklist{cache: cache}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl > 0 {
		b.cache.Set(blacklistKeyPrefix+jti, true, ttl)
	}
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := b.cache.Get(blacklistKeyPrefix + jti)
	return ok, nil
}
