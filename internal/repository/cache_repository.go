package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

const redirectKeyPrefix = "redirect:"

// CacheRepository caches redirect targets in Redis so the hot redirect path
// can skip the database. A nil client degrades to a permanent miss.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// GetRedirect returns the cached original URL for a short key.
func (r *CacheRepository) GetRedirect(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}

	url, err := r.client.Get(ctx, redirectKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return url, nil
}

// SetRedirect stores the original URL for a short key with the given TTL.
func (r *CacheRepository) SetRedirect(ctx context.Context, key, url string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	if err := r.client.Set(ctx, redirectKeyPrefix+key, url, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateRedirect drops the cached entry for a short key. Called when a
// link is disabled so the redirect stops serving immediately.
func (r *CacheRepository) InvalidateRedirect(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}

	if err := r.client.Del(ctx, redirectKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
