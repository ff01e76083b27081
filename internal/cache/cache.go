/*
PURPOSE:
  Stores model-assisted classifications so re-running the classify step
  over unchanged answers does not pay for the same completion twice.

REQUIREMENTS:
  Implementation-discovered:
  - Keys include the model name; a different model must miss.

ARCHITECTURE INTEGRATION:
  - Called by: internal/classify/model.go, internal/cli/classify.go
  - Dependencies: github.com/redis/go-redis/v9

ERROR HANDLING:
  - A missing key is a miss, not an error.

IMPLEMENTATION RULES:
  - Only valid replies are stored.

USAGE:
  c := cache.NewRedisCache("localhost:6379", "", 0, 720*time.Hour)

SELF-HEALING INSTRUCTIONS:
  - If Ping fails, the classify command runs without a cache.

RELATED FILES:
  - internal/config/env.go

MAINTENANCE:
  - None.
*/

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a string key/value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

// Key derives the cache key for a classification of content by model.
func Key(model, content string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + content))
	return "medvision:classify:" + hex.EncodeToString(sum[:])
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
