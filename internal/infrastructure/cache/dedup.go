// Package cache provides the Redis-backed webhook dedup guard.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidgate/vidgate/internal/domain/repository"
)

const (
	// updateKeyPrefix is the prefix for processed-update keys in Redis.
	updateKeyPrefix = "webhook:update:"

	// DefaultUpdateTTL bounds how long an update id is remembered. Retried
	// webhook deliveries arrive within minutes; a day is generous.
	DefaultUpdateTTL = 24 * time.Hour
)

// RedisUpdateDedup implements repository.UpdateDedup using Redis SETNX
// with a TTL. Registry state checks remain the idempotency backstop; this
// guard just stops a retried delivery from re-rendering chat prompts.
type RedisUpdateDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// Compile-time verification that RedisUpdateDedup implements
// repository.UpdateDedup.
var _ repository.UpdateDedup = (*RedisUpdateDedup)(nil)

// NewRedisUpdateDedup creates a Redis-backed dedup guard. A non-positive
// ttl falls back to DefaultUpdateTTL.
func NewRedisUpdateDedup(client *redis.Client, ttl time.Duration) *RedisUpdateDedup {
	if ttl <= 0 {
		ttl = DefaultUpdateTTL
	}
	return &RedisUpdateDedup{
		client: client,
		ttl:    ttl,
	}
}

// Seen records updateID and reports whether it was already present.
func (d *RedisUpdateDedup) Seen(ctx context.Context, updateID int64) (bool, error) {
	key := updateKeyPrefix + strconv.FormatInt(updateID, 10)

	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !set, nil
}
