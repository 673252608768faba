// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tranvu/appforge/internal/platform/constants"
)

// RedisStore implements fixed-window counters over a shared Redis instance,
// so throttling stays consistent across horizontally scaled processes.
//
// INCR + first-hit EXPIRE approximates the fixed window: the window starts at
// the first request and the key self-expires at its end.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed rate-limit store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Hit increments the key's counter, starting the window on the first hit.
func (s *RedisStore) Hit(ctx context.Context, key string, windowLen time.Duration) (int, time.Duration, error) {
	redisKey := constants.RedisPrefixRateWindow + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis incr failed: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, windowLen).Err(); err != nil {
			return 0, 0, fmt.Errorf("ratelimit: redis expire failed: %w", err)
		}
		return int(count), windowLen, nil
	}

	remaining, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis ttl failed: %w", err)
	}
	if remaining < 0 {
		// Counter without a TTL (e.g. expire raced a crash): restart the window.
		if err := s.client.Expire(ctx, redisKey, windowLen).Err(); err != nil {
			return 0, 0, fmt.Errorf("ratelimit: redis expire failed: %w", err)
		}
		remaining = windowLen
	}

	return int(count), remaining, nil
}

// Reset removes the key's window entirely.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, constants.RedisPrefixRateWindow+key).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis del failed: %w", err)
	}
	return nil
}
