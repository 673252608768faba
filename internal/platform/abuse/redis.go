// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package abuse

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tranvu/appforge/internal/platform/constants"
)

// RedisStore keeps abuse records in a shared Redis instance so that lockout
// state is consistent across horizontally scaled API processes.
//
// # Key Layout
//
//   - abuse:count:<identifier> — failure counter, expires after the retention window.
//   - abuse:block:<identifier> — present while blocked, expires after the lockout duration.
//
// Native TTLs replace the background sweep: SweepExpired is a no-op.
type RedisStore struct {
	client *redis.Client
	cfg    Config
}

// NewRedisStore creates a Redis-backed abuse store.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{client: client, cfg: cfg.withDefaults()}
}

// RecordFailure increments the identifier's counter and engages the block
// when the threshold is crossed.
func (s *RedisStore) RecordFailure(ctx context.Context, identifier string) (Status, error) {
	blockKey := constants.RedisPrefixAbuseBlock + identifier
	countKey := constants.RedisPrefixAbuseCount + identifier

	// Already blocked: just report the remaining lockout.
	if remaining, err := s.client.TTL(ctx, blockKey).Result(); err != nil {
		return Status{}, fmt.Errorf("abuse: redis ttl failed: %w", err)
	} else if remaining > 0 {
		return Status{Blocked: true, BlockUntil: time.Now().Add(remaining)}, nil
	}

	count, err := s.client.Incr(ctx, countKey).Result()
	if err != nil {
		return Status{}, fmt.Errorf("abuse: redis incr failed: %w", err)
	}

	// First failure in a fresh window: start the retention clock.
	if count == 1 {
		if err := s.client.Expire(ctx, countKey, s.cfg.Retention).Err(); err != nil {
			return Status{}, fmt.Errorf("abuse: redis expire failed: %w", err)
		}
	}

	if count < int64(s.cfg.Threshold) {
		return Status{Count: int(count)}, nil
	}

	// Threshold crossed: engage the block and reset the counter so the next
	// cycle starts from zero once the block expires.
	engaged, err := s.client.SetNX(ctx, blockKey, 1, s.cfg.LockoutDuration).Result()
	if err != nil {
		return Status{}, fmt.Errorf("abuse: redis setnx failed: %w", err)
	}
	if err := s.client.Del(ctx, countKey).Err(); err != nil {
		return Status{}, fmt.Errorf("abuse: redis del failed: %w", err)
	}

	return Status{
		Count:       int(count),
		Blocked:     true,
		BlockUntil:  time.Now().Add(s.cfg.LockoutDuration),
		JustBlocked: engaged,
	}, nil
}

// Check returns the current state. Expired blocks self-heal via key TTL.
func (s *RedisStore) Check(ctx context.Context, identifier string) (Status, error) {
	blockKey := constants.RedisPrefixAbuseBlock + identifier

	remaining, err := s.client.TTL(ctx, blockKey).Result()
	if err != nil {
		return Status{}, fmt.Errorf("abuse: redis ttl failed: %w", err)
	}
	if remaining > 0 {
		return Status{Blocked: true, BlockUntil: time.Now().Add(remaining)}, nil
	}

	count, err := s.client.Get(ctx, constants.RedisPrefixAbuseCount+identifier).Int()
	if err != nil && err != redis.Nil {
		return Status{}, fmt.Errorf("abuse: redis get failed: %w", err)
	}

	return Status{Count: count}, nil
}

// Reset removes all tracking state for the identifier.
func (s *RedisStore) Reset(ctx context.Context, identifier string) error {
	err := s.client.Del(ctx,
		constants.RedisPrefixAbuseCount+identifier,
		constants.RedisPrefixAbuseBlock+identifier,
	).Err()
	if err != nil {
		return fmt.Errorf("abuse: redis del failed: %w", err)
	}
	return nil
}

// SweepExpired is a no-op: Redis key TTLs bound memory growth natively.
func (s *RedisStore) SweepExpired(context.Context) error { return nil }
