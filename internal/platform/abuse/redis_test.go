// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package abuse_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvu/appforge/internal/platform/abuse"
)

func newRedisStore(t *testing.T, cfg abuse.Config) (*abuse.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return abuse.NewRedisStore(client, cfg), mr
}

/*
TestRedisStore_ThresholdEngagesBlock verifies the counter-to-block transition
against a live protocol implementation.
*/
func TestRedisStore_ThresholdEngagesBlock(t *testing.T) {
	store, _ := newRedisStore(t, abuse.Config{
		Threshold:       3,
		LockoutDuration: 15 * time.Minute,
		Retention:       24 * time.Hour,
	})
	ctx := context.Background()

	// 1. Count up to just below the threshold
	for i := 1; i <= 2; i++ {
		status, err := store.RecordFailure(ctx, "attacker@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, status.Count)
		assert.False(t, status.Blocked)
	}

	// 2. The threshold failure engages the block
	status, err := store.RecordFailure(ctx, "attacker@example.com")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.True(t, status.JustBlocked)

	// 3. While blocked, further failures report the block without counting
	status, err = store.RecordFailure(ctx, "attacker@example.com")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.False(t, status.JustBlocked)

	status, err = store.Check(ctx, "attacker@example.com")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), status.BlockUntil, time.Minute)
}

/*
TestRedisStore_BlockExpiry verifies that an expired block key self-heals and
the counter restarts from zero.
*/
func TestRedisStore_BlockExpiry(t *testing.T) {
	store, mr := newRedisStore(t, abuse.Config{
		Threshold:       2,
		LockoutDuration: 15 * time.Minute,
		Retention:       24 * time.Hour,
	})
	ctx := context.Background()

	store.RecordFailure(ctx, "key")
	status, err := store.RecordFailure(ctx, "key")
	require.NoError(t, err)
	require.True(t, status.Blocked)

	// 1. Advance past the lockout so the block key expires
	mr.FastForward(16 * time.Minute)

	status, err = store.Check(ctx, "key")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Zero(t, status.Count)

	// 2. The counter was cleared on block, so the next cycle starts at one
	status, err = store.RecordFailure(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Count)
	assert.False(t, status.Blocked)
}

/*
TestRedisStore_CounterRetention verifies that a stale counter lapses on its
own without ever reaching the threshold.
*/
func TestRedisStore_CounterRetention(t *testing.T) {
	store, mr := newRedisStore(t, abuse.Config{
		Threshold:       5,
		LockoutDuration: 15 * time.Minute,
		Retention:       time.Hour,
	})
	ctx := context.Background()

	store.RecordFailure(ctx, "key")
	store.RecordFailure(ctx, "key")

	mr.FastForward(2 * time.Hour)

	status, err := store.Check(ctx, "key")
	require.NoError(t, err)
	assert.Zero(t, status.Count)
}

/*
TestRedisStore_Reset verifies that Reset clears both the counter and an
active block.
*/
func TestRedisStore_Reset(t *testing.T) {
	store, _ := newRedisStore(t, abuse.Config{
		Threshold:       2,
		LockoutDuration: 15 * time.Minute,
		Retention:       24 * time.Hour,
	})
	ctx := context.Background()

	store.RecordFailure(ctx, "key")
	status, _ := store.RecordFailure(ctx, "key")
	require.True(t, status.Blocked)

	require.NoError(t, store.Reset(ctx, "key"))

	status, err := store.Check(ctx, "key")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Zero(t, status.Count)
}
