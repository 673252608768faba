// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvu/appforge/internal/platform/audit"
)

func newClockedMemoryStore(ctx context.Context) (*MemoryStore, *time.Time) {
	store := NewMemoryStore(ctx)

	current := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, &current
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestMemoryStore_WindowRollover verifies that counters restart once the fixed
window elapses.
*/
func TestMemoryStore_WindowRollover(t *testing.T) {
	store, clock := newClockedMemoryStore(t.Context())
	ctx := context.Background()

	// 1. Counts accumulate inside one window
	for i := 1; i <= 3; i++ {
		count, remaining, err := store.Hit(ctx, "general:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, time.Minute, remaining)
	}

	// 2. Remaining time shrinks as the window ages
	*clock = clock.Add(40 * time.Second)
	count, remaining, err := store.Hit(ctx, "general:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 20*time.Second, remaining)

	// 3. Crossing the boundary starts a fresh window at one
	*clock = clock.Add(21 * time.Second)
	count, _, err = store.Hit(ctx, "general:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

/*
TestMemoryStore_KeysAreIndependent verifies that distinct keys never share a
window.
*/
func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store, _ := newClockedMemoryStore(t.Context())
	ctx := context.Background()

	store.Hit(ctx, "auth:1.2.3.4", 15*time.Minute)
	store.Hit(ctx, "auth:1.2.3.4", 15*time.Minute)

	count, _, err := store.Hit(ctx, "auth:5.6.7.8", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

/*
TestMemoryStore_Sweep verifies that idle windows are evicted while active
ones survive.
*/
func TestMemoryStore_Sweep(t *testing.T) {
	store, clock := newClockedMemoryStore(t.Context())
	ctx := context.Background()

	store.Hit(ctx, "stale", time.Minute)
	*clock = clock.Add(90 * time.Minute)
	store.Hit(ctx, "fresh", time.Minute)
	*clock = clock.Add(time.Hour)

	store.sweep()

	_, found := store.windows["stale"]
	assert.False(t, found)
	_, found = store.windows["fresh"]
	assert.True(t, found)
}

/*
TestLimiter_Allow verifies the per-tier decision, including the retry hint
and fail-open behavior on storage errors.
*/
func TestLimiter_Allow(t *testing.T) {
	log := discardLogger()
	store, clock := newClockedMemoryStore(t.Context())
	limiter := New(Config{Name: "sensitive", Window: time.Hour, Max: 2}, store, audit.NewLogger(log), log)
	ctx := context.Background()

	// 1. Within the budget
	assert.True(t, limiter.Allow(ctx, "1.2.3.4").Allowed)
	assert.True(t, limiter.Allow(ctx, "1.2.3.4").Allowed)

	// 2. Over the budget: denied with a positive retry hint
	*clock = clock.Add(10 * time.Minute)
	decision := limiter.Allow(ctx, "1.2.3.4")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 50*60, decision.RetryAfter)

	// 3. Reset forgives the key immediately
	limiter.Reset(ctx, "1.2.3.4")
	assert.True(t, limiter.Allow(ctx, "1.2.3.4").Allowed)

	// 4. A broken store never blocks traffic
	broken := New(Config{Name: "general", Window: time.Minute, Max: 1}, failingStore{}, audit.NewLogger(log), log)
	assert.True(t, broken.Allow(ctx, "1.2.3.4").Allowed)
	assert.True(t, broken.Allow(ctx, "1.2.3.4").Allowed)
}

/*
TestLimiter_TiersAreIsolated verifies that two tiers sharing one store keep
separate counters for the same caller.
*/
func TestLimiter_TiersAreIsolated(t *testing.T) {
	log := discardLogger()
	store, _ := newClockedMemoryStore(t.Context())
	ctx := context.Background()

	auth := New(Config{Name: "auth", Window: 15 * time.Minute, Max: 1}, store, audit.NewLogger(log), log)
	general := New(Config{Name: "general", Window: time.Minute, Max: 1}, store, audit.NewLogger(log), log)

	require.True(t, auth.Allow(ctx, "1.2.3.4").Allowed)
	assert.False(t, auth.Allow(ctx, "1.2.3.4").Allowed)

	assert.True(t, general.Allow(ctx, "1.2.3.4").Allowed)
}

/*
TestLimiter_Middleware verifies the HTTP surface: pass-through under the
budget, 429 with Retry-After above it, exemption on empty keys, and the
OnExceed escalation hook.
*/
func TestLimiter_Middleware(t *testing.T) {
	log := discardLogger()
	store, _ := newClockedMemoryStore(t.Context())

	exceeded := 0
	limiter := New(Config{
		Name:     "auth",
		Window:   15 * time.Minute,
		Max:      1,
		OnExceed: func(context.Context, *http.Request) { exceeded++ },
	}, store, audit.NewLogger(log), log)

	byIP := func(r *http.Request) string { return r.RemoteAddr }
	handler := limiter.Middleware(byIP)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	request.RemoteAddr = "1.2.3.4:5000"

	// 1. First request passes
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Zero(t, exceeded)

	// 2. Second request is throttled and escalated
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
	assert.Contains(t, recorder.Body.String(), "RATE_LIMITED")
	assert.Equal(t, 1, exceeded)

	// 3. An empty key exempts the request from the tier entirely
	exempt := limiter.Middleware(func(*http.Request) string { return "" })(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
	))
	recorder = httptest.NewRecorder()
	exempt.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

// failingStore simulates a degraded backend.
type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, context.DeadlineExceeded
}

func (failingStore) Reset(context.Context, string) error { return nil }
