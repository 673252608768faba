// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/tranvu/appforge/internal/platform/constants"
)

// window is one in-memory fixed window.
type window struct {
	count    int
	start    time.Time
	lastSeen time.Time
}

// MemoryStore keeps rate-limit windows in a process-local map.
//
// Single-instance only; see the abuse package for the same trade-off. Idle
// windows are removed by a janitor goroutine so memory stays bounded.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryStore creates the store and starts its cleanup routine, which
// stops when ctx is cancelled.
func NewMemoryStore(ctx context.Context) *MemoryStore {
	store := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				store.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	return store
}

// Hit increments the key's counter, rolling the window over when it elapsed.
func (s *MemoryStore) Hit(_ context.Context, key string, windowLen time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	win, found := s.windows[key]
	if !found || now.Sub(win.start) >= windowLen {
		win = &window{start: now}
		s.windows[key] = win
	}

	win.count++
	win.lastSeen = now

	remaining := windowLen - now.Sub(win.start)
	return win.count, remaining, nil
}

// Reset removes the key's window entirely.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// sweep drops windows that have been idle long enough that every tier's
// window must have elapsed.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-2 * time.Hour)
	for key, win := range s.windows {
		if win.lastSeen.Before(cutoff) {
			delete(s.windows, key)
		}
	}
}
