// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package abuse

import (
	"context"
	"sync"
	"time"
)

// record is the in-memory abuse state for one identifier.
type record struct {
	count       int
	lastAttempt time.Time
	blocked     bool
	blockUntil  time.Time
}

// MemoryStore keeps abuse records in a process-local map.
//
// # Scope
//
// Single-instance deployments only: counters are not shared across processes,
// so a horizontally scaled deployment under-blocks (each instance counts its
// own share of failures). That only ever permits extra attempts — the lockout
// still engages on the next observed failure — but multi-instance setups
// should select [RedisStore] instead.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	cfg     Config
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory abuse store.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// RecordFailure increments the identifier's counter and engages the block
// when the threshold is crossed.
func (s *MemoryStore) RecordFailure(_ context.Context, identifier string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, found := s.records[identifier]
	if !found {
		rec = &record{}
		s.records[identifier] = rec
	}

	s.heal(rec, now)

	rec.count++
	rec.lastAttempt = now

	justBlocked := false
	if rec.count >= s.cfg.Threshold && !rec.blocked {
		rec.blocked = true
		rec.blockUntil = now.Add(s.cfg.LockoutDuration)
		justBlocked = true
	}

	return s.status(rec, justBlocked), nil
}

// Check returns the current state, resetting an expired block as a side effect.
func (s *MemoryStore) Check(_ context.Context, identifier string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[identifier]
	if !found {
		return Status{}, nil
	}

	s.heal(rec, s.now())
	return s.status(rec, false), nil
}

// Reset removes the identifier's record entirely.
func (s *MemoryStore) Reset(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, identifier)
	return nil
}

// SweepExpired drops records idle beyond the retention window, regardless of
// block state.
func (s *MemoryStore) SweepExpired(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.Retention)
	for identifier, rec := range s.records {
		if rec.lastAttempt.Before(cutoff) {
			delete(s.records, identifier)
		}
	}
	return nil
}

// heal resets a record whose block has elapsed. Caller holds the lock.
func (s *MemoryStore) heal(rec *record, now time.Time) {
	if rec.blocked && now.After(rec.blockUntil) {
		rec.blocked = false
		rec.blockUntil = time.Time{}
		rec.count = 0
	}
}

// status snapshots a record. Caller holds the lock.
func (s *MemoryStore) status(rec *record, justBlocked bool) Status {
	return Status{
		Count:       rec.count,
		Blocked:     rec.blocked,
		BlockUntil:  rec.blockUntil,
		JustBlocked: justBlocked,
	}
}
