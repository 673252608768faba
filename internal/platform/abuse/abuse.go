// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package abuse implements progressive lockout for the authentication surface.

Failure counters are kept per identifier string — an IP, an "email:<addr>"
key, or a "login:<email>:<ip>" composite — and once an identifier crosses the
configured threshold it is blocked for the lockout duration. Blocks are
self-healing: the first check after the lockout elapses resets the record.

Architecture:

  - Store: TTL-bearing counters behind a small interface.
  - Memory: single-instance map implementation with a background sweep.
  - Redis: shared-cache implementation for horizontally scaled deployments.

The store is selected at startup; the rest of the system only sees [Tracker].
*/
package abuse

import (
	"context"
	"log/slog"
	"time"

	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/constants"
)

// Status is the observable state of one identifier's abuse record.
type Status struct {
	// Count is the failure count inside the current tracking window.
	Count int

	// Blocked reports whether the identifier is currently locked out.
	Blocked bool

	// BlockUntil is the lockout expiry. Zero when not blocked.
	BlockUntil time.Time

	// JustBlocked is set by RecordFailure only on the call that engaged
	// the block, so the caller can emit the lockout event exactly once.
	JustBlocked bool
}

// RetryAfter returns the remaining lockout rounded up to whole seconds.
//
// Callers surface only this value — never the reason for the block.
func (s Status) RetryAfter(now time.Time) int {
	if !s.Blocked {
		return 0
	}
	remaining := s.BlockUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Store defines the contract for TTL-bearing failure counters.
//
// Implementations must make RecordFailure apply the threshold crossing and
// Check apply the self-healing expiry, so the semantics hold regardless of
// which backing store is selected.
type Store interface {

	/*
		RecordFailure increments the identifier's counter, engaging the block
		when the threshold is crossed.

		Parameters:
		  - context: context.Context
		  - identifier: string

		Returns:
		  - Status: State AFTER the increment
		  - error: Storage failures
	*/
	RecordFailure(context context.Context, identifier string) (Status, error)

	/*
		Check returns the identifier's current state, resetting expired blocks
		as a side effect (self-healing).

		Parameters:
		  - context: context.Context
		  - identifier: string

		Returns:
		  - Status: Current state
		  - error: Storage failures
	*/
	Check(context context.Context, identifier string) (Status, error)

	/*
		Reset clears the identifier's record entirely (e.g. after a
		successful login).

		Parameters:
		  - context: context.Context
		  - identifier: string

		Returns:
		  - error: Storage failures
	*/
	Reset(context context.Context, identifier string) error

	/*
		SweepExpired removes records idle beyond the retention window,
		bounding memory growth. A no-op for stores with native TTLs.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Storage failures
	*/
	SweepExpired(context context.Context) error
}

// Config tunes the lockout behavior.
type Config struct {
	// Threshold is the failure count at which an identifier is blocked.
	Threshold int

	// LockoutDuration is how long a block lasts once engaged.
	LockoutDuration time.Duration

	// Retention is how long an idle record is kept before sweeping.
	Retention time.Duration
}

// withDefaults fills in zero fields from platform constants.
func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = constants.DefaultLockoutThreshold
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = constants.DefaultLockoutDuration
	}
	if c.Retention <= 0 {
		c.Retention = constants.AbuseRecordRetention
	}
	return c
}

// Tracker is the application-facing abuse API: it pairs a [Store] with the
// security audit stream.
type Tracker struct {
	store Store
	audit *audit.Logger
	log   *slog.Logger
}

// NewTracker wires a store to the audit stream.
func NewTracker(store Store, auditLog *audit.Logger, log *slog.Logger) *Tracker {
	return &Tracker{store: store, audit: auditLog, log: log}
}

// RecordFailure registers one failed attempt for the identifier.
//
// Crossing the threshold emits a lockout audit event. Store errors are logged
// and swallowed: abuse tracking is defensive bookkeeping, and a degraded
// counter must never fail the request path itself.
func (t *Tracker) RecordFailure(ctx context.Context, identifier, endpoint, userAgent string) {
	status, err := t.store.RecordFailure(ctx, identifier)
	if err != nil {
		t.log.ErrorContext(ctx, "abuse_record_failure_error",
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
		return
	}

	if status.JustBlocked {
		t.audit.Emit(ctx, audit.Event{
			Kind:       audit.EventLockoutEngaged,
			Identifier: identifier,
			Endpoint:   endpoint,
			UserAgent:  userAgent,
		})
	}
}

// IsBlocked reports whether the identifier is locked out and, if so, the
// retry-after hint in seconds.
//
// An unreachable store fails OPEN: the lockout is an additional defense layer
// and must not take the login path down with it.
func (t *Tracker) IsBlocked(ctx context.Context, identifier string) (bool, int) {
	status, err := t.store.Check(ctx, identifier)
	if err != nil {
		t.log.ErrorContext(ctx, "abuse_check_error",
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
		return false, 0
	}
	if !status.Blocked {
		return false, 0
	}
	return true, status.RetryAfter(time.Now())
}

// Reset clears all tracking state for the identifier.
func (t *Tracker) Reset(ctx context.Context, identifier string) {
	if err := t.store.Reset(ctx, identifier); err != nil {
		t.log.ErrorContext(ctx, "abuse_reset_error",
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
	}
}

// StartSweep launches the periodic retention sweep. It returns when ctx is
// cancelled. The sweep only ever deletes expired-by-age records; a record
// deleted just before a concurrent re-read is simply treated as fresh.
func (t *Tracker) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := t.store.SweepExpired(ctx); err != nil {
					t.log.ErrorContext(ctx, "abuse_sweep_error", slog.Any("error", err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// # Identifier Keys

// IPKey returns the tracking key for a caller IP.
func IPKey(ip string) string { return ip }

// EmailKey returns the tracking key for a submitted email address.
func EmailKey(email string) string { return "email:" + email }

// LoginKey returns the composite tracking key for a login attempt.
func LoginKey(email, ip string) string { return "login:" + email + ":" + ip }
