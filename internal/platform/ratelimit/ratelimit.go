// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package ratelimit implements fixed-window request throttling.

Four independently configured tiers sit in front of the API routes: a general
tier for all traffic, an auth tier for token-issuing endpoints, a sensitive
tier for password-reset-style operations, and a login tier keyed by the
email:ip composite. Tiers never share counters.

Architecture:

  - Store: fixed-window counters behind a small interface (memory or Redis),
    mirroring the abuse package so both scale together.
  - Limiter: one tier — window, max, and a request key function.
  - Middleware: wraps a router group; exceeding the window yields 429 with a
    retry_after hint.

The login tier is enforced inside the login handler rather than as middleware,
because its key includes the submitted email which only exists after body
decoding. Its "skip on success" behavior is a handler-side Reset call.
*/
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/respond"
)

// Decision is the outcome of one counted request.
type Decision struct {
	// Allowed reports whether the request fits inside the current window.
	Allowed bool

	// RetryAfter is the window remainder in whole seconds when not allowed.
	RetryAfter int
}

// Store defines the contract for fixed-window counters.
type Store interface {

	/*
		Hit increments the counter for key inside its current window.

		Parameters:
		  - context: context.Context
		  - key: string (tier-qualified request key)
		  - window: time.Duration

		Returns:
		  - int: Count AFTER the increment
		  - time.Duration: Remaining window time
		  - error: Storage failures
	*/
	Hit(context context.Context, key string, window time.Duration) (int, time.Duration, error)

	/*
		Reset clears the counter for key (login tier skip-on-success).

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: Storage failures
	*/
	Reset(context context.Context, key string) error
}

// KeyFunc derives the throttling key for a request. Returning an empty
// string exempts the request from this tier.
type KeyFunc func(r *http.Request) string

// Limiter is one independently configured throttling tier.
type Limiter struct {
	name     string
	window   time.Duration
	max      int
	store    Store
	audit    *audit.Logger
	log      *slog.Logger
	onExceed func(ctx context.Context, r *http.Request)
}

// Config describes one tier.
type Config struct {
	// Name tags audit events and store keys (tiers never share counters).
	Name string

	// Window is the fixed window length.
	Window time.Duration

	// Max is the number of requests allowed per window.
	Max int

	// OnExceed, if set, runs each time the tier rejects a request. The auth
	// tier uses it to feed the abuse tracker so repeated throttling
	// escalates into a lockout.
	OnExceed func(ctx context.Context, r *http.Request)
}

// New constructs a limiter tier over the given store.
func New(cfg Config, store Store, auditLog *audit.Logger, log *slog.Logger) *Limiter {
	return &Limiter{
		name:     cfg.Name,
		window:   cfg.Window,
		max:      cfg.Max,
		store:    store,
		audit:    auditLog,
		log:      log,
		onExceed: cfg.OnExceed,
	}
}

// Allow counts one request against the key and reports the decision.
//
// A degraded store fails OPEN — throttling is a protective layer, not a
// correctness dependency.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	count, remaining, err := l.store.Hit(ctx, l.name+":"+key, l.window)
	if err != nil {
		l.log.ErrorContext(ctx, "ratelimit_store_error",
			slog.String("tier", l.name),
			slog.Any("error", err),
		)
		return Decision{Allowed: true}
	}

	if count <= l.max {
		return Decision{Allowed: true}
	}

	retryAfter := int((remaining + time.Second - 1) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// Reset clears the window for key. The login handler calls this on success
// so that only FAILED attempts accumulate against the email:ip composite.
func (l *Limiter) Reset(ctx context.Context, key string) {
	if err := l.store.Reset(ctx, l.name+":"+key); err != nil {
		l.log.ErrorContext(ctx, "ratelimit_reset_error",
			slog.String("tier", l.name),
			slog.Any("error", err),
		)
	}
}

// Middleware enforces the tier on every request whose key function returns a
// non-empty key.
func (l *Limiter) Middleware(keyOf KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			key := keyOf(request)
			if key == "" {
				next.ServeHTTP(writer, request)
				return
			}

			decision := l.Allow(request.Context(), key)
			if decision.Allowed {
				next.ServeHTTP(writer, request)
				return
			}

			l.audit.Emit(request.Context(), audit.Event{
				Kind:       audit.EventRateLimitExceeded,
				Identifier: key,
				Endpoint:   request.URL.Path,
				UserAgent:  request.UserAgent(),
				Tags:       []string{l.name},
			})

			if l.onExceed != nil {
				l.onExceed(request.Context(), request)
			}

			respond.Error(writer, request, apperr.RateLimited(decision.RetryAfter))
		})
	}
}
