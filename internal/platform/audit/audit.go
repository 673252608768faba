// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package audit provides the security event log for the authentication surface.

Every security-relevant outcome — failed login, lockout engagement, suspicious
input pattern, CORS violation — is recorded here with the identifier, endpoint,
and user agent involved, independent of whether the request was ultimately
rejected. The stream feeds the same structured logger as request logs so audit
entries correlate by request ID.
*/
package audit

import (
	"context"
	"log/slog"
)

// EventKind classifies a security event.
type EventKind string

const (
	EventLoginFailed       EventKind = "login_failed"
	EventLockoutEngaged    EventKind = "lockout_engaged"
	EventBlockedRequest    EventKind = "blocked_request"
	EventRateLimitExceeded EventKind = "rate_limit_exceeded"
	EventSuspiciousInput   EventKind = "suspicious_input"
	EventCORSViolation     EventKind = "cors_violation"
	EventTokenRejected     EventKind = "token_rejected"
	EventOAuthFailure      EventKind = "oauth_failure"
)

// Event is a single security observation.
type Event struct {
	Kind       EventKind
	Identifier string // IP, email:<addr>, or login:<email>:<ip>
	Endpoint   string
	UserAgent  string
	Tags       []string // suspicious-pattern tags, OAuth error codes, ...
}

// Logger emits security events through a structured slog backend.
//
// # Concurrency
//
// Logger is safe for concurrent use; slog handlers are concurrency-safe.
type Logger struct {
	log *slog.Logger
}

// NewLogger wraps a structured logger as the audit sink.
func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log.With(slog.String("channel", "security"))}
}

// Emit records a security event at WARN level.
//
// A nil receiver is a no-op so wiring the audit stream stays optional in tests.
func (l *Logger) Emit(ctx context.Context, event Event) {
	if l == nil {
		return
	}

	attrs := []any{
		slog.String("event", string(event.Kind)),
		slog.String("identifier", event.Identifier),
		slog.String("endpoint", event.Endpoint),
		slog.String("user_agent", event.UserAgent),
	}
	if len(event.Tags) > 0 {
		attrs = append(attrs, slog.Any("tags", event.Tags))
	}

	l.log.WarnContext(ctx, "security_event", attrs...)
}
