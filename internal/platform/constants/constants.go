// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Abuse Prevention: Lockout thresholds and sweep intervals.
  - Security: JWT issuers and header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "appforge-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Abuse Prevention

const (
	// DefaultLockoutThreshold is the failure count at which an identifier is blocked.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long a blocked identifier stays blocked.
	DefaultLockoutDuration = 15 * time.Minute

	// AbuseRecordRetention is how long an idle abuse record is kept before the
	// background sweep removes it, regardless of block state.
	AbuseRecordRetention = 24 * time.Hour

	// AbuseSweepInterval is how often the background sweep runs.
	AbuseSweepInterval = 1 * time.Hour

	// RateLimitSweepInterval is how often idle rate-limit windows are removed from memory.
	RateLimitSweepInterval = 1 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "appforge.dev"

	// OAuthStateCookieName is the name of the short-lived cookie carrying the
	// anti-CSRF state value during an OAuth redirect handoff.
	OAuthStateCookieName = "oauth_state"

	// OAuthStateTTL bounds how long an OAuth handoff may take.
	OAuthStateTTL = 10 * time.Minute

	// RefreshTokenCookieName is the HttpOnly cookie carrying the refresh JWT.
	RefreshTokenCookieName = "appforge_refresh"

	// RefreshTokenCookiePath scopes the refresh cookie to the refresh endpoint.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldData       = "data"
	FieldError      = "error"
	FieldCode       = "code"
	FieldDetails    = "details"
	FieldMessage    = "message"
	FieldStatus     = "status"
	FieldRetryAfter = "retry_after"
)

// # Database Schemas

const (
	SchemaUsers = "users"
	SchemaCore  = "core"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixAbuseCount = "abuse:count:"
	RedisPrefixAbuseBlock = "abuse:block:"
	RedisPrefixRateWindow = "ratelimit:window:"
)
