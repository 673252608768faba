// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Token Service) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the AppForge API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing secrets. Access and refresh tokens use INDEPENDENT
	// secrets so a leaked refresh secret cannot forge access tokens and
	// vice versa.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Progressive lockout tuning
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION"  envDefault:"15m"`

	// AbuseStore selects the backing store for abuse/rate-limit counters.
	// "memory" is single-instance only; "redis" coordinates across instances.
	AbuseStore string `env:"ABUSE_STORE" envDefault:"memory"`

	// Per-tier rate limiting (fixed windows)
	RateGeneralWindow   time.Duration `env:"RATE_GENERAL_WINDOW"   envDefault:"1m"`
	RateGeneralMax      int           `env:"RATE_GENERAL_MAX"      envDefault:"30"`
	RateAuthWindow      time.Duration `env:"RATE_AUTH_WINDOW"      envDefault:"15m"`
	RateAuthMax         int           `env:"RATE_AUTH_MAX"         envDefault:"3"`
	RateSensitiveWindow time.Duration `env:"RATE_SENSITIVE_WINDOW" envDefault:"60m"`
	RateSensitiveMax    int           `env:"RATE_SENSITIVE_MAX"    envDefault:"5"`
	RateLoginWindow     time.Duration `env:"RATE_LOGIN_WINDOW"     envDefault:"15m"`
	RateLoginMax        int           `env:"RATE_LOGIN_MAX"        envDefault:"5"`

	// FrontendURL is the base URL for links embedded in outbound emails and
	// for OAuth callback redirects.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// External identity providers (OAuth). Empty credentials disable the
	// provider; its routes respond 503.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`

	// Outbound transactional email (HTTP API provider)
	MailAPIKey    string `env:"MAIL_API_KEY"`
	MailFromEmail string `env:"MAIL_FROM_EMAIL" envDefault:"no-reply@appforge.dev"`
	MailFromName  string `env:"MAIL_FROM_NAME"  envDefault:"AppForge"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// ExtraOriginList returns the additional CORS origins as a parsed slice.
func (c *Config) ExtraOriginList() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
