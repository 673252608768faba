// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

// Command api is the entry point for the AppForge HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the security stack (tokens, lockout, rate tiers, sanitizer).
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tranvu/appforge/internal/api"
	"github.com/tranvu/appforge/internal/core/project"
	"github.com/tranvu/appforge/internal/platform/abuse"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/config"
	"github.com/tranvu/appforge/internal/platform/constants"
	"github.com/tranvu/appforge/internal/platform/email"
	"github.com/tranvu/appforge/internal/platform/migration"
	pgstore "github.com/tranvu/appforge/internal/platform/postgres"
	"github.com/tranvu/appforge/internal/platform/ratelimit"
	redisstore "github.com/tranvu/appforge/internal/platform/redis"
	requestutil "github.com/tranvu/appforge/internal/platform/request"
	"github.com/tranvu/appforge/internal/platform/sanitize"
	"github.com/tranvu/appforge/internal/platform/sec"
	"github.com/tranvu/appforge/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "appforge"))
	slog.SetDefault(log)

	log.Info("[AppForge] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "appforge"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("abuse_store", cfg.AbuseStore),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Lifetime context for background sweeps, cancelled on shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Stack ─────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		constants.AuthIssuer,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	must(log, err, "initialize token service")

	auditLog := audit.NewLogger(log)

	abuseConfig := abuse.Config{
		Threshold:       cfg.LockoutThreshold,
		LockoutDuration: cfg.LockoutDuration,
		Retention:       constants.AbuseRecordRetention,
	}

	// The abuse and rate-limit counters share a backend: in-memory for a
	// single instance, Redis when several instances must agree.
	var abuseStore abuse.Store
	var rateStore ratelimit.Store
	if cfg.AbuseStore == "redis" {
		abuseStore = abuse.NewRedisStore(rdb, abuseConfig)
		rateStore = ratelimit.NewRedisStore(rdb)
	} else {
		abuseStore = abuse.NewMemoryStore(abuseConfig)
		rateStore = ratelimit.NewMemoryStore(appCtx)
	}

	abuseTracker := abuse.NewTracker(abuseStore, auditLog, log)
	abuseTracker.StartSweep(appCtx, constants.AbuseSweepInterval)

	generalLimiter := ratelimit.New(ratelimit.Config{
		Name:   "general",
		Window: cfg.RateGeneralWindow,
		Max:    cfg.RateGeneralMax,
	}, rateStore, auditLog, log)

	// Exceeding the strict auth tier counts as an abuse failure, so
	// hammering registration walks straight into the progressive lockout.
	authLimiter := ratelimit.New(ratelimit.Config{
		Name:   "auth",
		Window: cfg.RateAuthWindow,
		Max:    cfg.RateAuthMax,
		OnExceed: func(ctx context.Context, r *http.Request) {
			abuseTracker.RecordFailure(ctx, abuse.IPKey(requestutil.RealIP(r)), r.URL.Path, r.UserAgent())
		},
	}, rateStore, auditLog, log)

	sensitiveLimiter := ratelimit.New(ratelimit.Config{
		Name:   "sensitive",
		Window: cfg.RateSensitiveWindow,
		Max:    cfg.RateSensitiveMax,
	}, rateStore, auditLog, log)

	loginLimiter := ratelimit.New(ratelimit.Config{
		Name:   "login",
		Window: cfg.RateLoginWindow,
		Max:    cfg.RateLoginMax,
	}, rateStore, auditLog, log)

	// ── 7. Outbound Email ─────────────────────────────────────────────────
	var mailer email.Mailer
	if cfg.MailAPIKey != "" {
		mailer = email.NewClient(cfg.MailAPIKey, cfg.MailFromEmail, cfg.MailFromName, cfg.FrontendURL)
	} else {
		log.Warn("mail_api_key_missing_using_nop_mailer")
		mailer = &email.NopMailer{Log: log}
	}

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	authService := auth.NewService(userRepository, tokenService, mailer, abuseTracker, loginLimiter, auditLog, log)
	authHandler := auth.NewHandler(authService, authLimiter, sensitiveLimiter, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	oauthHandler := auth.NewOAuthHandler(authService, cfg.FrontendURL, auditLog,
		auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL),
	)

	projectRepository := project.NewProjectRepository(pool)
	projectService := project.NewService(projectRepository)
	projectHandler := project.NewHandler(projectService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	security := api.Security{
		Verifier:       tokenService,
		GeneralLimiter: generalLimiter,
		AbuseTracker:   abuseTracker,
		Detector:       sanitize.NewDetector(),
		Audit:          auditLog,
	}

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		OAuth:     oauthHandler,
		Project:   projectHandler,
	}

	server := api.NewServer(cfg, log, security, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
