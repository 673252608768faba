// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tranvu/appforge/internal/core/project"
	"github.com/tranvu/appforge/internal/platform/abuse"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/config"
	"github.com/tranvu/appforge/internal/platform/constants"
	"github.com/tranvu/appforge/internal/platform/middleware"
	"github.com/tranvu/appforge/internal/platform/ratelimit"
	requestutil "github.com/tranvu/appforge/internal/platform/request"
	"github.com/tranvu/appforge/internal/platform/sanitize"
	"github.com/tranvu/appforge/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Security Chain

// Security groups the cross-cutting defense components the router mounts
// in front of every domain handler.
type Security struct {
	// Verifier validates access tokens on the Authorization header.
	Verifier middleware.AccessVerifier

	// GeneralLimiter is the per-IP fixed window applied to all routes.
	GeneralLimiter *ratelimit.Limiter

	// AbuseTracker answers lockout checks for the caller IP.
	AbuseTracker *abuse.Tracker

	// Detector scans inbound material for suspicious patterns.
	Detector *sanitize.Detector

	// Audit is the security event stream shared by the chain.
	Audit *audit.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the account lifecycle routes.
	Auth *auth.Handler

	// OAuth handles the external identity redirect flows.
	OAuth *auth.OAuthHandler

	// Project handles the owned-resource routes.
	Project *project.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// # Chain Order
//
// Tracing and logging come first so every later rejection is correlated;
// the rate limit and lockout gates run before any body is read; the
// sanitizer rewrites the body before recovery, authentication, and CORS.
func NewServer(cfg *config.Config, log *slog.Logger, security Security, h Handlers) *Server {
	r := chi.NewRouter()

	byIP := func(request *http.Request) string { return requestutil.RealIP(request) }

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(security.GeneralLimiter.Middleware(byIP))
	r.Use(middleware.BlockCheck(security.AbuseTracker, security.Audit))
	r.Use(sanitize.Middleware(security.Detector, security.Audit))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(security.Verifier, security.Audit))
	r.Use(middleware.CORS(cfg, security.Audit))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/oauth", h.OAuth.Routes())
		api.Route("/projects", h.Project.RegisterRoutes)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
