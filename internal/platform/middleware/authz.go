// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/ctxutil"
	requestutil "github.com/tranvu/appforge/internal/platform/request"
	"github.com/tranvu/appforge/internal/platform/respond"
	"github.com/tranvu/appforge/internal/platform/sec"
)

// # Token Authentication

// AccessVerifier validates a bearer token and returns its claims.
type AccessVerifier interface {

	/*
		VerifyAccessToken validates the signature, expiry and issuer of an
		access token.

		Parameters:
		  - tokenString: the raw compact JWT from the Authorization header.

		Returns:
		  - *sec.AuthClaims: the verified identity claims.
		  - error: sec.ErrTokenExpired or sec.ErrTokenInvalid on failure.
	*/
	VerifyAccessToken(tokenString string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the Bearer token if one is present.
//
// A request without an Authorization header passes through anonymously so
// that public routes can share the chain. A header that is present but
// malformed, expired or forged is rejected with a single generic 401; the
// expired/invalid distinction is kept to the logs and the audit stream so
// the response never helps an attacker probe token state.
func Authenticate(verifier AccessVerifier, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Anonymous requests continue without identity
			authHeader := request.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Enforce the Bearer scheme
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				rejectToken(writer, request, auditLog, "malformed_header")
				return
			}

			// 3. Verify signature, expiry and issuer
			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, sec.ErrTokenExpired) {
					reason = "expired"
				}
				rejectToken(writer, request, auditLog, reason)
				return
			}

			// 4. Attach the verified identity to the context
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func rejectToken(writer http.ResponseWriter, request *http.Request, auditLog *audit.Logger, reason string) {
	ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
		"token_rejected", slog.String("reason", reason))

	auditLog.Emit(request.Context(), audit.Event{
		Kind:       audit.EventTokenRejected,
		Identifier: requestutil.RealIP(request),
		Endpoint:   request.URL.Path,
		UserAgent:  request.UserAgent(),
		Tags:       []string{reason},
	})

	respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
}

// # Access Guards

// RequireAuth rejects anonymous requests. It assumes Authenticate ran
// earlier in the chain.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if ctxutil.GetAuthUser(request.Context()) == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole rejects authenticated callers whose role ranks below minimum.
func RequireRole(minimum sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !claims.Role.AtLeast(minimum) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireVerified rejects callers whose email address is not yet confirmed.
func RequireVerified() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !claims.Verified {
				respond.Error(writer, request, apperr.Forbidden("Email verification required"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Ownership Guard

// OwnerLoader resolves the owning user ID of a resource.
type OwnerLoader func(ctx context.Context, resourceID string) (string, error)

// RequireOwner restricts a route to the owner of the resource named by the
// given chi URL parameter. Admins pass regardless of ownership.
//
// A missing resource surfaces as 404 rather than 403 so the guard does not
// reveal whether the ID exists.
func RequireOwner(paramName string, loadOwner OwnerLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// Admins bypass the ownership check
			if claims.Role.AtLeast(sec.RoleAdmin) {
				next.ServeHTTP(writer, request)
				return
			}

			resourceID := requestutil.Param(request, paramName)
			ownerID, err := loadOwner(request.Context(), resourceID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if ownerID != claims.UserID {
				respond.Error(writer, request, apperr.Forbidden("You do not own this resource"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
