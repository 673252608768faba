// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/ctxutil"
	"github.com/tranvu/appforge/internal/platform/middleware"
	"github.com/tranvu/appforge/internal/platform/sec"
)

func newAuditLogger() *audit.Logger {
	return audit.NewLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTokenService(t *testing.T, accessTTL time.Duration) *sec.TokenService {
	t.Helper()

	service, err := sec.NewTokenService(
		"test-access-secret-0123456789abcdef",
		"test-refresh-secret-0123456789abcdef",
		"appforge-test",
		accessTTL,
		time.Hour,
	)
	require.NoError(t, err)
	return service
}

// okHandler records whether the chain reached the protected handler.
func okHandler(reached *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusNoContent)
	})
}

func authedRequest(claims *sec.AuthClaims) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1", nil)
	if claims == nil {
		return request
	}
	return request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
}

/*
TestAuthenticate covers the three header states: absent (anonymous
pass-through), valid (identity attached), and broken (generic 401).
*/
func TestAuthenticate(t *testing.T) {
	tokens := newTokenService(t, time.Hour)
	chain := middleware.Authenticate(tokens, newAuditLogger())

	// 1. No header: the request continues without identity
	var sawClaims *sec.AuthClaims
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawClaims = ctxutil.GetAuthUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Nil(t, sawClaims)

	// 2. A valid token attaches the verified identity
	token, err := tokens.IssueAccessToken("user-1", "dev@appforge.dev", sec.RoleUser, true)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	require.NotNil(t, sawClaims)
	assert.Equal(t, "user-1", sawClaims.UserID)
	assert.True(t, sawClaims.Verified)

	// 3. Malformed, forged, and expired headers all get the same generic 401
	expiredService := newTokenService(t, time.Millisecond)
	expiredToken, err := expiredService.IssueAccessToken("user-1", "dev@appforge.dev", sec.RoleUser, true)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	badHeaders := map[string]string{
		"missing_scheme": "no-scheme-token",
		"wrong_scheme":   "Basic dXNlcjpwYXNz",
		"empty_token":    "Bearer ",
		"garbage_token":  "Bearer not.a.jwt",
		"expired_token":  "Bearer " + expiredToken,
	}
	for name, header := range badHeaders {
		t.Run(name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			request.Header.Set("Authorization", header)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "Invalid or expired token")
		})
	}
}

/*
TestRequireAuth verifies the anonymous-rejection guard.
*/
func TestRequireAuth(t *testing.T) {
	var reached bool
	handler := middleware.RequireAuth()(okHandler(&reached))

	// 1. Anonymous: rejected
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, reached)

	// 2. Authenticated: passes
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(&sec.AuthClaims{UserID: "user-1", Role: sec.RoleUser}))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, reached)
}

/*
TestRequireRole verifies the hierarchy comparison.
*/
func TestRequireRole(t *testing.T) {
	var reached bool
	handler := middleware.RequireRole(sec.RoleAdmin)(okHandler(&reached))

	// 1. A standard user ranks below admin
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(&sec.AuthClaims{UserID: "user-1", Role: sec.RoleUser}))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.False(t, reached)

	// 2. An admin passes
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(&sec.AuthClaims{UserID: "admin-1", Role: sec.RoleAdmin}))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, reached)

	// 3. Anonymous gets 401, not 403
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestRequireVerified verifies the email-confirmation guard.
*/
func TestRequireVerified(t *testing.T) {
	var reached bool
	handler := middleware.RequireVerified()(okHandler(&reached))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(&sec.AuthClaims{UserID: "user-1", Role: sec.RoleUser, Verified: false}))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Email verification required")
	assert.False(t, reached)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, authedRequest(&sec.AuthClaims{UserID: "user-1", Role: sec.RoleUser, Verified: true}))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, reached)
}

/*
TestRequireOwner verifies the ownership guard: owners and admins pass,
non-owners get 403, and a missing resource surfaces as the loader's 404.
*/
func TestRequireOwner(t *testing.T) {
	loadOwner := func(_ context.Context, resourceID string) (string, error) {
		if resourceID == "p1" {
			return "owner-1", nil
		}
		return "", apperr.NotFound("Project")
	}

	serve := func(claims *sec.AuthClaims, resourceID string) *httptest.ResponseRecorder {
		router := chi.NewRouter()
		router.With(middleware.RequireOwner("id", loadOwner)).
			Delete("/projects/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

		request := httptest.NewRequest(http.MethodDelete, "/projects/"+resourceID, nil)
		if claims != nil {
			request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	// 1. The owner passes
	recorder := serve(&sec.AuthClaims{UserID: "owner-1", Role: sec.RoleUser}, "p1")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	// 2. A different user is forbidden
	recorder = serve(&sec.AuthClaims{UserID: "intruder", Role: sec.RoleUser}, "p1")
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// 3. Admins bypass ownership entirely
	recorder = serve(&sec.AuthClaims{UserID: "admin-1", Role: sec.RoleAdmin}, "p1")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	// 4. A missing resource is 404, never a 403 that confirms existence
	recorder = serve(&sec.AuthClaims{UserID: "intruder", Role: sec.RoleUser}, "ghost")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// 5. Anonymous gets 401
	recorder = serve(nil, "p1")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
