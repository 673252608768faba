// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/constants"
	"github.com/tranvu/appforge/internal/platform/ctxutil"
	requestutil "github.com/tranvu/appforge/internal/platform/request"
	"github.com/tranvu/appforge/internal/platform/respond"
	"github.com/tranvu/appforge/internal/platform/sec"
)

// # OAuth Delivery Layer

// OAuthHandler implements the browser redirect flow for external identity
// providers. Outcomes, success or failure, always land on the frontend
// callback page; only the 503 for an unconfigured provider is answered
// directly.
type OAuthHandler struct {
	authService *Service
	providers   map[string]IdentityProvider
	frontendURL string
	auditLog    *audit.Logger
}

// NewOAuthHandler constructs the OAuth delivery layer.
func NewOAuthHandler(service *Service, frontendURL string, auditLog *audit.Logger, providers ...IdentityProvider) *OAuthHandler {
	byName := make(map[string]IdentityProvider, len(providers))
	for _, provider := range providers {
		byName[provider.Name()] = provider
	}
	return &OAuthHandler{
		authService: service,
		providers:   byName,
		frontendURL: frontendURL,
		auditLog:    auditLog,
	}
}

// Routes returns a [chi.Router] with the provider redirect endpoints.
//
// # Endpoints
//   - GET /{provider}          : Starts the authorization handoff.
//   - GET /{provider}/callback : Completes the exchange and signs in.
func (handler *OAuthHandler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/{provider}", handler.begin)
	router.Get("/{provider}/callback", handler.callback)
	return router
}

func (handler *OAuthHandler) lookupProvider(writer http.ResponseWriter, request *http.Request) (IdentityProvider, bool) {
	name := requestutil.Param(request, "provider")

	provider, known := handler.providers[name]
	if !known {
		respond.Error(writer, request, apperr.NotFound("Unknown identity provider"))
		return nil, false
	}
	if !provider.Configured() {
		respond.Error(writer, request, apperr.ServiceUnavailable("This sign-in method is not available"))
		return nil, false
	}

	return provider, true
}

/*
Begin starts the OAuth authorization handoff.

GET /api/v1/oauth/{provider}

Description: Mints an anti-CSRF state value, pins it to the browser in a
short-lived HttpOnly cookie, and redirects to the provider's consent page.

Response:
  - 302: Redirect to the provider
  - 404: ErrNotFound: Unknown provider
  - 503: ErrServiceUnavailable: Provider not configured
*/
func (handler *OAuthHandler) begin(writer http.ResponseWriter, request *http.Request) {
	provider, ok := handler.lookupProvider(writer, request)
	if !ok {
		return
	}

	state, err := sec.GenerateSecureToken(16)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(constants.OAuthStateTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(writer, request, provider.AuthCodeURL(state), http.StatusFound)
}

/*
Callback completes the OAuth exchange.

GET /api/v1/oauth/{provider}/callback

Description: Validates the anti-CSRF state, exchanges the authorization
code, links or creates the local account, and redirects to the frontend
with credentials or a failure code.

Response:
  - 302: Redirect to the frontend callback page
  - 404: ErrNotFound: Unknown provider
  - 503: ErrServiceUnavailable: Provider not configured
*/
func (handler *OAuthHandler) callback(writer http.ResponseWriter, request *http.Request) {
	provider, ok := handler.lookupProvider(writer, request)
	if !ok {
		return
	}

	// The state cookie is single-use regardless of outcome.
	clearState := &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(writer, clearState)

	// 1. The user may have declined consent at the provider
	if wireError := request.URL.Query().Get("error"); wireError != "" {
		code := OAuthCodeAccessDenied
		if wireError != "access_denied" {
			code = OAuthCodeServerError
		}
		handler.failLogin(writer, request, provider.Name(), code)
		return
	}

	// 2. The state must match the cookie pinned at the start of the flow
	stateCookie, err := request.Cookie(constants.OAuthStateCookieName)
	returnedState := request.URL.Query().Get("state")
	if err != nil || returnedState == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(returnedState)) != 1 {
		handler.failLogin(writer, request, provider.Name(), OAuthCodeServerError)
		return
	}

	code := request.URL.Query().Get("code")
	if code == "" {
		handler.failLogin(writer, request, provider.Name(), OAuthCodeInvalidGrant)
		return
	}

	// 3. Exchange the code and resolve the external identity
	profile, err := provider.FetchProfile(request.Context(), code)
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
			"oauth_exchange_failed", "provider", provider.Name(), "error", err)
		handler.failLogin(writer, request, provider.Name(), OAuthCodeOf(err))
		return
	}

	// 4. Resolve to a local account and issue credentials
	pair, err := handler.authService.LoginWithProvider(request.Context(), profile)
	if err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(),
			"oauth_link_failed", "provider", provider.Name(), "error", err)
		handler.failLogin(writer, request, provider.Name(), OAuthCodeServerError)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// The frontend callback page receives both tokens in the query string.
	// Cookie-less clients (mobile webviews) have no other channel here.
	callbackURL := handler.frontendURL + "/oauth/callback?" + url.Values{
		"accessToken":  {pair.AccessToken},
		"refreshToken": {pair.RefreshToken},
	}.Encode()

	http.Redirect(writer, request, callbackURL, http.StatusFound)
}

// failLogin records the failure on the audit stream and bounces the
// browser back to the frontend with nothing but the failure code.
func (handler *OAuthHandler) failLogin(writer http.ResponseWriter, request *http.Request, providerName, code string) {
	handler.auditLog.Emit(request.Context(), audit.Event{
		Kind:       audit.EventOAuthFailure,
		Identifier: requestutil.RealIP(request),
		Endpoint:   request.URL.Path,
		UserAgent:  request.UserAgent(),
		Tags:       []string{providerName, code},
	})

	callbackURL := handler.frontendURL + "/oauth/callback?" + url.Values{
		"error": {code},
	}.Encode()

	http.Redirect(writer, request, callbackURL, http.StatusFound)
}
