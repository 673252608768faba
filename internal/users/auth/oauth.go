// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"context"
	"fmt"

	"github.com/tranvu/appforge/internal/platform/sec"
	"github.com/tranvu/appforge/pkg/uuid"
)

// # External Identity Contracts

// ExternalProfile is the provider-neutral identity a completed OAuth
// exchange resolves to.
type ExternalProfile struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// IdentityProvider is the contract each OAuth integration implements.
type IdentityProvider interface {

	// Name returns the stable provider key ("google", "github").
	Name() string

	// Configured reports whether credentials were supplied. Unconfigured
	// providers keep their routes mounted but answer 503.
	Configured() bool

	/*
		AuthCodeURL builds the provider's authorization redirect target.

		Parameters:
		  - state: the anti-CSRF value bound to the initiating browser.

		Returns:
		  - string: fully-formed authorization URL.
	*/
	AuthCodeURL(state string) string

	/*
		FetchProfile exchanges an authorization code and resolves the
		provider-side identity.

		Parameters:
		  - ctx: carries cancellation for both HTTP round trips.
		  - code: the authorization code from the provider callback.

		Returns:
		  - *ExternalProfile: the resolved identity.
		  - error: an *OAuthError carrying a client-safe code.
	*/
	FetchProfile(ctx context.Context, code string) (*ExternalProfile, error)
}

// # Failure Taxonomy

// OAuth failure codes surfaced to the frontend redirect. They mirror the
// wire-level RFC 6749 error names so the frontend needs no translation.
const (
	OAuthCodeAccessDenied  = "access_denied"
	OAuthCodeInvalidGrant  = "invalid_grant"
	OAuthCodeInvalidClient = "invalid_client"
	OAuthCodeMissingEmail  = "missing_email"
	OAuthCodeNetworkError  = "network_error"
	OAuthCodeServerError   = "server_error"
)

// OAuthError wraps a provider exchange failure with a client-safe code.
// The Cause stays in the logs; only Code travels to the frontend.
type OAuthError struct {
	Code  string
	Cause error
}

func (e *OAuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oauth: %s: %v", e.Code, e.Cause)
	}
	return "oauth: " + e.Code
}

func (e *OAuthError) Unwrap() error { return e.Cause }

// OAuthCodeOf extracts the client-safe code from any error produced during
// an exchange, defaulting to server_error.
func OAuthCodeOf(err error) string {
	if oauthErr, ok := err.(*OAuthError); ok {
		return oauthErr.Code
	}
	return OAuthCodeServerError
}

// # Account Linking

/*
LoginWithProvider resolves an external profile to a local account and
issues a credential pair for it.

Description: Finds the account already linked to this provider identity,
or links the identity to an existing account with the same email, or
creates a brand-new passwordless account. A returning OAuth user never
produces a duplicate account.

Parameters:
  - context: context.Context
  - profile: *ExternalProfile

Returns:
  - *TokenPair: Transport-ready credentials
  - err: Storage failures
*/
func (service *Service) LoginWithProvider(context context.Context, profile *ExternalProfile) (*TokenPair, error) {

	// Returning user: the provider identity is already linked.
	user, err := service.userRepository.FindByProvider(context, profile.Provider, profile.ProviderID)
	if err == nil {
		return service.issuePair(user)
	}

	// Same mailbox, different door: link the identity to the existing
	// account instead of creating a duplicate.
	user, err = service.userRepository.FindByEmail(context, profile.Email)
	if err == nil {
		if err := service.userRepository.LinkProvider(context, user.ID, profile.Provider, profile.ProviderID); err != nil {
			return nil, fmt.Errorf("auth_service_link_provider_failed: %w", err)
		}
		if user.Providers == nil {
			user.Providers = map[string]string{}
		}
		// The store keeps the first subject id linked for a provider, so the
		// local view must never overwrite an existing entry either.
		if _, linked := user.Providers[profile.Provider]; !linked {
			user.Providers[profile.Provider] = profile.ProviderID
		}

		// The provider vouching for the mailbox satisfies our own
		// verification requirement.
		if !user.IsVerified && profile.EmailVerified {
			if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
				return nil, fmt.Errorf("auth_service_oauth_verify_failed: %w", err)
			}
			user.IsVerified = true
		}

		return service.issuePair(user)
	}

	// First contact: enroll a passwordless account.
	user = &User{
		ID:          uuid.New(),
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Role:        sec.RoleUser,
		IsVerified:  profile.EmailVerified,
		Providers:   map[string]string{profile.Provider: profile.ProviderID},
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_oauth_create_failed: %w", err)
	}

	return service.issuePair(user)
}
