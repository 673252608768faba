// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// # Google Provider

// GoogleProvider implements [IdentityProvider] against Google's OpenID
// Connect endpoints.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
}

// NewGoogleProvider builds the Google integration. Empty credentials leave
// the provider mounted but unconfigured.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Configured() bool {
	return p.clientID != "" && p.clientSecret != "" && p.redirectURL != ""
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", p.clientID)
	query.Set("redirect_uri", p.redirectURL)
	query.Set("response_type", "code")
	query.Set("scope", "openid email profile")
	query.Set("state", state)
	return googleAuthURL + "?" + query.Encode()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, code string) (*ExternalProfile, error) {

	// 1. Exchange the authorization code for an access token
	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", p.redirectURL)

	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tokenResp, err := p.httpClient.Do(tokenReq)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeNetworkError, Cause: err}
	}
	defer tokenResp.Body.Close()

	var token googleTokenResponse
	if err := json.NewDecoder(tokenResp.Body).Decode(&token); err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}

	if token.Error != "" || token.AccessToken == "" {
		return nil, mapWireError(token.Error)
	}

	// 2. Resolve the token to an identity
	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	infoReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	infoResp, err := p.httpClient.Do(infoReq)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeNetworkError, Cause: err}
	}
	defer infoResp.Body.Close()

	if infoResp.StatusCode != http.StatusOK {
		return nil, &OAuthError{
			Code:  OAuthCodeServerError,
			Cause: fmt.Errorf("userinfo returned status %d", infoResp.StatusCode),
		}
	}

	var info googleUserInfo
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}

	if info.Subject == "" {
		return nil, &OAuthError{
			Code:  OAuthCodeServerError,
			Cause: fmt.Errorf("userinfo response missing subject"),
		}
	}
	if info.Email == "" {
		return nil, &OAuthError{
			Code:  OAuthCodeMissingEmail,
			Cause: fmt.Errorf("userinfo response missing email"),
		}
	}

	return &ExternalProfile{
		Provider:      p.Name(),
		ProviderID:    info.Subject,
		Email:         strings.ToLower(info.Email),
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
	}, nil
}

// mapWireError converts an RFC 6749 token endpoint error into our taxonomy.
func mapWireError(wireCode string) *OAuthError {
	switch wireCode {
	case "invalid_grant":
		return &OAuthError{Code: OAuthCodeInvalidGrant}
	case "invalid_client", "unauthorized_client":
		return &OAuthError{Code: OAuthCodeInvalidClient}
	case "access_denied":
		return &OAuthError{Code: OAuthCodeAccessDenied}
	default:
		return &OAuthError{Code: OAuthCodeServerError, Cause: fmt.Errorf("token endpoint error %q", wireCode)}
	}
}
