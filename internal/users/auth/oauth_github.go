// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	githubAuthURL   = "https://github.com/login/oauth/authorize"
	githubTokenURL  = "https://github.com/login/oauth/access_token"
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// # GitHub Provider

// GitHubProvider implements [IdentityProvider] against the GitHub OAuth
// and REST APIs.
//
// GitHub differs from OpenID providers in two ways: the token endpoint
// answers 200 with an error field instead of an error status, and the
// user record may hide the email, requiring a second call to the emails
// endpoint.
type GitHubProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
}

// NewGitHubProvider builds the GitHub integration. Empty credentials leave
// the provider mounted but unconfigured.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) Configured() bool {
	return p.clientID != "" && p.clientSecret != "" && p.redirectURL != ""
}

func (p *GitHubProvider) AuthCodeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", p.clientID)
	query.Set("redirect_uri", p.redirectURL)
	query.Set("scope", "read:user user:email")
	query.Set("state", state)
	return githubAuthURL + "?" + query.Encode()
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) FetchProfile(ctx context.Context, code string) (*ExternalProfile, error) {

	// 1. Exchange the authorization code for an access token
	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.redirectURL)

	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodPost, githubTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenReq.Header.Set("Accept", "application/json")

	tokenResp, err := p.httpClient.Do(tokenReq)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeNetworkError, Cause: err}
	}
	defer tokenResp.Body.Close()

	var token githubTokenResponse
	if err := json.NewDecoder(tokenResp.Body).Decode(&token); err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}

	if token.Error != "" || token.AccessToken == "" {
		// GitHub spells the expired-code case "bad_verification_code".
		if token.Error == "bad_verification_code" {
			return nil, &OAuthError{Code: OAuthCodeInvalidGrant}
		}
		return nil, mapWireError(token.Error)
	}

	// 2. Resolve the token to an identity
	user, err := p.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	// 3. The public profile may hide the email; fall back to the
	// dedicated emails endpoint and take the verified primary.
	emailAddress := user.Email
	emailVerified := emailAddress != ""
	if emailAddress == "" {
		emailAddress, emailVerified, err = p.fetchPrimaryEmail(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	displayName := user.Name
	if displayName == "" {
		displayName = user.Login
	}

	return &ExternalProfile{
		Provider:      p.Name(),
		ProviderID:    strconv.FormatInt(user.ID, 10),
		Email:         strings.ToLower(emailAddress),
		EmailVerified: emailVerified,
		DisplayName:   displayName,
	}, nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserURL, nil)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &OAuthError{Code: OAuthCodeNetworkError, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &OAuthError{
			Code:  OAuthCodeServerError,
			Cause: fmt.Errorf("user endpoint returned status %d", resp.StatusCode),
		}
	}

	user := &githubUser{}
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	if user.ID == 0 {
		return nil, &OAuthError{
			Code:  OAuthCodeServerError,
			Cause: fmt.Errorf("user endpoint response missing id"),
		}
	}

	return user, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubEmailsURL, nil)
	if err != nil {
		return "", false, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", false, &OAuthError{Code: OAuthCodeNetworkError, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, &OAuthError{
			Code:  OAuthCodeServerError,
			Cause: fmt.Errorf("emails endpoint returned status %d", resp.StatusCode),
		}
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", false, &OAuthError{Code: OAuthCodeServerError, Cause: err}
	}

	for _, candidate := range emails {
		if candidate.Primary {
			return candidate.Email, candidate.Verified, nil
		}
	}
	for _, candidate := range emails {
		if candidate.Verified {
			return candidate.Email, true, nil
		}
	}

	return "", false, &OAuthError{
		Code:  OAuthCodeMissingEmail,
		Cause: fmt.Errorf("no usable email on the GitHub account"),
	}
}
