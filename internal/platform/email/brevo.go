// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

	// Outbound throttle. Brevo free-tier tolerates short bursts but
	// sustains only a few messages per second per account.
	mailRatePerSecond = 2
	mailBurst         = 5
)

// # Brevo HTTP Client

// Client sends transactional mail through the Brevo HTTP API.
type Client struct {
	apiKey      string
	fromEmail   string
	fromName    string
	frontendURL string
	httpClient  *http.Client
	throttle    *rate.Limiter
}

// NewClient builds a throttled Brevo mail client. Links embedded in the
// messages point at frontendURL.
func NewClient(apiKey, fromEmail, fromName, frontendURL string) *Client {
	return &Client{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		throttle:    rate.NewLimiter(rate.Limit(mailRatePerSecond), mailBurst),
	}
}

func (c *Client) SendVerificationEmail(ctx context.Context, toEmail, toName, rawToken string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", c.frontendURL, rawToken)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Welcome to AppForge. Confirm your email address within 24 hours:</p><p><a href=%q>Verify my email</a></p><p>If you did not create this account, you can ignore this message.</p>`,
		htmlName(toName), link,
	)
	return c.send(ctx, toEmail, "Confirm your AppForge account", html)
}

func (c *Client) SendPasswordResetEmail(ctx context.Context, toEmail, toName, rawToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.frontendURL, rawToken)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>We received a request to reset your AppForge password. The link below expires in 1 hour:</p><p><a href=%q>Reset my password</a></p><p>If you did not request this, your account is unaffected.</p>`,
		htmlName(toName), link,
	)
	return c.send(ctx, toEmail, "Reset your AppForge password", html)
}

func htmlName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// # Transport

type sendEmailRequest struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func (c *Client) send(ctx context.Context, toEmail, subject, html string) error {

	// 1. Honor the outbound throttle before touching the network
	if err := c.throttle.Wait(ctx); err != nil {
		return fmt.Errorf("email: throttle wait aborted: %w", err)
	}

	// 2. Build the provider payload
	payload := sendEmailRequest{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("email: failed to marshal payload: %w", err)
	}

	// 3. Fire the HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: failed to create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("email: provider request failed: %w", err)
	}
	defer resp.Body.Close()

	// 4. Anything 4xx/5xx is a delivery failure
	if resp.StatusCode >= 400 {
		var providerError map[string]any
		if decodeErr := json.NewDecoder(resp.Body).Decode(&providerError); decodeErr != nil {
			return fmt.Errorf("email: provider returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("email: provider returned status %d: %v", resp.StatusCode, providerError)
	}

	return nil
}
