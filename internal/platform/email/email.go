// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package email delivers transactional mail for account flows.

Two implementations are provided:

  - Client: sends through the Brevo HTTP API, throttled so a burst of
    signups cannot exhaust the provider quota.
  - NopMailer: logs the would-be delivery. Used in development and test
    environments where no API key is configured.

Both satisfy the [Mailer] interface consumed by the auth service, so the
domain layer never knows which transport is active.
*/
package email

import (
	"context"
	"log/slog"
)

// # Delivery Contract

// Mailer sends the account lifecycle emails.
type Mailer interface {

	/*
		SendVerificationEmail delivers the email-confirmation link for a new
		or re-requested registration.

		Parameters:
		  - ctx: carries cancellation and the request-scoped logger.
		  - toEmail: recipient address.
		  - toName: recipient display name, may be empty.
		  - rawToken: the single-use verification token to embed in the link.

		Returns:
		  - error: nil when the provider accepted the message.
	*/
	SendVerificationEmail(ctx context.Context, toEmail, toName, rawToken string) error

	/*
		SendPasswordResetEmail delivers the password-reset link.

		Parameters:
		  - ctx: carries cancellation and the request-scoped logger.
		  - toEmail: recipient address.
		  - toName: recipient display name, may be empty.
		  - rawToken: the single-use reset token to embed in the link.

		Returns:
		  - error: nil when the provider accepted the message.
	*/
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, rawToken string) error
}

// # Development Fallback

// NopMailer satisfies [Mailer] without external delivery. The raw token is
// logged at DEBUG so local flows can be completed by hand.
type NopMailer struct {
	Log *slog.Logger
}

func (m *NopMailer) SendVerificationEmail(ctx context.Context, toEmail, toName, rawToken string) error {
	m.Log.DebugContext(ctx, "mail_skipped",
		slog.String("kind", "verification"),
		slog.String("to", toEmail),
		slog.String("token", rawToken),
	)
	return nil
}

func (m *NopMailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, rawToken string) error {
	m.Log.DebugContext(ctx, "mail_skipped",
		slog.String("kind", "password_reset"),
		slog.String("to", toEmail),
		slog.String("token", rawToken),
	)
	return nil
}
