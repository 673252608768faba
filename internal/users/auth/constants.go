// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

// # Authentication Constraints

const (
	// GenericCredentialError is the single message returned for every
	// credential failure: unknown email, wrong password, or OAuth-only
	// account. One message defeats account enumeration.
	GenericCredentialError = "Invalid login credentials"

	// UnverifiedEmailError is returned when the password was correct but
	// the mailbox is still unconfirmed. The caller has already proven
	// ownership of the account, so the distinct message leaks nothing.
	UnverifiedEmailError = "Please verify your email address before signing in"

	// GenericRecoveryMessage is returned for every forgot-password
	// request regardless of whether the email exists.
	GenericRecoveryMessage = "If this email is registered, a reset link has been sent."

	// MinPasswordLength applies to registration, reset, and change flows.
	MinPasswordLength = 8

	// MaxDisplayNameLength bounds the profile display name.
	MaxDisplayNameLength = 64
)
