// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package sec

import (
	"crypto/subtle"
	"time"
)

// # One-Time Tokens

// TokenPurpose identifies which out-of-band flow a one-time token belongs to.
type TokenPurpose string

const (
	// PurposeEmailVerification covers the post-registration verification link.
	PurposeEmailVerification TokenPurpose = "email-verification"

	// PurposePasswordReset covers the forgot-password link.
	PurposePasswordReset TokenPurpose = "password-reset"
)

// TTL returns the configured lifetime for tokens of this purpose.
//
// Verification links are long-lived (24h) because users may not check email
// immediately; reset links are short-lived (1h) because they grant account
// takeover on their own.
func (p TokenPurpose) TTL() time.Duration {
	switch p {
	case PurposePasswordReset:
		return 1 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// oneTimeTokenLength is the entropy byte length of the random token value.
const oneTimeTokenLength = 32

// OneTimeToken is the result of issuing a verification or reset token.
//
// # Storage Contract
//
// Raw is transmitted to the user (embedded in a URL) and never persisted.
// Only Hash and ExpiresAt are stored on the user record. At most one
// outstanding token exists per purpose — issuing a new one overwrites the
// previous digest, invalidating it.
type OneTimeToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
	Purpose   TokenPurpose
}

// IssueOneTimeToken generates a cryptographically random token for the given
// purpose along with its storable digest and expiry.
func IssueOneTimeToken(purpose TokenPurpose) (*OneTimeToken, error) {
	raw, err := GenerateSecureToken(oneTimeTokenLength)
	if err != nil {
		return nil, err
	}

	return &OneTimeToken{
		Raw:       raw,
		Hash:      HashToken(raw),
		ExpiresAt: time.Now().Add(purpose.TTL()),
		Purpose:   purpose,
	}, nil
}

// ConsumeOneTimeToken reports whether rawValue matches the stored digest and
// the token is still within its lifetime.
//
// # Single Use
//
// The Token Service itself is stateless: on success the CALLER must clear the
// stored hash and expiry so a replay with the same raw value fails. That side
// effect lives in the credential store.
func ConsumeOneTimeToken(rawValue, storedHash string, storedExpiry time.Time) bool {
	if rawValue == "" || storedHash == "" {
		return false
	}
	if !time.Now().Before(storedExpiry) {
		return false
	}

	providedHash := HashToken(rawValue)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
