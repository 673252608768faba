// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package auth implements the user identity and account lifecycle layer.

It defines the core domain entity (User) together with the registration,
login, token refresh, email verification, password recovery, and external
identity linking flows built on top of it.

# Architecture

This layer is the "Truth" of the system. The entity defined here has no
external dependencies and encapsulates all business rules related to user
identity, including the single-use token state carried on the account row.
*/
package auth

import (
	"time"

	"github.com/tranvu/appforge/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the AppForge platform.
//
// Single-use token state (verification, password reset) lives directly on
// the account row: only the SHA-256 hash and expiry are stored, never the
// raw value, and consuming a token clears both columns.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	Role         sec.UserRole `json:"role"`
	IsVerified   bool         `json:"is_verified"`

	// Providers maps an external identity provider name ("google",
	// "github") to the stable subject ID that provider assigned.
	Providers map[string]string `json:"providers,omitempty"`

	VerificationTokenHash   string    `json:"-"`
	VerificationTokenExpiry time.Time `json:"-"`
	ResetTokenHash          string    `json:"-"`
	ResetTokenExpiry        time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with
// credentials. OAuth-only accounts carry an empty hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// # Field Identifiers

// Global field names for validation and identity mapping in the
// authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldRefreshToken    = "refresh_token"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
)
