// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByVerificationHash returns the account holding the given
		verification token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByVerificationHash(context context.Context, tokenHash string) (*User, error)

	/*
		FindByResetHash returns the account holding the given password
		reset token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByResetHash(context context.Context, tokenHash string) (*User, error)

	/*
		FindByProvider returns the account linked to an external identity.

		Parameters:
		  - context: context.Context
		  - provider: string ("google", "github")
		  - providerID: string (the provider's stable subject ID)

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByProvider(context context.Context, provider, providerID string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists changes to mutable profile fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		MarkVerified flips the account to verified and clears the
		verification token columns in the same statement.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID string) error

	/*
		SetVerificationToken stores a fresh verification token hash,
		replacing any earlier one.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetVerificationToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		SetResetToken stores a fresh password reset token hash,
		replacing any earlier one.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		ClearResetToken removes the stored reset token state. Called after
		a successful reset so the token can never be replayed.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	ClearResetToken(context context.Context, userID string) error

	/*
		LinkProvider adds an external identity mapping to the account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - provider: string
		  - providerID: string

		Returns:
		  - error: Persistence failures
	*/
	LinkProvider(context context.Context, userID, provider, providerID string) error
}
