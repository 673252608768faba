// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tranvu/appforge/internal/platform/abuse"
	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/email"
	"github.com/tranvu/appforge/internal/platform/ratelimit"
	"github.com/tranvu/appforge/internal/platform/sec"
	"github.com/tranvu/appforge/pkg/uuid"
)

// # Service Definition

// Service implements the account lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// or login logic must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	tokens         *sec.TokenService
	mailer         email.Mailer
	abuseTracker   *abuse.Tracker
	loginLimiter   *ratelimit.Limiter
	auditLog       *audit.Logger
	log            *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	userRepo UserRepository,
	tokens *sec.TokenService,
	mailer email.Mailer,
	abuseTracker *abuse.Tracker,
	loginLimiter *ratelimit.Limiter,
	auditLog *audit.Logger,
	log *slog.Logger,
) *Service {
	return &Service{
		userRepository: userRepo,
		tokens:         tokens,
		mailer:         mailer,
		abuseTracker:   abuseTracker,
		loginLimiter:   loginLimiter,
		auditLog:       auditLog,
		log:            log,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrolls a new member, handling password hashing and issuing
the initial email verification token.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Issue the single-use verification token up front so its hash lands in
	// the same INSERT as the account itself.
	verification, err := sec.IssueOneTimeToken(sec.PurposeEmailVerification)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:                      uuid.New(),
		Email:                   input.Email,
		PasswordHash:            hashedPassword,
		DisplayName:             input.DisplayName,
		Role:                    sec.RoleUser,
		IsVerified:              false,
		Providers:               map[string]string{},
		VerificationTokenHash:   verification.Hash,
		VerificationTokenExpiry: verification.ExpiresAt,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// Delivery is best-effort. A failed send must not roll back the account;
	// the user can request a resend.
	if err := service.mailer.SendVerificationEmail(context, user.Email, user.DisplayName, verification.Raw); err != nil {
		service.log.WarnContext(context, "verification_email_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// TokenPair represents a successfully established credential set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

/*
Login validates user credentials and issues security tokens.

Description: Enforces the lockout and per-credential rate limit before the
password is ever compared, performs constant-time password verification,
and resets failure bookkeeping on success.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Transport-ready credentials
  - err: Unauthorized, RateLimited, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*TokenPair, error) {

	// Gate 1: the submitted email may already be locked out. Checked before
	// any credential work so a locked attacker learns nothing.
	if blocked, retryAfter := service.abuseTracker.IsBlocked(context, abuse.EmailKey(input.Email)); blocked {
		return nil, apperr.RateLimited(retryAfter)
	}

	// Gate 2: the email:IP pair has its own fixed window. This tier can only
	// be enforced here, after the body has been decoded.
	loginKey := abuse.LoginKey(input.Email, input.IPAddress)
	if decision := service.loginLimiter.Allow(context, loginKey); !decision.Allowed {
		return nil, apperr.RateLimited(decision.RetryAfter)
	}

	user, err := service.userRepository.FindByEmail(context, input.Email)

	// Unknown email, OAuth-only account, and wrong password all fail with
	// the same message and the same failure bookkeeping.
	if err != nil || !user.HasPassword() || !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		service.recordLoginFailure(context, input)
		return nil, apperr.Unauthorized(GenericCredentialError)
	}

	// The password was correct, so the caller is the account owner; telling
	// them to verify leaks nothing. Not counted as an abuse failure.
	if !user.IsVerified {
		return nil, apperr.Unauthorized(UnverifiedEmailError)
	}

	// Success clears the failure trail for this identity.
	service.abuseTracker.Reset(context, abuse.EmailKey(input.Email))
	service.loginLimiter.Reset(context, loginKey)

	return service.issuePair(user)
}

// recordLoginFailure feeds the progressive lockout for both the submitted
// email and the caller IP, and puts the attempt on the audit stream.
func (service *Service) recordLoginFailure(context context.Context, input LoginInput) {
	service.auditLog.Emit(context, audit.Event{
		Kind:       audit.EventLoginFailed,
		Identifier: input.Email,
		Endpoint:   "/auth/login",
		UserAgent:  input.UserAgent,
	})
	service.abuseTracker.RecordFailure(context, abuse.EmailKey(input.Email), "/auth/login", input.UserAgent)
	service.abuseTracker.RecordFailure(context, abuse.IPKey(input.IPAddress), "/auth/login", input.UserAgent)
}

func (service *Service) issuePair(user *User) (*TokenPair, error) {
	accessToken, err := service.tokens.IssueAccessToken(user.ID, user.Email, user.Role, user.IsVerified)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokens.IssueRefreshToken(user.ID, user.Email, user.Role, user.IsVerified)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

/*
Refresh exchanges a valid refresh token for a fresh credential pair.

Description: Verifies the refresh token against its dedicated secret, then
re-reads the account so role and verification changes since issuance take
effect immediately.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {

	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Claims are a snapshot. The database row is the current truth.
	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	return service.issuePair(user)
}

// # Email Verification

/*
VerifyEmail confirms a user's email address using a single-use token.

Description: Resolves the token hash, checks expiry in constant time, and
atomically flips the account to verified while clearing the token state.

Parameters:
  - context: context.Context
  - rawToken: string

Returns:
  - err: BadRequest when the token is unknown, already used, or expired
*/
func (service *Service) VerifyEmail(context context.Context, rawToken string) error {

	tokenHash := sec.HashToken(rawToken)
	user, err := service.userRepository.FindByVerificationHash(context, tokenHash)
	if err != nil {
		return apperr.BadRequest("Invalid or expired verification token")
	}

	if !sec.ConsumeOneTimeToken(rawToken, user.VerificationTokenHash, user.VerificationTokenExpiry) {
		return apperr.BadRequest("Invalid or expired verification token")
	}

	if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	return nil
}

/*
ResendVerification issues a replacement verification token.

Description: Rotates the stored hash so any earlier emailed link stops
working, then delivers a fresh link.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Conflict when the account is already verified
*/
func (service *Service) ResendVerification(context context.Context, userID string) error {

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return apperr.Conflict("Email is already verified")
	}

	verification, err := sec.IssueOneTimeToken(sec.PurposeEmailVerification)
	if err != nil {
		return fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	if err := service.userRepository.SetVerificationToken(context, user.ID, verification.Hash, verification.ExpiresAt); err != nil {
		return fmt.Errorf("auth_service_set_verification_failed: %w", err)
	}

	if err := service.mailer.SendVerificationEmail(context, user.Email, user.DisplayName, verification.Raw); err != nil {
		return fmt.Errorf("auth_service_resend_email_failed: %w", err)
	}

	return nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Issues a single-use reset token and emails the link.

NOTE: A missing account returns nil so the HTTP layer answers identically
for known and unknown emails, preventing user enumeration.

Parameters:
  - context: context.Context
  - emailAddress: string

Returns:
  - err: Generation or delivery errors for existing accounts only
*/
func (service *Service) RequestPasswordReset(context context.Context, emailAddress string) error {

	user, err := service.userRepository.FindByEmail(context, emailAddress)
	if err != nil {
		return nil
	}

	reset, err := sec.IssueOneTimeToken(sec.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	if err := service.userRepository.SetResetToken(context, user.ID, reset.Hash, reset.ExpiresAt); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	if err := service.mailer.SendPasswordResetEmail(context, user.Email, user.DisplayName, reset.Raw); err != nil {
		service.log.WarnContext(context, "reset_email_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the single-use token, replaces the password hash,
clears the token so it can never be replayed, and lifts any lockout on the
account. Following the link also proves mailbox control, so an unverified
account becomes verified here, and a fresh credential pair is issued so the
owner is signed in immediately.

Parameters:
  - context: context.Context
  - rawToken: string
  - newPassword: string

Returns:
  - *TokenPair: Credentials for the recovered account
  - err: BadRequest for bad tokens, or update failures
*/
func (service *Service) ResetPassword(context context.Context, rawToken, newPassword string) (*TokenPair, error) {

	tokenHash := sec.HashToken(rawToken)
	user, err := service.userRepository.FindByResetHash(context, tokenHash)
	if err != nil {
		return nil, apperr.BadRequest("Invalid or expired reset token")
	}

	if !sec.ConsumeOneTimeToken(rawToken, user.ResetTokenHash, user.ResetTokenExpiry) {
		return nil, apperr.BadRequest("Invalid or expired reset token")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return nil, fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Single-use: wipe the token state even though the hash no longer matches
	// any outstanding link.
	if err := service.userRepository.ClearResetToken(context, user.ID); err != nil {
		service.log.WarnContext(context, "reset_token_clear_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	// The reset link arrived in the account's mailbox, which is exactly what
	// the verification link would have proven.
	if !user.IsVerified {
		if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
			return nil, fmt.Errorf("auth_service_reset_verify_failed: %w", err)
		}
		user.IsVerified = true
	}

	// The legitimate owner just proved control of the mailbox.
	service.abuseTracker.Reset(context, abuse.EmailKey(user.Email))

	return service.issuePair(user)
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password before applying the new one.
OAuth-only accounts set their first password without a current one.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword string) error {

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.HasPassword() && !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	return nil
}

// # Profile

/*
Profile returns the account behind the authenticated user ID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - err: NotFound or storage failures
*/
func (service *Service) Profile(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}
