// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvu/appforge/internal/platform/abuse"
	"github.com/tranvu/appforge/internal/platform/apperr"
	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/ratelimit"
	"github.com/tranvu/appforge/internal/platform/sec"
	"github.com/tranvu/appforge/internal/users/auth"
)

// # Test Doubles

// memoryRepo is an in-memory UserRepository for service-level tests.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*auth.User)}
}

func cloneUser(user *auth.User) *auth.User {
	clone := *user
	clone.Providers = make(map[string]string, len(user.Providers))
	for provider, id := range user.Providers {
		clone.Providers[provider] = id
	}
	return &clone
}

func (r *memoryRepo) findBy(match func(*auth.User) bool) (*auth.User, error) {
	for _, user := range r.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBy(func(u *auth.User) bool { return u.ID == id })
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBy(func(u *auth.User) bool { return u.Email == email })
}

func (r *memoryRepo) FindByVerificationHash(_ context.Context, hash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBy(func(u *auth.User) bool {
		return u.VerificationTokenHash != "" && u.VerificationTokenHash == hash
	})
}

func (r *memoryRepo) FindByResetHash(_ context.Context, hash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBy(func(u *auth.User) bool {
		return u.ResetTokenHash != "" && u.ResetTokenHash == hash
	})
}

func (r *memoryRepo) FindByProvider(_ context.Context, provider, providerID string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBy(func(u *auth.User) bool { return u.Providers[provider] == providerID })
}

func (r *memoryRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryRepo) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryRepo) mutate(id string, apply func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, found := r.users[id]
	if !found {
		return apperr.NotFound("User")
	}
	apply(user)
	return nil
}

func (r *memoryRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	return r.mutate(userID, func(u *auth.User) { u.PasswordHash = newHash })
}

func (r *memoryRepo) MarkVerified(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *auth.User) {
		u.IsVerified = true
		u.VerificationTokenHash = ""
		u.VerificationTokenExpiry = time.Time{}
	})
}

func (r *memoryRepo) SetVerificationToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return r.mutate(userID, func(u *auth.User) {
		u.VerificationTokenHash = hash
		u.VerificationTokenExpiry = expiresAt
	})
}

func (r *memoryRepo) SetResetToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return r.mutate(userID, func(u *auth.User) {
		u.ResetTokenHash = hash
		u.ResetTokenExpiry = expiresAt
	})
}

func (r *memoryRepo) ClearResetToken(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *auth.User) {
		u.ResetTokenHash = ""
		u.ResetTokenExpiry = time.Time{}
	})
}

func (r *memoryRepo) LinkProvider(_ context.Context, userID, provider, providerID string) error {
	return r.mutate(userID, func(u *auth.User) {
		if u.Providers == nil {
			u.Providers = map[string]string{}
		}
		// First writer wins, matching the jsonb merge in the Postgres store.
		if _, linked := u.Providers[provider]; linked {
			return
		}
		u.Providers[provider] = providerID
	})
}

// captureMailer records the raw tokens the service would have emailed.
type captureMailer struct {
	verificationTokens []string
	resetTokens        []string
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, _, _, rawToken string) error {
	m.verificationTokens = append(m.verificationTokens, rawToken)
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(_ context.Context, _, _, rawToken string) error {
	m.resetTokens = append(m.resetTokens, rawToken)
	return nil
}

func (m *captureMailer) lastVerification() string {
	if len(m.verificationTokens) == 0 {
		return ""
	}
	return m.verificationTokens[len(m.verificationTokens)-1]
}

func (m *captureMailer) lastReset() string {
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

// # Fixture

type serviceFixture struct {
	service *auth.Service
	repo    *memoryRepo
	mailer  *captureMailer
}

// lockoutThreshold matches the failure budget configured for the fixture's
// abuse store.
const lockoutThreshold = 3

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLog := audit.NewLogger(log)

	tokens, err := sec.NewTokenService(
		"test-access-secret-0123456789abcdef",
		"test-refresh-secret-0123456789abcdef",
		"appforge-test",
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)

	tracker := abuse.NewTracker(abuse.NewMemoryStore(abuse.Config{
		Threshold:       lockoutThreshold,
		LockoutDuration: 15 * time.Minute,
		Retention:       24 * time.Hour,
	}), auditLog, log)

	loginLimiter := ratelimit.New(ratelimit.Config{
		Name:   "login",
		Window: 15 * time.Minute,
		Max:    20,
	}, ratelimit.NewMemoryStore(t.Context()), auditLog, log)

	repo := newMemoryRepo()
	mailer := &captureMailer{}

	return &serviceFixture{
		service: auth.NewService(repo, tokens, mailer, tracker, loginLimiter, auditLog, log),
		repo:    repo,
		mailer:  mailer,
	}
}

func (f *serviceFixture) register(t *testing.T, emailAddr, password string) *auth.User {
	t.Helper()

	user, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:       emailAddr,
		Password:    password,
		DisplayName: "Test User",
	})
	require.NoError(t, err)
	return user
}

// registerVerified enrolls an account and completes its verification link.
func (f *serviceFixture) registerVerified(t *testing.T, emailAddr, password string) *auth.User {
	t.Helper()

	user := f.register(t, emailAddr, password)
	require.NoError(t, f.service.VerifyEmail(context.Background(), f.mailer.lastVerification()))
	user.IsVerified = true
	return user
}

func loginInput(emailAddr, password string) auth.LoginInput {
	return auth.LoginInput{
		Email:     emailAddr,
		Password:  password,
		IPAddress: "1.2.3.4",
		UserAgent: "test-agent",
	}
}

// # Registration

/*
TestService_Register covers enrollment: the stored account, the pending
verification state, and duplicate rejection.
*/
func TestService_Register(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.register(t, "dev@example.com", "Str0ng!pass")

	// 1. The account is persisted, unverified, with a hashed password
	stored, err := fixture.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", stored.Email)
	assert.False(t, stored.IsVerified)
	assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)
	assert.True(t, stored.HasPassword())

	// 2. Only the token HASH is stored; the raw token went out by mail
	raw := fixture.mailer.lastVerification()
	require.NotEmpty(t, raw)
	assert.NotEqual(t, raw, stored.VerificationTokenHash)
	assert.Equal(t, sec.HashToken(raw), stored.VerificationTokenHash)

	// 3. The same email cannot enroll twice
	_, err = fixture.service.Register(ctx, auth.RegisterInput{
		Email:       "dev@example.com",
		Password:    "An0ther!pass",
		DisplayName: "Imposter",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

// # Email Verification

/*
TestService_VerifyEmail covers the single-use verification link: consume
once, reject replays and garbage.
*/
func TestService_VerifyEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.register(t, "dev@example.com", "Str0ng!pass")
	raw := fixture.mailer.lastVerification()

	// 1. The emailed token verifies the account and clears the token state
	require.NoError(t, fixture.service.VerifyEmail(ctx, raw))

	stored, err := fixture.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.VerificationTokenHash)

	// 2. The token is single-use, and a dead token is a 400 not a 422
	err = fixture.service.VerifyEmail(ctx, raw)
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).HTTPStatus)

	// 3. Garbage never verifies anything
	err = fixture.service.VerifyEmail(ctx, "not-a-real-token")
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)
}

/*
TestService_ResendVerification verifies token rotation: the rotated link
works, the original emailed link stops working.
*/
func TestService_ResendVerification(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.register(t, "dev@example.com", "Str0ng!pass")
	originalToken := fixture.mailer.lastVerification()

	require.NoError(t, fixture.service.ResendVerification(ctx, user.ID))
	rotatedToken := fixture.mailer.lastVerification()
	require.NotEqual(t, originalToken, rotatedToken)

	// 1. The superseded link is dead
	require.Error(t, fixture.service.VerifyEmail(ctx, originalToken))

	// 2. The fresh link verifies
	require.NoError(t, fixture.service.VerifyEmail(ctx, rotatedToken))

	// 3. A verified account cannot request another link
	err := fixture.service.ResendVerification(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

// # Login

/*
TestService_Login covers credential checking and the anti-enumeration
property: unknown email, wrong password, and passwordless accounts all fail
with the identical message. An unverified account with the CORRECT password
gets a distinct rejection, since the caller already proved ownership.
*/
func TestService_Login(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.register(t, "dev@example.com", "Str0ng!pass")

	// 1. Correct password before verification: a distinct, actionable 401
	_, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.Error(t, err)
	unverified := apperr.As(err)
	require.NotNil(t, unverified)
	assert.Equal(t, auth.UnverifiedEmailError, unverified.Message)

	// 2. Valid credentials on a verified account yield a usable token pair
	require.NoError(t, fixture.service.VerifyEmail(ctx, fixture.mailer.lastVerification()))
	pair, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "dev@example.com", pair.User.Email)

	// 3. Wrong password and unknown email are indistinguishable, and neither
	// matches the unverified-account message
	_, wrongPassErr := fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
	_, unknownErr := fixture.service.Login(ctx, loginInput("ghost@example.com", "WrongPass1!"))
	require.Error(t, wrongPassErr)
	require.Error(t, unknownErr)
	assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
	assert.Equal(t, http401(t, wrongPassErr), http401(t, unknownErr))
	assert.NotEqual(t, unverified.Message, apperr.As(wrongPassErr).Message)

	// 4. A passwordless OAuth account fails the same way
	pair, err = fixture.service.LoginWithProvider(ctx, &auth.ExternalProfile{
		Provider:      "google",
		ProviderID:    "g-123",
		Email:         "social@example.com",
		EmailVerified: true,
		DisplayName:   "Social User",
	})
	require.NoError(t, err)
	require.NotNil(t, pair)

	_, socialErr := fixture.service.Login(ctx, loginInput("social@example.com", "AnyPass1!"))
	require.Error(t, socialErr)
	assert.Equal(t, wrongPassErr.Error(), socialErr.Error())
}

func http401(t *testing.T, err error) int {
	t.Helper()
	ae := apperr.As(err)
	require.NotNil(t, ae)
	return ae.HTTPStatus
}

/*
TestService_Login_Lockout verifies the progressive lockout: repeated
failures against one email lock the identity even for the correct password,
and a completed password reset lifts the lockout.
*/
func TestService_Login_Lockout(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.registerVerified(t, "dev@example.com", "Str0ng!pass")

	// 1. Burn through the failure budget
	for i := 0; i < lockoutThreshold; i++ {
		_, err := fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
		require.Error(t, err)
	}

	// 2. Even the correct password is refused while locked
	_, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "RATE_LIMITED", ae.Code)
	assert.Positive(t, ae.RetryAfter)

	// 3. Proving mailbox control through a password reset lifts the lockout
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "dev@example.com"))
	resetPair, err := fixture.service.ResetPassword(ctx, fixture.mailer.lastReset(), "Fresh!pass1")
	require.NoError(t, err)
	assert.NotEmpty(t, resetPair.AccessToken)

	pair, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Fresh!pass1"))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

/*
TestService_Login_SuccessResetsFailures verifies that a successful login
clears the accumulated failure count.
*/
func TestService_Login_SuccessResetsFailures(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	fixture.registerVerified(t, "dev@example.com", "Str0ng!pass")

	// Two strikes, then a successful login
	fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
	fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
	_, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.NoError(t, err)

	// The budget is whole again: the same two strikes do not lock
	fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
	fixture.service.Login(ctx, loginInput("dev@example.com", "WrongPass1!"))
	_, err = fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.NoError(t, err)
}

// # Token Refresh

/*
TestService_Refresh verifies the refresh exchange, including that claims are
rebuilt from the CURRENT database row rather than the old token.
*/
func TestService_Refresh(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.registerVerified(t, "dev@example.com", "Str0ng!pass")
	pair, err := fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.NoError(t, err)

	// 1. The account is promoted AFTER the pair was issued
	require.NoError(t, fixture.repo.mutate(user.ID, func(u *auth.User) {
		u.Role = sec.RoleAdmin
	}))

	// 2. The refreshed pair reflects the new state immediately
	refreshed, err := fixture.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, refreshed.User.Role)

	// 3. An access token is never accepted as a refresh token
	_, err = fixture.service.Refresh(ctx, pair.AccessToken)
	require.Error(t, err)

	// 4. Garbage is rejected
	_, err = fixture.service.Refresh(ctx, "not.a.token")
	require.Error(t, err)
}

// # Password Recovery

/*
TestService_PasswordReset covers the forgot-password flow end to end,
including the anti-enumeration response for unknown emails, the signed-in
completion, and single-use token semantics.
*/
func TestService_PasswordReset(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.register(t, "dev@example.com", "Str0ng!pass")

	// 1. An unknown email succeeds silently and sends nothing
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, fixture.mailer.resetTokens)

	// 2. A known email receives a reset link
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "dev@example.com"))
	raw := fixture.mailer.lastReset()
	require.NotEmpty(t, raw)

	// 3. The link swaps the password and signs the caller in
	pair, err := fixture.service.ResetPassword(ctx, raw, "Fresh!pass1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// 4. Completing the reset proved mailbox control, so the account that
	// never clicked its verification link is verified now
	stored, err := fixture.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	_, err = fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.Error(t, err)
	_, err = fixture.service.Login(ctx, loginInput("dev@example.com", "Fresh!pass1"))
	require.NoError(t, err)

	// 5. The consumed link can never be replayed
	_, err = fixture.service.ResetPassword(ctx, raw, "Replay!pass1")
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)
}

/*
TestService_ChangePassword verifies the authenticated password change,
including the OAuth-only first-password path.
*/
func TestService_ChangePassword(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.registerVerified(t, "dev@example.com", "Str0ng!pass")

	// 1. The current password is required when one exists
	err := fixture.service.ChangePassword(ctx, user.ID, "WrongPass1!", "Fresh!pass1")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)

	require.NoError(t, fixture.service.ChangePassword(ctx, user.ID, "Str0ng!pass", "Fresh!pass1"))
	_, err = fixture.service.Login(ctx, loginInput("dev@example.com", "Fresh!pass1"))
	require.NoError(t, err)

	// 2. A passwordless OAuth account sets its first password without one
	pair, err := fixture.service.LoginWithProvider(ctx, &auth.ExternalProfile{
		Provider:      "github",
		ProviderID:    "gh-42",
		Email:         "social@example.com",
		EmailVerified: true,
		DisplayName:   "Social User",
	})
	require.NoError(t, err)

	require.NoError(t, fixture.service.ChangePassword(ctx, pair.User.ID, "", "First!pass1"))
	_, err = fixture.service.Login(ctx, loginInput("social@example.com", "First!pass1"))
	require.NoError(t, err)
}

// # External Identity

/*
TestService_LoginWithProvider covers the three OAuth resolution paths:
returning identity, same-email linking, and first-contact enrollment.
*/
func TestService_LoginWithProvider(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	profile := &auth.ExternalProfile{
		Provider:      "google",
		ProviderID:    "g-123",
		Email:         "dev@example.com",
		EmailVerified: true,
		DisplayName:   "Dev",
	}

	// 1. First contact creates a verified, passwordless account
	pair, err := fixture.service.LoginWithProvider(ctx, profile)
	require.NoError(t, err)
	created := pair.User
	assert.True(t, created.IsVerified)
	assert.False(t, created.HasPassword())
	assert.Equal(t, "g-123", created.Providers["google"])

	// 2. The same identity returns the same account, never a duplicate
	pair, err = fixture.service.LoginWithProvider(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, created.ID, pair.User.ID)

	// 3. A different provider with the same mailbox links to the existing
	// account instead of creating a second one
	pair, err = fixture.service.LoginWithProvider(ctx, &auth.ExternalProfile{
		Provider:      "github",
		ProviderID:    "gh-42",
		Email:         "dev@example.com",
		EmailVerified: true,
		DisplayName:   "Dev",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, pair.User.ID)

	stored, err := fixture.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-123", stored.Providers["google"])
	assert.Equal(t, "gh-42", stored.Providers["github"])
}

/*
TestService_LoginWithProvider_KeepsExistingLink verifies first-writer-wins
on provider links: a later identity from an already-linked provider with the
same mailbox but a DIFFERENT subject id never displaces the stored id.
*/
func TestService_LoginWithProvider_KeepsExistingLink(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	original := &auth.ExternalProfile{
		Provider:      "google",
		ProviderID:    "g-123",
		Email:         "dev@example.com",
		EmailVerified: true,
		DisplayName:   "Dev",
	}

	pair, err := fixture.service.LoginWithProvider(ctx, original)
	require.NoError(t, err)
	created := pair.User

	// Same provider and mailbox, new subject id: resolves to the same
	// account but the stored link stays untouched.
	imposter := &auth.ExternalProfile{
		Provider:      "google",
		ProviderID:    "g-999",
		Email:         "dev@example.com",
		EmailVerified: true,
		DisplayName:   "Dev",
	}

	pair, err = fixture.service.LoginWithProvider(ctx, imposter)
	require.NoError(t, err)
	assert.Equal(t, created.ID, pair.User.ID)
	assert.Equal(t, "g-123", pair.User.Providers["google"])

	stored, err := fixture.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-123", stored.Providers["google"])

	// The original subject id still resolves; the rejected one never does.
	_, err = fixture.service.LoginWithProvider(ctx, original)
	require.NoError(t, err)
	found, err := fixture.repo.FindByProvider(ctx, "google", "g-999")
	require.Error(t, err)
	require.Nil(t, found)
}

/*
TestService_LoginWithProvider_VerifiesLinkedAccount verifies that linking a
provider-verified mailbox to a pending local account completes verification.
*/
func TestService_LoginWithProvider_VerifiesLinkedAccount(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	user := fixture.register(t, "dev@example.com", "Str0ng!pass")
	require.False(t, user.IsVerified)

	pair, err := fixture.service.LoginWithProvider(ctx, &auth.ExternalProfile{
		Provider:      "google",
		ProviderID:    "g-123",
		Email:         "dev@example.com",
		EmailVerified: true,
		DisplayName:   "Dev",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, pair.User.ID)
	assert.True(t, pair.User.IsVerified)

	stored, err := fixture.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	// The linked account keeps its password login
	_, err = fixture.service.Login(ctx, loginInput("dev@example.com", "Str0ng!pass"))
	require.NoError(t, err)
}
