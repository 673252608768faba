// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Error Kinds

var (
	// ErrTokenExpired marks a token whose signature is valid but whose
	// lifetime has elapsed. Callers may silently refresh.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid marks a malformed token or a signature mismatch.
	// Callers must prompt a full re-login.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a signed token.
//
// # Why custom claims?
//
// By embedding the UserID, Email, Role, and Verified flag directly inside the
// JWT, the auth middleware can reconstruct the active user context WITHOUT
// querying the database on every single API request. This provides massive
// read-scalability.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string   `json:"uid"`
	Email    string   `json:"eml"`
	Role     UserRole `json:"rol"`
	Verified bool     `json:"vrf"`
}

// TokenService issues and verifies HS256-signed access and refresh tokens.
//
// # Dual Secrets
//
// Access and refresh tokens are signed with INDEPENDENT secrets and carry
// independent lifetimes. A refresh token can therefore never be presented
// where an access token is expected, and vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenService validates the signing configuration and returns a service.
//
// A missing secret is a fatal misconfiguration surfaced at startup — it is
// never a per-request error.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" {
		return nil, errors.New("sec: access token secret is not configured")
	}
	if refreshSecret == "" {
		return nil, errors.New("sec: refresh token secret is not configured")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
	}, nil
}

// # Issuance

// IssueAccessToken creates a short-lived signed access token.
func (service *TokenService) IssueAccessToken(userID, email string, role UserRole, verified bool) (string, error) {
	return service.sign(service.accessSecret, service.accessTTL, userID, email, role, verified)
}

// IssueRefreshToken creates a long-lived signed refresh token.
//
// # Rotation Contract
//
// A refresh token is never extended in place. Each refresh mints a brand-new
// access+refresh pair via the normal issuance path.
func (service *TokenService) IssueRefreshToken(userID, email string, role UserRole, verified bool) (string, error) {
	return service.sign(service.refreshSecret, service.refreshTTL, userID, email, role, verified)
}

// sign builds the claims payload and signs it with the given secret.
func (service *TokenService) sign(secret []byte, timeToLive time.Duration, userID, email string, role UserRole, verified bool) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:   userID,
		Email:    email,
		Role:     role,
		Verified: verified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// # Verification

// VerifyAccessToken checks the signature and validity of an access token.
//
// It returns [ErrTokenExpired] or [ErrTokenInvalid] so callers can distinguish
// "prompt re-login" from "silently refresh".
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, service.accessSecret)
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, service.refreshSecret)
}

// verify parses the token against the given secret, checks the issuer claim
// against the configured issuer, and maps library errors onto the two
// exported error kinds.
func (service *TokenService) verify(tokenString string, secret []byte) (*AuthClaims, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if service.issuer != "" {
		options = append(options, jwt.WithIssuer(service.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, options...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
