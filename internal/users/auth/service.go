// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the identity service.

Architecture:

  - Service: Registration, password verification, login bookkeeping and
    session-token issuance/verification.
  - Repository: The [UserRepository] credential store (PostgreSQL or memory).
  - Security: Hashing and signing are injected capabilities; the service never
    sees an algorithm.

Every failure leaving the service is an [apperr.AppError] kind.
*/
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/platform/sec"
	"github.com/taibuivan/messagely/internal/platform/validate"
	"github.com/taibuivan/messagely/pkg/textnorm"
)

// # Contracts & Types

// PasswordHasher is the slow, salted hashing capability.
type PasswordHasher interface {
	// Hash returns an opaque, salted hash of plain.
	Hash(plain string) (string, error)

	// Compare reports whether plain matches hash in constant time.
	Compare(hash, plain string) bool
}

// TokenSigner is the session-token signing capability.
type TokenSigner interface {
	// GenerateToken signs a token binding username and the issue time.
	GenerateToken(username string) (string, error)

	// VerifyToken checks signature and validity and returns the claims.
	VerifyToken(token string) (*sec.AuthClaims, error)
}

// Service implements registration, password authentication and session tokens.
//
// # Guarantees
//
// Usernames and profile fields are NFC-normalized and trimmed before they are
// stored or looked up. Only the hasher's output is persisted, never the
// plaintext password. Login reports unknown users and wrong passwords with the
// same InvalidCredentials error.
type Service struct {
	userRepository UserRepository
	hasher         PasswordHasher
	signer         TokenSigner

	now func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(userRepo UserRepository, hasher PasswordHasher, signer TokenSigner) *Service {
	return &Service{
		userRepository: userRepo,
		hasher:         hasher,
		signer:         signer,
		now:            Now,
	}
}

// Now returns the current time in UTC at the store's microsecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Text fields are normalized to NFC before validation. The password
is hashed and never stored or logged in plain text. joined_at and last_login_at
are both set to the current time.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *PublicProfile: Created user without the hash
  - error: Validation, Conflict (username taken) or Internal
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*PublicProfile, error) {

	// ── 1. Normalization ──────────────────────────────────────────────────
	input.Username = textnorm.Normalize(input.Username)
	input.FirstName = textnorm.Normalize(input.FirstName)
	input.LastName = textnorm.Normalize(input.LastName)
	input.Phone = textnorm.Normalize(input.Phone)

	// ── 2. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, input.Username).
		NoWhitespace(FieldUsername, input.Username).
		MaxLen(FieldUsername, input.Username, MaxUsernameLength).
		Required(FieldPassword, input.Password).
		Custom(FieldPassword, len(input.Password) > MaxPasswordBytes, fmt.Sprintf("Maximum %d bytes", MaxPasswordBytes)).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, MaxNameLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, MaxNameLength).
		Required(FieldPhone, input.Phone).
		MaxLen(FieldPhone, input.Phone, MaxPhoneLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 3. Hashing ────────────────────────────────────────────────────────
	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	// ── 4. Persistence ────────────────────────────────────────────────────
	now := service.now()
	user := &User{
		Username:     input.Username,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		JoinedAt:     now,
		LastLoginAt:  now,
	}

	// The store rejects duplicates atomically; no look-before-insert.
	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	profile := user.Public()
	return &profile, nil
}

// # Authentication Flow

/*
Authenticate verifies a username/password pair.

Description: Does not touch last_login_at; callers invoke [Service.RecordLogin]
once the whole login has succeeded.

Returns:
  - *Profile: The user without the hash
  - error: NotFound (unknown user) or InvalidCredentials (wrong password)
*/
func (service *Service) Authenticate(ctx context.Context, username, password string) (*Profile, error) {
	user, err := service.userRepository.FindByUsername(ctx, textnorm.Normalize(username))
	if err != nil {
		return nil, fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}

	// bcrypt compares in constant time to prevent timing attacks
	if !service.hasher.Compare(user.PasswordHash, password) {
		return nil, apperr.InvalidCredentials()
	}

	profile := user.Profile()
	return &profile, nil
}

// RecordLogin advances last_login_at to now and returns the new value.
// A user deleted since Authenticate surfaces as NotFound.
func (service *Service) RecordLogin(ctx context.Context, username string) (time.Time, error) {
	now := service.now()

	if err := service.userRepository.UpdateLastLogin(ctx, username, now); err != nil {
		return time.Time{}, fmt.Errorf("auth_service_record_login_failed: %w", err)
	}

	return now, nil
}

/*
Login authenticates, issues a token, then records the login.

Description: Unknown users and wrong passwords are reported identically so
the endpoint cannot be used to enumerate usernames.

Returns:
  - string: Signed session token
  - error: Validation, InvalidCredentials, NotFound (vanished user) or Internal
*/
func (service *Service) Login(ctx context.Context, username, password string) (string, error) {
	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, username).
		Required(FieldPassword, password)

	if err := validator.Err(); err != nil {
		return "", err
	}

	profile, err := service.Authenticate(ctx, username, password)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return "", apperr.InvalidCredentials()
		}
		return "", err
	}

	token, err := service.IssueToken(profile.Username)
	if err != nil {
		return "", err
	}

	if _, err := service.RecordLogin(ctx, profile.Username); err != nil {
		return "", err
	}

	return token, nil
}

// # Session Tokens

// IssueToken signs a session token for username.
func (service *Service) IssueToken(username string) (string, error) {
	token, err := service.signer.GenerateToken(username)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("auth_service_issue_token_failed: %w", err))
	}
	return token, nil
}

// VerifyToken returns the username bound to token.
//
// Missing, malformed and badly signed tokens all yield the same Unauthorized
// error; the reason is deliberately not exposed.
func (service *Service) VerifyToken(token string) (string, error) {
	claims, err := service.signer.VerifyToken(token)
	if err != nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	return claims.Username, nil
}
