// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. The identity service receives it through the
// PasswordHasher and TokenSigner capabilities and never imports bcrypt or jwt
// directly.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every token that cannot be verified.
// Missing, malformed and badly signed tokens are not distinguished.
var ErrInvalidToken = errors.New("sec: invalid token")

// AuthClaims represents the payload embedded inside a session token.
//
// The username is carried both as the registered subject and as the short
// "unm" claim, so verification never needs a store round trip.
type AuthClaims struct {
	jwt.RegisteredClaims

	Username string `json:"unm"`
}

// TokenService handles generation and verification of session tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string

	// ttl bounds token lifetime. Zero issues tokens without an expiry claim.
	ttl time.Duration

	now func() time.Time
}

// NewTokenService creates a new TokenService.
// It reads RSA keys from the provided filesystem paths.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string, ttl time.Duration) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// NewTokenServiceFromKey builds a TokenService from an in-memory key pair.
func NewTokenServiceFromKey(privateKey *rsa.PrivateKey, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// GenerateToken signs a token binding username and the issue time.
func (service *TokenService) GenerateToken(username string) (string, error) {
	if username == "" {
		return "", errors.New("sec: cannot sign a token for an empty username")
	}

	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			Issuer:   service.issuer,
			IssuedAt: jwt.NewNumericDate(currentTime),
		},
		Username: username,
	}

	if service.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(currentTime.Add(service.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a token string.
//
// Every failure is reported as [ErrInvalidToken] wrapping the parser error.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return service.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
