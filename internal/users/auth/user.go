// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity layer.

It defines the User entity, the credential store contract, and the identity
service that registers users, verifies passwords and issues session tokens.

# Architecture

Entities defined here have no external dependencies. Hashing and signing are
reached only through the [PasswordHasher] and [TokenSigner] capabilities.
*/
package auth

import (
	"time"
)

// # Domain Entities

// User represents a registered member of messagely.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	JoinedAt     time.Time `json:"joined_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// PublicProfile is the subset of a User safe to return to other users.
type PublicProfile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Profile is what a user sees about themselves.
type Profile struct {
	PublicProfile
	JoinedAt    time.Time `json:"joined_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// Public strips everything but the public fields.
func (user *User) Public() PublicProfile {
	return PublicProfile{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
	}
}

// Profile strips the password hash.
func (user *User) Profile() Profile {
	return Profile{
		PublicProfile: user.Public(),
		JoinedAt:      user.JoinedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldPhone     = "phone"
	FieldToken     = "token"
	FieldUser      = "user"
	FieldUsers     = "users"
)
