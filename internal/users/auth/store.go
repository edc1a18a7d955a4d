// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Repository Contracts

// UserRepository defines the persistence contract for [User] entities.
//
// Implementations must enforce username uniqueness atomically: a duplicate
// Create fails with a CONFLICT [apperr.AppError] and leaves the existing
// record untouched.
type UserRepository interface {
	// Create persists a new user.
	Create(ctx context.Context, user *User) error

	// FindByUsername returns the user, or NOT_FOUND.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// UpdateLastLogin sets last_login_at, or returns NOT_FOUND.
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error

	// List returns every user's public profile ordered by username.
	List(ctx context.Context) ([]PublicProfile, error)
}
