// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/messagely/internal/platform/apperr"
)

// MemoryUserRepository is an in-process [UserRepository].
//
// Every operation holds the mutex for its whole check-and-write, which gives
// the same uniqueness guarantee as the PostgreSQL primary key.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

// Create stores a copy of user.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, exists := repository.users[user.Username]; exists {
		return apperr.Conflict("Username is already taken")
	}

	repository.users[user.Username] = *user
	return nil
}

// FindByUsername returns a copy of the stored user.
func (repository *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, ok := repository.users[username]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	return &user, nil
}

// UpdateLastLogin sets last_login_at.
func (repository *MemoryUserRepository) UpdateLastLogin(_ context.Context, username string, at time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[username]
	if !ok {
		return apperr.NotFound("User")
	}

	user.LastLoginAt = at
	repository.users[username] = user
	return nil
}

// List returns public profiles ordered by username.
func (repository *MemoryUserRepository) List(_ context.Context) ([]PublicProfile, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	profiles := make([]PublicProfile, 0, len(repository.users))
	for _, user := range repository.users {
		profiles = append(profiles, user.Public())
	}

	slices.SortFunc(profiles, func(a, b PublicProfile) int {
		return strings.Compare(a.Username, b.Username)
	})

	return profiles, nil
}
