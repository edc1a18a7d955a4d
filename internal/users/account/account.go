// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account exposes the user directory and each user's own mailbox.

# Architecture

  - Directory: Read access to user records, satisfied by the auth repositories.
  - Mailbox: Per-user message listings, satisfied by the message service.
  - Security: Only the directory listing is public. Everything under a
    username is visible to that user alone.
*/
package account

import (
	"context"

	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/users/auth"
)

// # Dependency Contracts

// Directory reads user records.
type Directory interface {
	/*
		FindByUsername retrieves a user record by username.

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByUsername(ctx context.Context, username string) (*auth.User, error)

	// List returns every user's public profile, ordered by username.
	List(ctx context.Context) ([]auth.PublicProfile, error)
}

// Mailbox lists a user's messages, newest first.
type Mailbox interface {
	ListSent(ctx context.Context, username string) ([]message.ToView, error)
	ListReceived(ctx context.Context, username string) ([]message.FromView, error)
}

var (
	_ Directory = (*auth.PostgresUserRepository)(nil)
	_ Directory = (*auth.MemoryUserRepository)(nil)
	_ Mailbox   = (*message.Service)(nil)
)
