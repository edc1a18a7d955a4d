// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/users/auth"
)

// # Service Layer

// Service answers directory and mailbox queries. It performs no
// authorization; the handler applies authz.RequireSelf first.
type Service struct {
	directory Directory
	mailbox   Mailbox
}

// NewService constructs a new [Service].
func NewService(directory Directory, mailbox Mailbox) *Service {
	return &Service{directory: directory, mailbox: mailbox}
}

// ListUsers returns every user's public profile. Never nil.
func (service *Service) ListUsers(ctx context.Context) ([]auth.PublicProfile, error) {
	users, err := service.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_users_failed: %w", err)
	}
	if users == nil {
		users = []auth.PublicProfile{}
	}
	return users, nil
}

/*
GetProfile retrieves a user's full profile.

Returns:
  - *auth.Profile: Public fields plus joined_at and last_login_at
  - error: NotFound if the user does not exist
*/
func (service *Service) GetProfile(ctx context.Context, username string) (*auth.Profile, error) {
	user, err := service.directory.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// Inbox lists the messages username received.
func (service *Service) Inbox(ctx context.Context, username string) ([]message.FromView, error) {
	return service.mailbox.ListReceived(ctx, username)
}

// Outbox lists the messages username sent.
func (service *Service) Outbox(ctx context.Context, username string) ([]message.ToView, error) {
	return service.mailbox.ListSent(ctx, username)
}
