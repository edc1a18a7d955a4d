// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"time"
)

// # Repository Contracts

// Repository defines the persistence contract for messages.
type Repository interface {
	// Create inserts message and assigns its ID. An unknown participant is a
	// VALIDATION_ERROR naming the offending field.
	Create(ctx context.Context, message *Message) error

	// FindByID returns the bare message, or NOT_FOUND.
	FindByID(ctx context.Context, id int64) (*Message, error)

	// FindDetail returns the message joined with both participants, or NOT_FOUND.
	FindDetail(ctx context.Context, id int64) (*Detail, error)

	// ListBySender returns the sender's messages, newest first (ties: id DESC).
	ListBySender(ctx context.Context, username string) ([]ToView, error)

	// ListByRecipient returns the recipient's messages, newest first (ties: id DESC).
	ListByRecipient(ctx context.Context, username string) ([]FromView, error)

	// MarkRead sets read_at to at unless it is already set, atomically.
	// It returns the message after the update and whether this call
	// performed the transition.
	MarkRead(ctx context.Context, id int64, at time.Time) (*Message, bool, error)
}
