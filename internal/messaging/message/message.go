// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package message implements the message lifecycle.

A message is created unread, may be read exactly once by its recipient, and is
never deleted. The read transition is Unread → Read; Read is terminal.

# Architecture

  - Service: send, get, list and mark-read use cases. It never authorizes;
    handlers apply the authz predicates to the resolved message first.
  - Repository: The [Repository] message store (PostgreSQL or memory).
  - Events: A [Publisher] is told about sends and first reads.
*/
package message

import (
	"time"

	"github.com/taibuivan/messagely/internal/users/auth"
)

// # Domain Entities

// Message is a directed, immutable-bodied note from one user to another.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"` // nil until the recipient reads it; then write-once.
}

// Sender returns the sending username.
func (message *Message) Sender() string { return message.FromUsername }

// Recipient returns the receiving username.
func (message *Message) Recipient() string { return message.ToUsername }

// IsRead reports whether the read transition has happened.
func (message *Message) IsRead() bool { return message.ReadAt != nil }

// Summary returns the shape returned after a send.
func (message *Message) Summary() Summary {
	return Summary{
		ID:           message.ID,
		FromUsername: message.FromUsername,
		ToUsername:   message.ToUsername,
		Body:         message.Body,
		SentAt:       message.SentAt,
	}
}

// # Views

// Summary is the result of a send.
type Summary struct {
	ID           int64     `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Body         string    `json:"body"`
	SentAt       time.Time `json:"sent_at"`
}

// Detail is a single message with both participants' public profiles.
type Detail struct {
	ID       int64              `json:"id"`
	Body     string             `json:"body"`
	SentAt   time.Time          `json:"sent_at"`
	ReadAt   *time.Time         `json:"read_at"`
	FromUser auth.PublicProfile `json:"from_user"`
	ToUser   auth.PublicProfile `json:"to_user"`
}

// Sender returns the sending username.
func (detail *Detail) Sender() string { return detail.FromUser.Username }

// Recipient returns the receiving username.
func (detail *Detail) Recipient() string { return detail.ToUser.Username }

// ToView is an entry in a sender's outbox; it names the recipient.
type ToView struct {
	ID     int64              `json:"id"`
	Body   string             `json:"body"`
	SentAt time.Time          `json:"sent_at"`
	ReadAt *time.Time         `json:"read_at"`
	ToUser auth.PublicProfile `json:"to_user"`
}

// FromView is an entry in a recipient's inbox; it names the sender.
type FromView struct {
	ID       int64              `json:"id"`
	Body     string             `json:"body"`
	SentAt   time.Time          `json:"sent_at"`
	ReadAt   *time.Time         `json:"read_at"`
	FromUser auth.PublicProfile `json:"from_user"`
}

// ReadReceipt is the result of the read transition.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

// # Field Identifiers

const (
	FieldID           = "id"
	FieldFromUsername = "from_username"
	FieldToUsername   = "to_username"
	FieldBody         = "body"
	FieldMessage      = "message"
	FieldMessages     = "messages"
)
