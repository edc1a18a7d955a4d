// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authz decides whether a caller may proceed with a protected operation.

Architecture:

  - Identity: the caller's username, resolved once from a verified token and
    passed explicitly to every guarded operation.
  - Guard: turns an inbound token into an [Identity]. Any token that cannot be
    verified, including an absent one, yields the same Unauthorized error.
  - Predicates: [RequireSelf], [RequireParticipant] and [RequireRecipient] are
    evaluated against an already-resolved resource and return nil or a
    Forbidden error. They never touch a store.
*/
package authz

import (
	"github.com/taibuivan/messagely/internal/platform/apperr"
)

// Identity is the authenticated caller.
type Identity struct {
	Username string
}

// Conversation is the minimal view of a message the predicates need.
type Conversation interface {
	Sender() string
	Recipient() string
}

// TokenVerifier resolves a token to the username it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// # Guard

// Guard derives the caller's [Identity] from an inbound token.
type Guard struct {
	verifier TokenVerifier
}

// NewGuard constructs a Guard backed by verifier.
func NewGuard(verifier TokenVerifier) *Guard {
	return &Guard{verifier: verifier}
}

// RequireAuthenticated verifies token and returns the caller's identity.
//
// Missing, malformed and badly signed tokens all produce the same
// Unauthorized error; the cause is never exposed.
func (guard *Guard) RequireAuthenticated(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated()
	}

	username, err := guard.verifier.VerifyToken(token)
	if err != nil || username == "" {
		return Identity{}, ErrUnauthenticated()
	}

	return Identity{Username: username}, nil
}

// ErrUnauthenticated is the single outcome for an unverifiable token.
func ErrUnauthenticated() *apperr.AppError {
	return apperr.Unauthorized("Authentication required")
}

// # Predicates

// RequireSelf succeeds only if the caller is targetUsername.
func RequireSelf(identity Identity, targetUsername string) error {
	if identity.Username == "" || identity.Username != targetUsername {
		return apperr.Forbidden("You may only access your own account")
	}
	return nil
}

// RequireParticipant succeeds only if the caller sent or received the message.
func RequireParticipant(identity Identity, conversation Conversation) error {
	if identity.Username != "" &&
		(identity.Username == conversation.Sender() || identity.Username == conversation.Recipient()) {
		return nil
	}
	return apperr.Forbidden("You are not a participant in this message")
}

// RequireRecipient succeeds only if the caller received the message.
// Senders may not mark their own messages read.
func RequireRecipient(identity Identity, conversation Conversation) error {
	if identity.Username == "" || identity.Username != conversation.Recipient() {
		return apperr.Forbidden("Only the recipient may mark this message read")
	}
	return nil
}
