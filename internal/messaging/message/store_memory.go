// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/platform/validate"
	"github.com/taibuivan/messagely/internal/users/auth"
)

// UserLookup resolves participants for joins and reference checks.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
}

// MemoryRepository is an in-process [Repository].
//
// IDs are assigned from a counter under the mutex, so they are unique and
// monotonic. MarkRead checks and writes under the same lock.
type MemoryRepository struct {
	users UserLookup

	mu       sync.RWMutex
	messages map[int64]Message
	nextID   int64
}

// NewMemoryRepository returns an empty repository joined against users.
func NewMemoryRepository(users UserLookup) *MemoryRepository {
	return &MemoryRepository{
		users:    users,
		messages: make(map[int64]Message),
	}
}

// Create stores a copy of message and assigns its ID.
func (repository *MemoryRepository) Create(ctx context.Context, message *Message) error {
	if _, err := repository.users.FindByUsername(ctx, message.FromUsername); err != nil {
		return referenceError(FieldFromUsername, err)
	}
	if _, err := repository.users.FindByUsername(ctx, message.ToUsername); err != nil {
		return referenceError(FieldToUsername, err)
	}

	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.nextID++
	message.ID = repository.nextID

	stored := *message
	stored.ReadAt = copyTime(message.ReadAt)
	repository.messages[stored.ID] = stored

	return nil
}

// FindByID returns a copy of the stored message.
func (repository *MemoryRepository) FindByID(_ context.Context, id int64) (*Message, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	message, ok := repository.messages[id]
	if !ok {
		return nil, apperr.NotFound("Message")
	}

	message.ReadAt = copyTime(message.ReadAt)
	return &message, nil
}

// FindDetail returns the message with both participants' public profiles.
func (repository *MemoryRepository) FindDetail(ctx context.Context, id int64) (*Detail, error) {
	message, err := repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from, err := repository.profile(ctx, message.FromUsername)
	if err != nil {
		return nil, err
	}
	to, err := repository.profile(ctx, message.ToUsername)
	if err != nil {
		return nil, err
	}

	return &Detail{
		ID:       message.ID,
		Body:     message.Body,
		SentAt:   message.SentAt,
		ReadAt:   message.ReadAt,
		FromUser: from,
		ToUser:   to,
	}, nil
}

// ListBySender returns the sender's messages, newest first.
func (repository *MemoryRepository) ListBySender(ctx context.Context, username string) ([]ToView, error) {
	messages := repository.filter(func(message *Message) bool { return message.FromUsername == username })

	views := make([]ToView, 0, len(messages))
	for _, message := range messages {
		to, err := repository.profile(ctx, message.ToUsername)
		if err != nil {
			return nil, err
		}
		views = append(views, ToView{
			ID:     message.ID,
			Body:   message.Body,
			SentAt: message.SentAt,
			ReadAt: message.ReadAt,
			ToUser: to,
		})
	}

	return views, nil
}

// ListByRecipient returns the recipient's messages, newest first.
func (repository *MemoryRepository) ListByRecipient(ctx context.Context, username string) ([]FromView, error) {
	messages := repository.filter(func(message *Message) bool { return message.ToUsername == username })

	views := make([]FromView, 0, len(messages))
	for _, message := range messages {
		from, err := repository.profile(ctx, message.FromUsername)
		if err != nil {
			return nil, err
		}
		views = append(views, FromView{
			ID:       message.ID,
			Body:     message.Body,
			SentAt:   message.SentAt,
			ReadAt:   message.ReadAt,
			FromUser: from,
		})
	}

	return views, nil
}

// MarkRead sets read_at once; later calls return the stored value.
func (repository *MemoryRepository) MarkRead(_ context.Context, id int64, at time.Time) (*Message, bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	message, ok := repository.messages[id]
	if !ok {
		return nil, false, apperr.NotFound("Message")
	}

	transitioned := false
	if message.ReadAt == nil {
		message.ReadAt = &at
		repository.messages[id] = message
		transitioned = true
	}

	message.ReadAt = copyTime(message.ReadAt)
	return &message, transitioned, nil
}

// filter returns matching messages ordered by sent_at DESC, then id DESC.
func (repository *MemoryRepository) filter(match func(*Message) bool) []Message {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	matched := make([]Message, 0)
	for _, message := range repository.messages {
		if match(&message) {
			message.ReadAt = copyTime(message.ReadAt)
			matched = append(matched, message)
		}
	}

	slices.SortFunc(matched, func(a, b Message) int {
		if order := b.SentAt.Compare(a.SentAt); order != 0 {
			return order
		}
		return cmp.Compare(b.ID, a.ID)
	})

	return matched
}

func (repository *MemoryRepository) profile(ctx context.Context, username string) (auth.PublicProfile, error) {
	user, err := repository.users.FindByUsername(ctx, username)
	if err != nil {
		return auth.PublicProfile{}, err
	}
	return user.Public(), nil
}

// referenceError mirrors the foreign-key classification of the PostgreSQL store.
func referenceError(field string, err error) error {
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return validate.InvalidError(field, "User does not exist")
	}
	return err
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

var _ Repository = (*MemoryRepository)(nil)
