// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/users/auth"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []message.Event
	err    error
}

func (publisher *recordingPublisher) Publish(_ context.Context, event message.Event) error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
	return publisher.err
}

func (publisher *recordingPublisher) Events() []message.Event {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	return append([]message.Event(nil), publisher.events...)
}

func newService(t *testing.T, usernames ...string) (*message.Service, *recordingPublisher) {
	t.Helper()

	users := auth.NewMemoryUserRepository()
	now := time.Now().UTC()
	for _, username := range usernames {
		require.NoError(t, users.Create(context.Background(), &auth.User{
			Username:     username,
			PasswordHash: "x",
			FirstName:    username + "-first",
			LastName:     username + "-last",
			Phone:        "555",
			JoinedAt:     now,
			LastLoginAt:  now,
		}))
	}

	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return message.NewService(message.NewMemoryRepository(users), publisher, logger), publisher
}

/*
TestSend creates an unread message and notifies the recipient.
*/
func TestSend(t *testing.T) {
	service, publisher := newService(t, "alice", "bob")
	ctx := context.Background()

	summary, err := service.Send(ctx, message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: "  hi  "})
	require.NoError(t, err)

	assert.Positive(t, summary.ID)
	assert.Equal(t, "alice", summary.FromUsername)
	assert.Equal(t, "bob", summary.ToUsername)
	assert.Equal(t, "hi", summary.Body)
	assert.Equal(t, time.UTC, summary.SentAt.Location())

	stored, err := service.Find(ctx, summary.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReadAt)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, message.EventSent, events[0].Type)
	assert.Equal(t, "bob", events[0].Audience)
}

/*
TestSend_Validation rejects empty bodies and unknown participants.
*/
func TestSend_Validation(t *testing.T) {
	service, publisher := newService(t, "alice", "bob")

	tests := []struct {
		name  string
		input message.SendInput
		field string
	}{
		{"empty_body", message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: ""}, message.FieldBody},
		{"blank_body", message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: " \n\t"}, message.FieldBody},
		{"missing_recipient", message.SendInput{FromUsername: "alice", Body: "hi"}, message.FieldToUsername},
		{"unknown_recipient", message.SendInput{FromUsername: "alice", ToUsername: "ghost", Body: "hi"}, message.FieldToUsername},
		{"unknown_sender", message.SendInput{FromUsername: "ghost", ToUsername: "bob", Body: "hi"}, message.FieldFromUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Send(context.Background(), tt.input)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, apperr.CodeValidation, ae.Code)
			require.NotEmpty(t, ae.Details)
			assert.Equal(t, tt.field, ae.Details[0].Field)
		})
	}

	assert.Empty(t, publisher.Events())
}

/*
TestSend_UnknownParticipantMessage reports a missing user as an invalid
reference, not a missing field.
*/
func TestSend_UnknownParticipantMessage(t *testing.T) {
	service, _ := newService(t, "alice")

	_, err := service.Send(context.Background(), message.SendInput{FromUsername: "alice", ToUsername: "ghost", Body: "hi"})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 1)
	assert.Equal(t, message.FieldToUsername, ae.Details[0].Field)
	assert.Equal(t, "User does not exist", ae.Details[0].Message)
}

/*
TestSend_ToSelf is permitted.
*/
func TestSend_ToSelf(t *testing.T) {
	service, _ := newService(t, "alice")

	summary, err := service.Send(context.Background(), message.SendInput{FromUsername: "alice", ToUsername: "alice", Body: "note"})
	require.NoError(t, err)
	assert.Equal(t, summary.FromUsername, summary.ToUsername)
}

/*
TestSend_PublishFailure does not fail the send.
*/
func TestSend_PublishFailure(t *testing.T) {
	service, publisher := newService(t, "alice", "bob")
	publisher.err = errors.New("redis down")

	_, err := service.Send(context.Background(), message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	assert.NoError(t, err)
}

/*
TestGet joins both participants and reports missing ids.
*/
func TestGet(t *testing.T) {
	service, _ := newService(t, "alice", "bob")
	ctx := context.Background()

	summary, err := service.Send(ctx, message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	require.NoError(t, err)

	detail, err := service.Get(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.FromUser.Username)
	assert.Equal(t, "alice-first", detail.FromUser.FirstName)
	assert.Equal(t, "bob", detail.ToUser.Username)
	assert.Equal(t, "hi", detail.Body)
	assert.Nil(t, detail.ReadAt)

	_, err = service.Get(ctx, 9999)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = service.Find(ctx, 9999)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestMarkRead is idempotent and notifies the sender once.
*/
func TestMarkRead(t *testing.T) {
	service, publisher := newService(t, "alice", "bob")
	ctx := context.Background()

	summary, err := service.Send(ctx, message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	require.NoError(t, err)

	first, err := service.MarkRead(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, first.ID)
	assert.False(t, first.ReadAt.IsZero())

	time.Sleep(2 * time.Millisecond)

	second, err := service.MarkRead(ctx, summary.ID)
	require.NoError(t, err)
	assert.True(t, first.ReadAt.Equal(second.ReadAt))

	stored, err := service.Find(ctx, summary.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReadAt)
	assert.True(t, first.ReadAt.Equal(*stored.ReadAt))

	events := publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, message.EventRead, events[1].Type)
	assert.Equal(t, "alice", events[1].Audience)

	_, err = service.MarkRead(ctx, 9999)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestMarkRead_Concurrent transitions exactly once under contention.
*/
func TestMarkRead_Concurrent(t *testing.T) {
	service, publisher := newService(t, "alice", "bob")
	ctx := context.Background()

	summary, err := service.Send(ctx, message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	require.NoError(t, err)

	const readers = 10
	receipts := make([]*message.ReadReceipt, readers)

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipt, err := service.MarkRead(ctx, summary.ID)
			assert.NoError(t, err)
			receipts[i] = receipt
		}(i)
	}
	wg.Wait()

	for _, receipt := range receipts {
		require.NotNil(t, receipt)
		assert.True(t, receipts[0].ReadAt.Equal(receipt.ReadAt))
	}

	reads := 0
	for _, event := range publisher.Events() {
		if event.Type == message.EventRead {
			reads++
		}
	}
	assert.Equal(t, 1, reads)
}

/*
TestList orders newest first and embeds the other participant.
*/
func TestList(t *testing.T) {
	service, _ := newService(t, "alice", "bob", "carol")
	ctx := context.Background()

	var ids []int64
	for _, body := range []string{"one", "two", "three"} {
		summary, err := service.Send(ctx, message.SendInput{FromUsername: "alice", ToUsername: "bob", Body: body})
		require.NoError(t, err)
		ids = append(ids, summary.ID)
	}

	sent, err := service.ListSent(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sent, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{sent[0].ID, sent[1].ID, sent[2].ID})
	assert.Equal(t, "three", sent[0].Body)
	assert.Equal(t, "bob", sent[0].ToUser.Username)

	received, err := service.ListReceived(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, received, 3)
	assert.Equal(t, ids[2], received[0].ID)
	assert.Equal(t, "alice", received[0].FromUser.Username)

	empty, err := service.ListReceived(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	none, err := service.ListSent(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
