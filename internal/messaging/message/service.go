// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/messagely/internal/platform/validate"
	"github.com/taibuivan/messagely/pkg/textnorm"
)

// # Service Layer

// Service orchestrates the message lifecycle.
type Service struct {
	repository Repository
	publisher  Publisher
	logger     *slog.Logger

	now func() time.Time
}

// NewService constructs a new [Service]. A nil publisher disables events.
func NewService(repository Repository, publisher Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// # Sending

// SendInput carries a new message. FromUsername is the authenticated caller.
type SendInput struct {
	FromUsername string
	ToUsername   string
	Body         string
}

/*
Send creates an unread message.

Description: The body is normalized and must be non-empty afterwards.
Sending to oneself is allowed. The recipient is notified after the insert.

Parameters:
  - ctx: context.Context
  - input: SendInput

Returns:
  - *Summary: {id, from_username, to_username, body, sent_at}
  - error: Validation (empty body, unknown participant) or Internal
*/
func (service *Service) Send(ctx context.Context, input SendInput) (*Summary, error) {

	// ── 1. Normalization & Validation ─────────────────────────────────────
	input.FromUsername = textnorm.Normalize(input.FromUsername)
	input.ToUsername = textnorm.Normalize(input.ToUsername)
	input.Body = textnorm.Normalize(input.Body)

	validator := &validate.Validator{}
	validator.
		Required(FieldFromUsername, input.FromUsername).
		Required(FieldToUsername, input.ToUsername).
		Required(FieldBody, input.Body)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Persistence ────────────────────────────────────────────────────
	message := &Message{
		FromUsername: input.FromUsername,
		ToUsername:   input.ToUsername,
		Body:         input.Body,
		SentAt:       service.now(),
		ReadAt:       nil,
	}

	if err := service.repository.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("message_service_send_failed: %w", err)
	}

	// ── 3. Notification ───────────────────────────────────────────────────
	summary := message.Summary()
	service.publish(ctx, Event{Type: EventSent, Audience: message.ToUsername, Message: summary})

	service.logger.Info("message_sent",
		slog.Int64("message_id", message.ID),
		slog.String("from_username", message.FromUsername),
		slog.String("to_username", message.ToUsername),
	)

	return &summary, nil
}

// # Retrieval

/*
Get retrieves a message with both participants' public profiles.

Description: Performs no authorization. Callers apply authz.RequireParticipant
to the result before exposing it.

Returns:
  - *Detail: The hydrated message
  - error: NotFound if the id does not exist
*/
func (service *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	detail, err := service.repository.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("message_service_get_failed: %w", err)
	}
	return detail, nil
}

// Find retrieves the bare message, used to authorize before [Service.MarkRead].
func (service *Service) Find(ctx context.Context, id int64) (*Message, error) {
	message, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("message_service_find_failed: %w", err)
	}
	return message, nil
}

// ListSent returns the messages username sent, newest first. Never nil.
func (service *Service) ListSent(ctx context.Context, username string) ([]ToView, error) {
	views, err := service.repository.ListBySender(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("message_service_list_sent_failed: %w", err)
	}
	if views == nil {
		views = []ToView{}
	}
	return views, nil
}

// ListReceived returns the messages username received, newest first. Never nil.
func (service *Service) ListReceived(ctx context.Context, username string) ([]FromView, error) {
	views, err := service.repository.ListByRecipient(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("message_service_list_received_failed: %w", err)
	}
	if views == nil {
		views = []FromView{}
	}
	return views, nil
}

// # Read Transition

/*
MarkRead moves a message from Unread to Read.

Description: Idempotent. If the message is already read, the original
read_at is returned unchanged. Only the call that performs the transition
notifies the sender. Callers apply authz.RequireRecipient first.

Returns:
  - *ReadReceipt: {id, read_at}
  - error: NotFound if the id does not exist
*/
func (service *Service) MarkRead(ctx context.Context, id int64) (*ReadReceipt, error) {
	message, transitioned, err := service.repository.MarkRead(ctx, id, service.now())
	if err != nil {
		return nil, fmt.Errorf("message_service_mark_read_failed: %w", err)
	}

	receipt := &ReadReceipt{ID: message.ID, ReadAt: *message.ReadAt}

	if transitioned {
		service.publish(ctx, Event{Type: EventRead, Audience: message.FromUsername, Message: *receipt})

		service.logger.Info("message_read",
			slog.Int64("message_id", message.ID),
			slog.String("to_username", message.ToUsername),
		)
	}

	return receipt, nil
}

// publish delivers event and only logs failures; notification is best effort.
func (service *Service) publish(ctx context.Context, event Event) {
	if err := service.publisher.Publish(ctx, event); err != nil {
		service.logger.Warn("message_event_publish_failed",
			slog.String("type", event.Type),
			slog.String("audience", event.Audience),
			slog.Any("error", err),
		)
	}
}
