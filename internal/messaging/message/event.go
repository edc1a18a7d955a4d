// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import "context"

// # Lifecycle Events

// Event types delivered to participants.
const (
	EventSent = "message.sent"
	EventRead = "message.read"
)

// Event notifies one user about a lifecycle change.
type Event struct {
	// Type is EventSent or EventRead.
	Type string `json:"type"`

	// Audience is the username whose channel receives the event.
	Audience string `json:"-"`

	// Message is a Summary for EventSent and a ReadReceipt for EventRead.
	Message any `json:"message"`
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event. It is used when notifications are disabled.
type NopPublisher struct{}

// Publish implements [Publisher].
func (NopPublisher) Publish(context.Context, Event) error { return nil }
