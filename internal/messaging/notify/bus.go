// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers message events to connected clients.

# Architecture

  - Bus: Publishes message.Event values on per-user Redis channels and
    subscribes to them again for the stream.
  - StreamHandler: An authenticated websocket that relays the caller's
    channel, one JSON frame per event.

Delivery is best effort. A client that is not connected misses the event;
the message itself is always in the store.
*/
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/platform/constants"
)

// RedisClient is the subset of [*redis.Client] the bus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, payload interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Channel returns the Redis channel carrying username's events.
func Channel(username string) string {
	return constants.RedisPrefixInbox + username
}

// # Bus

// Bus is the Redis pub/sub implementation of [message.Publisher] and [Source].
type Bus struct {
	client RedisClient
	logger *slog.Logger
}

// NewBus constructs a [Bus] over an existing client.
func NewBus(client RedisClient, logger *slog.Logger) *Bus {
	return &Bus{client: client, logger: logger}
}

// Publish sends event to its audience's channel.
func (bus *Bus) Publish(ctx context.Context, event message.Event) error {
	if event.Audience == "" {
		return fmt.Errorf("notify_publish_failed: event %q has no audience", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify_publish_failed: %w", err)
	}

	if err := bus.client.Publish(ctx, Channel(event.Audience), payload).Err(); err != nil {
		return fmt.Errorf("notify_publish_failed: %w", err)
	}

	return nil
}

/*
Subscribe opens username's channel and relays raw payloads.

Description: The subscription is confirmed before returning so that the
caller can still fail the request. The returned channel is closed once ctx
is done or Redis drops the subscription.
*/
func (bus *Bus) Subscribe(ctx context.Context, username string) (<-chan []byte, error) {
	pubsub := bus.client.Subscribe(ctx, Channel(username))

	// Wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("notify_subscribe_failed: %w", err)
	}

	payloads := make(chan []byte)

	go func() {
		defer close(payloads)
		defer func() {
			if err := pubsub.Close(); err != nil {
				bus.logger.Warn("notify_unsubscribe_failed", slog.String("username", username), slog.Any("error", err))
			}
		}()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case received, ok := <-messages:
				if !ok {
					return
				}
				select {
				case payloads <- []byte(received.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return payloads, nil
}

var _ message.Publisher = (*Bus)(nil)
var _ Source = (*Bus)(nil)
