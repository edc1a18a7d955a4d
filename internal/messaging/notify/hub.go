// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/taibuivan/messagely/internal/messaging/message"
)

// subscriberBuffer is how many undelivered frames a slow client may lag.
const subscriberBuffer = 16

// Hub is the in-process implementation of [message.Publisher] and [Source],
// used when no Redis is configured. Events reach only clients connected to
// this process.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]map[chan []byte]struct{}
}

// NewHub creates an empty [Hub].
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[chan []byte]struct{}),
	}
}

// Publish fans event out to every subscriber of its audience. A subscriber
// whose buffer is full misses the frame.
func (hub *Hub) Publish(_ context.Context, event message.Event) error {
	if event.Audience == "" {
		return fmt.Errorf("notify_publish_failed: event %q has no audience", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify_publish_failed: %w", err)
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	for client := range hub.clients[event.Audience] {
		select {
		case client <- payload:
		default:
			hub.logger.Warn("notify_frame_dropped",
				slog.String("audience", event.Audience),
				slog.String("type", event.Type),
			)
		}
	}

	return nil
}

// Subscribe registers a client for username until ctx is done, then closes
// the returned channel.
func (hub *Hub) Subscribe(ctx context.Context, username string) (<-chan []byte, error) {
	client := make(chan []byte, subscriberBuffer)

	hub.mu.Lock()
	if _, ok := hub.clients[username]; !ok {
		hub.clients[username] = make(map[chan []byte]struct{})
	}
	hub.clients[username][client] = struct{}{}
	hub.mu.Unlock()

	go func() {
		<-ctx.Done()

		hub.mu.Lock()
		defer hub.mu.Unlock()

		delete(hub.clients[username], client)
		if len(hub.clients[username]) == 0 {
			delete(hub.clients, username)
		}
		close(client)
	}()

	return client, nil
}

// Subscribers returns the number of open subscriptions for username.
func (hub *Hub) Subscribers(username string) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients[username])
}

var _ message.Publisher = (*Hub)(nil)
var _ Source = (*Hub)(nil)
