// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/platform/constants"
	requestutil "github.com/taibuivan/messagely/internal/platform/request"
	"github.com/taibuivan/messagely/internal/platform/respond"
)

// Websocket keep-alive timing.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Source yields one user's event payloads until ctx is done.
type Source interface {
	Subscribe(ctx context.Context, username string) (<-chan []byte, error)
}

// # Stream Handler

// StreamHandler upgrades authenticated requests to a websocket and relays
// the caller's events.
//
// Mount it behind middleware.RequireIdentity and outside any request
// timeout; the connection outlives a normal request.
type StreamHandler struct {
	source   Source
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler constructs a [StreamHandler]. allowOrigin decides which
// browser origins may open the socket.
func NewStreamHandler(source Source, allowOrigin func(origin string) bool, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(request *http.Request) bool {
				origin := request.Header.Get(constants.HeaderOrigin)
				return origin == "" || allowOrigin(origin)
			},
		},
	}
}

/*
ServeHTTP streams events for the caller.

GET /api/v1/stream

Description: Each frame is a JSON event {type, message}. message.sent frames
carry the new message summary, message.read frames the read receipt. The
server pings every pingPeriod; clients must answer within pongWait.

Response:
  - 101: Switching protocols
  - 401: No valid token
  - 500: Subscription could not be opened
*/
func (handler *StreamHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Identity ───────────────────────────────────────────────────────
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Subscription ───────────────────────────────────────────────────
	// Opened before the upgrade so failures still get a normal HTTP error.
	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()

	payloads, err := handler.source.Subscribe(ctx, identity.Username)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	// ── 3. Upgrade ────────────────────────────────────────────────────────
	conn, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		handler.logger.Warn("stream_upgrade_failed", slog.String("username", identity.Username), slog.Any("error", err))
		return
	}
	defer conn.Close()

	handler.logger.Info("stream_opened", slog.String("username", identity.Username))

	// ── 4. Reader ─────────────────────────────────────────────────────────
	// Incoming frames are discarded; a read error means the client left.
	go func() {
		defer cancel()

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// ── 5. Writer ─────────────────────────────────────────────────────────
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			handler.logger.Info("stream_closed", slog.String("username", identity.Username))
			return

		case payload, ok := <-payloads:
			if !ok {
				payloads = nil
				cancel()
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				handler.logger.Warn("stream_write_failed", slog.String("username", identity.Username), slog.Any("error", err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
