// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/messagely/internal/api"
	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/messaging/notify"
	"github.com/taibuivan/messagely/internal/platform/config"
	"github.com/taibuivan/messagely/internal/platform/constants"
	"github.com/taibuivan/messagely/internal/platform/middleware"
	"github.com/taibuivan/messagely/internal/platform/sec"
	"github.com/taibuivan/messagely/internal/users/account"
	"github.com/taibuivan/messagely/internal/users/auth"
)

var signingKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

// newTestServer wires the whole application on the in-memory backend.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Config{ServerPort: "0", Environment: "development", StoreBackend: config.BackendMemory}

	users := auth.NewMemoryUserRepository()
	hub := notify.NewHub(logger)
	tokens := sec.NewTokenServiceFromKey(signingKey, constants.AuthIssuer, 0)

	authService := auth.NewService(users, sec.NewBcryptHasher(bcrypt.MinCost), tokens)
	messageService := message.NewService(message.NewMemoryRepository(users), hub, logger)
	accountService := account.NewService(users, messageService)

	registry := prometheus.NewRegistry()
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{}, logger)

	server := api.NewServer(cfg, logger, authz.NewGuard(authService), middleware.NewMetrics(registry), api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService),
		Message:   message.NewHandler(messageService),
		Stream:    notify.NewStreamHandler(hub, middleware.OriginPolicy(cfg, nil), logger),
	})

	return server.Handler()
}

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c client) do(method, path, token string, payload any) (int, map[string]any) {
	c.t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)

	var decoded map[string]any
	if recorder.Body.Len() > 0 && strings.HasPrefix(recorder.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder.Code, decoded
}

func (c client) register(username string) string {
	c.t.Helper()

	status, body := c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":   username,
		"password":   "secret-" + username,
		"first_name": strings.ToUpper(username[:1]) + username[1:],
		"last_name":  "Tester",
		"phone":      "555-0100",
	})
	require.Equal(c.t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func (c client) send(token, to, text string) int64 {
	c.t.Helper()

	status, body := c.do(http.MethodPost, "/api/v1/messages", token, map[string]string{"to_username": to, "body": text})
	require.Equal(c.t, http.StatusCreated, status, body)
	return int64(body["message"].(map[string]any)["id"].(float64))
}

func messagePath(id int64, suffix string) string {
	return "/api/v1/messages/" + strconv.FormatInt(id, 10) + suffix
}

/*
TestAuthFlow covers registration, duplicate names and login outcomes.
*/
func TestAuthFlow(t *testing.T) {
	c := client{t: t, handler: newTestServer(t)}

	status, body := c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "password": "pw", "first_name": "Alice", "last_name": "A", "phone": "1",
	})
	require.Equal(t, http.StatusCreated, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password")
	assert.NotEmpty(t, body["token"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "password": "other", "first_name": "A", "last_name": "B", "phone": "2",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.NotEmpty(t, body["details"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	for _, credentials := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "nobody", "password": "pw"},
	} {
		status, body = c.do(http.MethodPost, "/api/v1/auth/login", "", credentials)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
		assert.Equal(t, "Invalid username/password", body["error"])
	}
}

/*
TestMessageLifecycle walks alice and bob through send, read and listing,
with carol as an unrelated third user.
*/
func TestMessageLifecycle(t *testing.T) {
	c := client{t: t, handler: newTestServer(t)}

	alice := c.register("alice")
	bob := c.register("bob")
	carol := c.register("carol")

	id := c.send(alice, "bob", "hi bob")

	t.Run("participants_only", func(t *testing.T) {
		status, body := c.do(http.MethodGet, messagePath(id, ""), bob, nil)
		require.Equal(t, http.StatusOK, status)
		detail := body["message"].(map[string]any)
		assert.Equal(t, "hi bob", detail["body"])
		assert.Nil(t, detail["read_at"])
		assert.Equal(t, "alice", detail["from_user"].(map[string]any)["username"])
		assert.Equal(t, "bob", detail["to_user"].(map[string]any)["username"])

		status, _ = c.do(http.MethodGet, messagePath(id, ""), alice, nil)
		assert.Equal(t, http.StatusOK, status)

		status, body = c.do(http.MethodGet, messagePath(id, ""), carol, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "FORBIDDEN", body["code"])
	})

	t.Run("lookup_errors", func(t *testing.T) {
		status, _ := c.do(http.MethodGet, "/api/v1/messages/999", bob, nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = c.do(http.MethodGet, "/api/v1/messages/abc", bob, nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status, body := c.do(http.MethodGet, messagePath(id, ""), "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "UNAUTHORIZED", body["code"])

		status, _ = c.do(http.MethodGet, messagePath(id, ""), "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("recipient_only_read", func(t *testing.T) {
		status, _ := c.do(http.MethodPost, messagePath(id, "/read"), alice, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, body := c.do(http.MethodPost, messagePath(id, "/read"), bob, nil)
		require.Equal(t, http.StatusOK, status)
		receipt := body["message"].(map[string]any)
		assert.Equal(t, float64(id), receipt["id"])
		firstReadAt := receipt["read_at"]
		require.NotNil(t, firstReadAt)

		status, body = c.do(http.MethodPost, messagePath(id, "/read"), bob, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, firstReadAt, body["message"].(map[string]any)["read_at"])
	})

	t.Run("mailboxes", func(t *testing.T) {
		second := c.send(alice, "bob", "second")

		status, body := c.do(http.MethodGet, "/api/v1/users/bob/to", bob, nil)
		require.Equal(t, http.StatusOK, status)
		inbox := body["messages"].([]any)
		require.Len(t, inbox, 2)
		assert.Equal(t, float64(second), inbox[0].(map[string]any)["id"])
		assert.NotNil(t, inbox[1].(map[string]any)["read_at"])

		status, body = c.do(http.MethodGet, "/api/v1/users/alice/from", alice, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["messages"].([]any), 2)

		status, _ = c.do(http.MethodGet, "/api/v1/users/bob/to", alice, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = c.do(http.MethodGet, "/api/v1/users/bob", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("directory", func(t *testing.T) {
		status, body := c.do(http.MethodGet, "/api/v1/users", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["users"].([]any), 3)

		status, body = c.do(http.MethodGet, "/api/v1/users/carol", carol, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body["user"], "last_login_at")
	})
}

/*
TestSend_Rules covers sender impersonation, bad recipients and token transport.
*/
func TestSend_Rules(t *testing.T) {
	c := client{t: t, handler: newTestServer(t)}

	alice := c.register("alice")
	c.register("bob")

	status, _ := c.do(http.MethodPost, "/api/v1/messages", alice, map[string]string{
		"from_username": "bob", "to_username": "alice", "body": "spoofed",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := c.do(http.MethodPost, "/api/v1/messages", alice, map[string]string{
		"from_username": "alice", "to_username": "ghost", "body": "hello?",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "to_username", body["details"].([]any)[0].(map[string]any)["field"])

	status, _ = c.do(http.MethodPost, "/api/v1/messages", alice, map[string]string{"to_username": "bob", "body": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = c.do(http.MethodPost, "/api/v1/messages", alice, map[string]string{"to_username": "alice", "body": "note to self"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", body["message"].(map[string]any)["to_username"])

	// The _token query parameter is accepted in place of the header.
	encoded, err := json.Marshal(map[string]string{"to_username": "bob", "body": "via query"})
	require.NoError(t, err)
	request := httptest.NewRequest(http.MethodPost, "/api/v1/messages?_token="+url.QueryEscape(alice), bytes.NewReader(encoded))
	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	// So is a _token member of the JSON body, and the message is still decoded.
	encoded, err = json.Marshal(map[string]string{"to_username": "bob", "body": "via body", "_token": alice})
	require.NoError(t, err)
	request = httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(encoded))
	request.Header.Set("Content-Type", "application/json")
	recorder = httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created map[string]map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, "alice", created["message"]["from_username"])
	assert.Equal(t, "via body", created["message"]["body"])

	// A bad body token is unauthorized like any other.
	request = httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"to_username":"bob","body":"x","_token":"forged"}`))
	request.Header.Set("Content-Type", "application/json")
	recorder = httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestInfrastructureEndpoints covers the health endpoints and the metrics exposition.
*/
func TestInfrastructureEndpoints(t *testing.T) {
	c := client{t: t, handler: newTestServer(t)}

	status, body := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = c.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "messagely_api_http_requests_total")
	assert.Contains(t, recorder.Body.String(), `route="/ready"`)
}

/*
TestReadiness_Degraded verifies a failing dependency yields 503.
*/
func TestReadiness_Degraded(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	_, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("redis: ping failed") },
	}, logger)

	recorder := httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Len(t, body["checks"], 2)
}

/*
TestStream delivers message.sent to the recipient and message.read to the sender.
*/
func TestStream(t *testing.T) {
	handler := newTestServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	c := client{t: t, handler: handler}
	alice := c.register("alice")
	bob := c.register("bob")

	dial := func(token string) *websocket.Conn {
		endpoint := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/stream?_token=" + url.QueryEscape(token)
		conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	next := func(conn *websocket.Conn) map[string]any {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		var event map[string]any
		require.NoError(t, json.Unmarshal(frame, &event))
		return event
	}

	aliceStream := dial(alice)
	bobStream := dial(bob)

	id := c.send(alice, "bob", "ping")

	event := next(bobStream)
	assert.Equal(t, "message.sent", event["type"])
	assert.Equal(t, "ping", event["message"].(map[string]any)["body"])

	status, _ := c.do(http.MethodPost, messagePath(id, "/read"), bob, nil)
	require.Equal(t, http.StatusOK, status)

	event = next(aliceStream)
	assert.Equal(t, "message.read", event["type"])
	assert.Equal(t, float64(id), event["message"].(map[string]any)["id"])

	_, response, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/stream", nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}
