// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/messaging/message"
	requestutil "github.com/taibuivan/messagely/internal/platform/request"
	"github.com/taibuivan/messagely/internal/platform/respond"
	"github.com/taibuivan/messagely/internal/users/auth"
	"github.com/taibuivan/messagely/pkg/textnorm"
)

// Handler implements the HTTP layer for the user directory.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the directory endpoints.
//
// requireIdentity guards every route below /{username}.
//
// # Endpoints
//   - GET /                 : Public profiles of all users.
//   - GET /{username}       : Own full profile.
//   - GET /{username}/to    : Own received messages.
//   - GET /{username}/from  : Own sent messages.
func (handler *Handler) Routes(requireIdentity func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Public directory
	router.Get("/", handler.listUsers)

	// Self-only views
	router.Group(func(private chi.Router) {
		private.Use(requireIdentity)
		private.Get("/{username}", handler.getUser)
		private.Get("/{username}/to", handler.listReceived)
		private.Get("/{username}/from", handler.listSent)
	})

	return router
}

/*
GET /api/v1/users.

Response:
  - 200: {users: [{username, first_name, last_name, phone}]}
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.accountService.ListUsers(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUsers: users})
}

/*
GET /api/v1/users/{username}.

Response:
  - 200: {user: {username, first_name, last_name, phone, joined_at, last_login_at}}
  - 401: No valid token
  - 403: Not the caller's own username
  - 404: User not found
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	username, ok := handler.requireSelf(writer, request)
	if !ok {
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUser: profile})
}

/*
GET /api/v1/users/{username}/to.

Response:
  - 200: {messages: [{id, body, sent_at, read_at, from_user}]}, newest first
  - 401, 403
*/
func (handler *Handler) listReceived(writer http.ResponseWriter, request *http.Request) {
	username, ok := handler.requireSelf(writer, request)
	if !ok {
		return
	}

	messages, err := handler.accountService.Inbox(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{message.FieldMessages: messages})
}

/*
GET /api/v1/users/{username}/from.

Response:
  - 200: {messages: [{id, body, sent_at, read_at, to_user}]}, newest first
  - 401, 403
*/
func (handler *Handler) listSent(writer http.ResponseWriter, request *http.Request) {
	username, ok := handler.requireSelf(writer, request)
	if !ok {
		return
	}

	messages, err := handler.accountService.Outbox(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{message.FieldMessages: messages})
}

// requireSelf resolves the path username and checks it names the caller.
// It writes the error response itself and reports whether to continue.
func (handler *Handler) requireSelf(writer http.ResponseWriter, request *http.Request) (string, bool) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	username := textnorm.Normalize(requestutil.Param(request, auth.FieldUsername))
	if err := authz.RequireSelf(identity, username); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	return username, true
}
