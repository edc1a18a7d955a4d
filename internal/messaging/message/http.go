// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/platform/apperr"
	requestutil "github.com/taibuivan/messagely/internal/platform/request"
	"github.com/taibuivan/messagely/internal/platform/respond"
	"github.com/taibuivan/messagely/pkg/textnorm"
)

// # Definitions & Constructors

// Handler implements message HTTP endpoints.
//
// Every route expects the caller's identity in the request context; mount it
// behind middleware.RequireIdentity.
type Handler struct {
	messageService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{messageService: service}
}

// Routes returns a [chi.Router] configured with message routes.
//
// # Endpoints
//   - POST /          : Sends a message as the caller.
//   - GET  /{id}      : Message detail, participants only.
//   - POST /{id}/read : Marks read, recipient only.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.send)
	router.Get("/{id}", handler.get)
	router.Post("/{id}/read", handler.markRead)

	return router
}

// # Request Payloads

type sendRequest struct {
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Body         string `json:"body"`
}

/*
Send posts a message from the caller.

POST /api/v1/messages

Description: The sender is always the authenticated caller. A from_username
in the body is accepted only if it names the caller.

Response:
  - 201: {message: {id, from_username, to_username, body, sent_at}}
  - 400: Empty body or unknown recipient
  - 401: No valid token
  - 403: from_username names someone else
*/
func (handler *Handler) send(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input sendRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.FromUsername != "" && !textnorm.Equal(input.FromUsername, identity.Username) {
		respond.Error(writer, request, apperr.Forbidden("You may only send messages as yourself"))
		return
	}

	summary, err := handler.messageService.Send(request.Context(), SendInput{
		FromUsername: identity.Username,
		ToUsername:   input.ToUsername,
		Body:         input.Body,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{FieldMessage: summary})
}

/*
Get returns a single message.

GET /api/v1/messages/{id}

Response:
  - 200: {message: {id, body, sent_at, read_at, from_user, to_user}}
  - 400: id is not a positive integer
  - 403: Caller is neither sender nor recipient
  - 404: No such message
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.Int64Param(request, FieldID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	detail, err := handler.messageService.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := authz.RequireParticipant(identity, detail); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: detail})
}

/*
MarkRead performs the read transition.

POST /api/v1/messages/{id}/read

Response:
  - 200: {message: {id, read_at}}
  - 400: id is not a positive integer
  - 403: Caller is not the recipient
  - 404: No such message
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.Int64Param(request, FieldID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 1. Resolve & Authorize ────────────────────────────────────────────
	message, err := handler.messageService.Find(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := authz.RequireRecipient(identity, message); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Transition ─────────────────────────────────────────────────────
	receipt, err := handler.messageService.MarkRead(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: receipt})
}
