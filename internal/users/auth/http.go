// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth provides the HTTP delivery layer for user identity management.

# Architecture

The handler acts as a thin mediation layer between the web and [Service]:
  - Protocol: Standard RESTful JSON interface.
  - Security: Returns session tokens; it never sets cookies.

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/messagely/internal/platform/request"
	"github.com/taibuivan/messagely/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account and logs it in.
//   - POST /login    : Authenticates and returns a session token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)

	return router
}

// # Request Payloads

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Persists the account and returns it together with a session
token, so a fresh user is logged in immediately.

Request:
  - Body: registerRequest (username, password, first_name, last_name, phone)

Response:
  - 201: {user, token}
  - 400: Bad input or validation failure
  - 409: Username already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.authService.IssueToken(user.Username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldUser:  user,
		FieldToken: token,
	})
}

/*
Login authenticates a user and returns a session token.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (username, password)

Response:
  - 200: {token}
  - 400: Missing fields
  - 401: Invalid username/password
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.authService.Login(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldToken: token})
}
