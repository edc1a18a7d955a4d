// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/platform/ctxutil"
	"github.com/taibuivan/messagely/internal/platform/validate"
)

// TokenQueryParam is the query-string fallback for clients that cannot set headers.
const TokenQueryParam = "_token"

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Int64Param parses a named URL parameter as a positive integer identifier.

Returns:
  - int64: The parsed identifier
  - error: VALIDATION_ERROR naming the parameter if it is not a positive integer
*/
func Int64Param(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, validate.InvalidError(name, "Must be a positive integer")
	}
	return value, nil
}

/*
BearerToken extracts the session token from the request.

Lookup order:
 1. The Authorization header. A header that is present but not of the form
    "Bearer <token>" yields an empty string, which the guard treats exactly
    like an invalid token.
 2. The _token query parameter.
 3. A "_token" member of a JSON request body. The body is restored so the
    handler can still decode it.
*/
func BearerToken(request *http.Request) string {
	if header := request.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if token := request.URL.Query().Get(TokenQueryParam); token != "" {
		return token
	}

	return bodyToken(request)
}

// MaxTokenBodyBytes bounds how much of a body is buffered to look for _token.
const MaxTokenBodyBytes = 1 << 20

// bodyToken reads _token from a JSON body and rewinds request.Body.
func bodyToken(request *http.Request) string {
	if request.Body == nil || request.Body == http.NoBody || !isJSON(request) {
		return ""
	}

	original := request.Body
	raw, err := io.ReadAll(io.LimitReader(original, MaxTokenBodyBytes+1))
	request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), original), original}
	if err != nil || len(raw) > MaxTokenBodyBytes {
		return ""
	}

	var envelope struct {
		Token string `json:"_token"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}

	return envelope.Token
}

// isJSON reports whether the body is declared as JSON. An undeclared
// content type is tried as JSON as well.
func isJSON(request *http.Request) bool {
	contentType := request.Header.Get("Content-Type")
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

/*
RequiredIdentity returns the authenticated caller placed in the context by the
RequireIdentity middleware.

Returns:
  - authz.Identity: The caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (authz.Identity, error) {
	identity, ok := ctxutil.GetIdentity(request.Context())

	// If the user is not authenticated, return an error
	if !ok {
		return authz.Identity{}, authz.ErrUnauthenticated()
	}

	return identity, nil
}
