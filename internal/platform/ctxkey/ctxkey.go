// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey holds the request-scoped context keys read through ctxutil.
package ctxkey

// key is unexported so no other package can mint a colliding key.
type key string

const (
	// KeyRequestID carries the X-Request-ID echoed in responses and logs.
	KeyRequestID key = "request_id"

	// KeyIdentity carries the authz.Identity set by RequireIdentity.
	KeyIdentity key = "identity"

	// KeyLogger carries the request logger tagged with request_id, method and path.
	KeyLogger key = "logger"
)
