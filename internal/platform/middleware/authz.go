// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"

	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/messagely/internal/platform/request"
	"github.com/taibuivan/messagely/internal/platform/respond"
)

// IdentityResolver turns an inbound token into the caller's identity.
//
// [*authz.Guard] satisfies it; tests may substitute a stub.
type IdentityResolver interface {
	RequireAuthenticated(token string) (authz.Identity, error)
}

// RequireIdentity resolves the caller before the handler runs.
//
// # Flow
//  1. Read the token from the Authorization header, the _token query parameter or a JSON body _token.
//  2. Verify it via [IdentityResolver]. Absent and invalid tokens are the same case.
//  3. On failure abort with HTTP 401 Unauthorized.
//  4. Inject [authz.Identity] into the request context for downstream use.
func RequireIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			token := requestutil.BearerToken(request)

			// ── 2. Token Verification ─────────────────────────────────────────
			identity, err := resolver.RequireAuthenticated(token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			if recorder, ok := writer.(*statusRecorder); ok {
				recorder.username = identity.Username
			}

			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
