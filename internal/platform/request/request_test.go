// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/messagely/internal/platform/request"
)

/*
TestBearerToken covers header, query fallback and malformed headers.
*/
func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		header   string
		expected string
	}{
		{"bearer_header", "/", "Bearer abc", "abc"},
		{"lowercase_scheme", "/", "bearer abc", "abc"},
		{"query_fallback", "/?_token=xyz", "", "xyz"},
		{"header_wins", "/?_token=xyz", "Bearer abc", "abc"},
		{"malformed_header", "/?_token=xyz", "Token abc", ""},
		{"scheme_only", "/", "Bearer", ""},
		{"absent", "/", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.expected, requestutil.BearerToken(request))
		})
	}
}

/*
TestBearerToken_Body covers the _token member of a JSON body.
*/
func TestBearerToken_Body(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		header      string
		contentType string
		body        string
		expected    string
	}{
		{"json_body", "/", "", "application/json", `{"to_username":"bob","_token":"abc"}`, "abc"},
		{"json_charset", "/", "", "application/json; charset=utf-8", `{"_token":"abc"}`, "abc"},
		{"undeclared_type", "/", "", "", `{"_token":"abc"}`, "abc"},
		{"query_wins", "/?_token=xyz", "", "application/json", `{"_token":"abc"}`, "xyz"},
		{"header_wins", "/", "Bearer hdr", "application/json", `{"_token":"abc"}`, "hdr"},
		{"malformed_header_blocks_body", "/", "Token hdr", "application/json", `{"_token":"abc"}`, ""},
		{"form_body", "/", "", "application/x-www-form-urlencoded", `_token=abc`, ""},
		{"invalid_json", "/", "", "application/json", `{"_token":`, ""},
		{"no_member", "/", "", "application/json", `{"body":"hi"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				request.Header.Set("Content-Type", tt.contentType)
			} else {
				request.Header.Del("Content-Type")
			}
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.expected, requestutil.BearerToken(request))

			// The handler must still see the full body.
			rest, err := io.ReadAll(request.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(rest))
		})
	}
}

/*
TestBearerToken_BodyRestoredForDecode verifies DecodeJSON still works after the lookup.
*/
func TestBearerToken_BodyRestoredForDecode(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"to_username":"bob","body":"hi","_token":"abc"}`))
	request.Header.Set("Content-Type", "application/json")

	require.Equal(t, "abc", requestutil.BearerToken(request))

	var payload struct {
		ToUsername string `json:"to_username"`
		Body       string `json:"body"`
	}
	require.NoError(t, requestutil.DecodeJSON(request, &payload))
	assert.Equal(t, "bob", payload.ToUsername)
	assert.Equal(t, "hi", payload.Body)
}

/*
TestInt64Param rejects anything but a positive integer.
*/
func TestInt64Param(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  int64
	}{
		{"42", true, 42},
		{"0", false, 0},
		{"-3", false, 0},
		{"abc", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			routeContext := chi.NewRouteContext()
			routeContext.URLParams.Add("id", tt.raw)
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, routeContext))

			got, err := requestutil.Int64Param(request, "id")
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			}
		})
	}
}

/*
TestRequiredIdentity distinguishes authenticated and anonymous requests.
*/
func TestRequiredIdentity(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := requestutil.RequiredIdentity(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	request = request.WithContext(ctxutil.WithIdentity(request.Context(), authz.Identity{Username: "bob"}))
	identity, err := requestutil.RequiredIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, "bob", identity.Username)
}

/*
TestDecodeJSON maps undecodable bodies to a validation error.
*/
func TestDecodeJSON(t *testing.T) {
	var target struct {
		Body string `json:"body"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"body":"hi"}`))
	require.NoError(t, requestutil.DecodeJSON(request, &target))
	assert.Equal(t, "hi", target.Body)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, apperr.HasCode(requestutil.DecodeJSON(request, &target), apperr.CodeValidation))
}
