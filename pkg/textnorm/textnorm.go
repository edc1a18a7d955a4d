// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textnorm canonicalizes user-supplied text before it is validated or stored.
//
// # Usage
//
// Usernames are primary keys. Without normalization a precomposed é and an
// e followed by a combining acute would yield two accounts that render identically.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims surrounding whitespace and converts s to Unicode NFC.
//
// # Transformation Pipeline
//
// 1. Composes to NFC (e + combining acute → é).
// 2. Trims leading/trailing whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Equal reports whether a and b are the same text after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
