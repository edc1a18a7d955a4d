// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 wraps google/uuid to generate time-ordered identifiers.
//
// Request correlation IDs use it so that log lines sort by arrival.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// If the clock sequence cannot be read it falls back to a random UUIDv4,
// which is still unique but not time-ordered.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
