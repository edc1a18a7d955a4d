// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Registration Constraints

const (
	// MaxUsernameLength bounds the primary identifier.
	MaxUsernameLength = 50

	// MaxNameLength bounds first and last names.
	MaxNameLength = 100

	// MaxPhoneLength bounds the free-form phone field.
	MaxPhoneLength = 30

	// MaxPasswordBytes is the bcrypt input limit. Longer passwords are rejected
	// rather than silently truncated.
	MaxPasswordBytes = 72
)
