// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// BcryptHasher hashes and verifies passwords with bcrypt.
//
// # Salting
//
// bcrypt embeds a random salt in every hash, so hashing the same password
// twice never yields the same string.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or [DefaultBcryptCost] when cost is zero.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash hashes a plain-text password.
func (hasher *BcryptHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.Cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare reports whether plainTextPassword matches existingHash.
// The comparison is constant-time with respect to the password.
func (hasher *BcryptHasher) Compare(existingHash, plainTextPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
