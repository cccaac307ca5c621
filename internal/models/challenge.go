package models

import (
	"time"
)

// OTPChallenge is the stored form of an issued one-time code. Only the
// argon2 hash of the code is kept; the plaintext goes out by email and is
// never persisted. A challenge is a small state machine: Pending until it
// is consumed (correct code), expired (clock), or exhausted (attempts).
type OTPChallenge struct {
	Email         string    `json:"email"`
	CodeHash      string    `json:"code_hash"`
	CodeSalt      string    `json:"code_salt"`
	HashAlgorithm string    `json:"hash_algorithm"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxAttempts   int       `json:"max_attempts"`
}

// Expired reports whether the challenge has passed its expiry at now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
