package models

import (
	"time"
)

// KYC statuses for platform users.
const (
	KYCPending  = "pending"
	KYCVerified = "verified"
	KYCFailed   = "failed"
)

// PlatformUser is a regular platform account. Only KYC-verified, unbanned
// users are eligible for promotion to admin.
type PlatformUser struct {
	UserBucket int       `json:"-" db:"user_bucket"`
	UserID     string    `json:"user_id" db:"user_id"`
	Email      string    `json:"email" db:"email"`
	FullName   string    `json:"full_name" db:"full_name"`
	KYCStatus  string    `json:"kyc_status" db:"kyc_status"`
	IsBanned   bool      `json:"is_banned" db:"is_banned"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Eligible reports whether the user may be promoted to admin.
func (u *PlatformUser) Eligible() bool {
	return u.KYCStatus == KYCVerified && !u.IsBanned
}
