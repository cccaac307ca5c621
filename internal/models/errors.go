package models

import "errors"

// Domain sentinels. Handlers map these onto HTTP statuses; services wrap
// them with context via fmt.Errorf and %w.
var (
	ErrUnknownAdmin      = errors.New("no active admin account for email")
	ErrAdminNotFound     = errors.New("admin not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyAdmin      = errors.New("user is already an admin")
	ErrNotEligible       = errors.New("user is not eligible for promotion")
	ErrRateLimited       = errors.New("code recently sent, retry later")
	ErrNoActiveChallenge = errors.New("no active verification code for email")
	ErrExpiredCode       = errors.New("verification code expired")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrExhausted         = errors.New("verification attempts exhausted")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrSelfDemotion      = errors.New("admins cannot demote themselves")
	ErrInvalidInput      = errors.New("invalid input")
)
