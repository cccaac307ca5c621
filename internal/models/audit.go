package models

import (
	"time"
)

// Audit actions recorded by the service.
const (
	AuditActionLogin   = "admin_login"
	AuditActionPromote = "promote"
	AuditActionDemote  = "demote"
	AuditActionUpdate  = "admin_updated"

	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"

	AuditResourceAdminUser    = "admin_user"
	AuditResourcePlatformUser = "user"
	AuditResourceSession      = "session"
)

// AuditLogEntry is one append-only record of an admin action. Entries are
// written for every state-changing operation, success or failure, and are
// never mutated afterwards.
type AuditLogEntry struct {
	ID           string    `json:"id"`
	ActorEmail   string    `json:"actor_email"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Outcome      string    `json:"outcome"`
	Detail       string    `json:"detail"`
	Timestamp    time.Time `json:"timestamp"`
}

// AuditQuery filters audit-log reads.
type AuditQuery struct {
	ActorEmail string
	Action     string
	Since      time.Time
	Until      time.Time
	Limit      int
}
