package models

import (
	"time"
)

// AdminRole is a named bundle of default permissions.
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "super_admin"
	RoleAdmin      AdminRole = "admin"
	RoleModerator  AdminRole = "moderator"
	RoleSupport    AdminRole = "support"
)

// AdminPermission is an atomic capability flag gating one administrative
// operation.
type AdminPermission string

const (
	PermUserManagement      AdminPermission = "user_management"
	PermAdminManagement     AdminPermission = "admin_management"
	PermContentModeration   AdminPermission = "content_moderation"
	PermServiceApproval     AdminPermission = "service_approval"
	PermPaymentManagement   AdminPermission = "payment_management"
	PermRefundProcessing    AdminPermission = "refund_processing"
	PermAnalyticsAccess     AdminPermission = "analytics_access"
	PermReportGeneration    AdminPermission = "report_generation"
	PermSystemConfiguration AdminPermission = "system_configuration"
	PermEmailManagement     AdminPermission = "email_management"
	PermKYCVerification     AdminPermission = "kyc_verification"
	PermKYCApproval         AdminPermission = "kyc_approval"
)

// AllPermissions lists every known permission, in a stable order.
var AllPermissions = []AdminPermission{
	PermUserManagement,
	PermAdminManagement,
	PermContentModeration,
	PermServiceApproval,
	PermPaymentManagement,
	PermRefundProcessing,
	PermAnalyticsAccess,
	PermReportGeneration,
	PermSystemConfiguration,
	PermEmailManagement,
	PermKYCVerification,
	PermKYCApproval,
}

// rolePermissions is the role to default-permission lookup table. Kept as
// plain data so the permission matrix stays auditable.
var rolePermissions = map[AdminRole][]AdminPermission{
	RoleSuperAdmin: AllPermissions,
	RoleAdmin: {
		PermUserManagement,
		PermContentModeration,
		PermServiceApproval,
		PermPaymentManagement,
		PermRefundProcessing,
		PermAnalyticsAccess,
		PermReportGeneration,
		PermEmailManagement,
		PermKYCVerification,
		PermKYCApproval,
	},
	RoleModerator: {
		PermUserManagement,
		PermContentModeration,
		PermServiceApproval,
		PermAnalyticsAccess,
		PermKYCVerification,
	},
	RoleSupport: {
		PermUserManagement,
		PermAnalyticsAccess,
	},
}

// DefaultPermissions returns a copy of the default permission set for a
// role. Unknown roles get no permissions.
func DefaultPermissions(role AdminRole) []AdminPermission {
	defaults, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]AdminPermission, len(defaults))
	copy(out, defaults)
	return out
}

// ValidRole reports whether role is one of the fixed enumeration.
func ValidRole(role AdminRole) bool {
	_, ok := rolePermissions[role]
	return ok
}

// ValidPermission reports whether perm is a known permission flag.
func ValidPermission(perm AdminPermission) bool {
	for _, p := range AllPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasPermission reports whether perm is present in set.
func HasPermission(set []AdminPermission, perm AdminPermission) bool {
	for _, p := range set {
		if p == perm {
			return true
		}
	}
	return false
}

// AdminUser is the persisted admin record. Rows are never hard-deleted;
// demotion flips IsActive and stamps the demoted_* fields so the audit
// trail stays intact.
type AdminUser struct {
	AdminID     string            `json:"admin_id" db:"admin_id"`
	Email       string            `json:"email" db:"email"`
	FullName    string            `json:"full_name" db:"full_name"`
	Role        AdminRole         `json:"role" db:"role"`
	Permissions []AdminPermission `json:"permissions" db:"permissions"`
	IsActive    bool              `json:"is_active" db:"is_active"`
	CreatedBy   string            `json:"created_by" db:"created_by"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
	LastLogin   *time.Time        `json:"last_login,omitempty" db:"last_login"`
	LoginCount  int               `json:"login_count" db:"login_count"`
	DemotedBy   string            `json:"demoted_by,omitempty" db:"demoted_by"`
	DemotedAt   *time.Time        `json:"demoted_at,omitempty" db:"demoted_at"`
}

// AdminProfile is the trimmed admin shape returned by the API.
type AdminProfile struct {
	AdminID     string            `json:"admin_id"`
	Email       string            `json:"email"`
	FullName    string            `json:"full_name"`
	Role        AdminRole         `json:"role"`
	Permissions []AdminPermission `json:"permissions"`
	IsActive    bool              `json:"is_active"`
}

// Profile converts the full record into its API shape.
func (a *AdminUser) Profile() *AdminProfile {
	return &AdminProfile{
		AdminID:     a.AdminID,
		Email:       a.Email,
		FullName:    a.FullName,
		Role:        a.Role,
		Permissions: a.Permissions,
		IsActive:    a.IsActive,
	}
}
