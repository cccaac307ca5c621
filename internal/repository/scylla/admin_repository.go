package scylla

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"admin-service/internal/models"
	"admin-service/internal/util"
)

// AdminRepository is the durable store for admin accounts.
type AdminRepository interface {
	Create(admin *models.AdminUser) error
	GetByEmail(email string) (*models.AdminUser, error)
	GetByID(adminID string) (*models.AdminUser, error)
	List() ([]*models.AdminUser, error)
	UpdateRole(adminID string, role models.AdminRole, permissions []models.AdminPermission) error
	UpdateProfile(adminID, fullName string, isActive bool) error
	Deactivate(adminID, demotedBy string) error
	RecordLogin(adminID string, at time.Time, loginCount int) error
}

type adminRepository struct {
	client *ScyllaClient
}

func NewAdminRepository(client *ScyllaClient) AdminRepository {
	return &adminRepository{client: client}
}

// Create writes the admin row and its email lookup entry in one logged
// batch so a login by email never sees a half-created account.
func (r *adminRepository) Create(admin *models.AdminUser) error {
	if admin.AdminID == "" {
		admin.AdminID = uuid.New().String()
	}

	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	perms := permissionStrings(admin.Permissions)

	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateAdmin.Statement(),
		admin.AdminID, admin.Email, admin.FullName, string(admin.Role), perms,
		admin.IsActive, admin.CreatedBy, admin.CreatedAt, admin.UpdatedAt,
		admin.LastLogin, admin.LoginCount, admin.DemotedBy, admin.DemotedAt)

	batch.Query(r.client.Prepared.CreateAdminByEmail.Statement(),
		admin.Email, admin.AdminID, admin.CreatedAt)

	if err := r.client.Session.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create admin",
			zap.String("email", admin.Email),
			zap.String("admin_id", admin.AdminID),
			zap.Error(err))
		return fmt.Errorf("failed to create admin: %w", err)
	}

	util.Info("Admin created",
		zap.String("admin_id", admin.AdminID),
		zap.String("email", admin.Email),
		zap.String("role", string(admin.Role)))

	return nil
}

func (r *adminRepository) GetByEmail(email string) (*models.AdminUser, error) {
	var adminID string

	query := r.client.Prepared.GetAdminIDByEmail.Bind(email)
	if err := r.client.ScanWithRetry(query, &adminID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, models.ErrAdminNotFound
		}
		util.Error("Failed to resolve admin by email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve admin by email: %w", err)
	}

	return r.GetByID(adminID)
}

func (r *adminRepository) GetByID(adminID string) (*models.AdminUser, error) {
	admin := &models.AdminUser{}
	var role string
	var perms []string
	var lastLogin, demotedAt time.Time

	query := r.client.Prepared.GetAdminByID.Bind(adminID)
	err := r.client.ScanWithRetry(query,
		&admin.AdminID, &admin.Email, &admin.FullName, &role, &perms,
		&admin.IsActive, &admin.CreatedBy, &admin.CreatedAt, &admin.UpdatedAt,
		&lastLogin, &admin.LoginCount, &admin.DemotedBy, &demotedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, models.ErrAdminNotFound
		}
		util.Error("Failed to get admin by ID",
			zap.String("admin_id", adminID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get admin by ID: %w", err)
	}

	admin.Role = models.AdminRole(role)
	admin.Permissions = parsePermissions(perms)
	admin.LastLogin = nullableTime(lastLogin)
	admin.DemotedAt = nullableTime(demotedAt)

	return admin, nil
}

func (r *adminRepository) List() ([]*models.AdminUser, error) {
	iter := r.client.Prepared.ListAdmins.Iter()

	var admins []*models.AdminUser
	for {
		admin := &models.AdminUser{}
		var role string
		var perms []string
		var lastLogin, demotedAt time.Time

		if !iter.Scan(
			&admin.AdminID, &admin.Email, &admin.FullName, &role, &perms,
			&admin.IsActive, &admin.CreatedBy, &admin.CreatedAt, &admin.UpdatedAt,
			&lastLogin, &admin.LoginCount, &admin.DemotedBy, &demotedAt) {
			break
		}

		admin.Role = models.AdminRole(role)
		admin.Permissions = parsePermissions(perms)
		admin.LastLogin = nullableTime(lastLogin)
		admin.DemotedAt = nullableTime(demotedAt)
		admins = append(admins, admin)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list admins", zap.Error(err))
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	return admins, nil
}

func (r *adminRepository) UpdateRole(adminID string, role models.AdminRole, permissions []models.AdminPermission) error {
	now := time.Now().UTC()

	query := r.client.Prepared.UpdateAdminRole.Bind(
		string(role), permissionStrings(permissions), now, adminID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update admin role",
			zap.String("admin_id", adminID),
			zap.String("role", string(role)),
			zap.Error(err))
		return fmt.Errorf("failed to update admin role: %w", err)
	}

	return nil
}

func (r *adminRepository) UpdateProfile(adminID, fullName string, isActive bool) error {
	now := time.Now().UTC()

	query := r.client.Prepared.UpdateAdminProfile.Bind(fullName, isActive, now, adminID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update admin profile",
			zap.String("admin_id", adminID),
			zap.Error(err))
		return fmt.Errorf("failed to update admin profile: %w", err)
	}

	return nil
}

// Deactivate flips is_active off and stamps who demoted the account. The
// row is kept for the audit trail; demoted admins are never deleted.
func (r *adminRepository) Deactivate(adminID, demotedBy string) error {
	now := time.Now().UTC()

	query := r.client.Prepared.DeactivateAdmin.Bind(false, demotedBy, now, now, adminID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to deactivate admin",
			zap.String("admin_id", adminID),
			zap.String("demoted_by", demotedBy),
			zap.Error(err))
		return fmt.Errorf("failed to deactivate admin: %w", err)
	}

	util.Info("Admin deactivated",
		zap.String("admin_id", adminID),
		zap.String("demoted_by", demotedBy))

	return nil
}

func (r *adminRepository) RecordLogin(adminID string, at time.Time, loginCount int) error {
	query := r.client.Prepared.RecordAdminLogin.Bind(at, loginCount, at, adminID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to record admin login",
			zap.String("admin_id", adminID),
			zap.Error(err))
		return fmt.Errorf("failed to record admin login: %w", err)
	}

	return nil
}

// nullableTime converts Cassandra's zero timestamp for unset columns back
// to a nil pointer.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func permissionStrings(perms []models.AdminPermission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func parsePermissions(raw []string) []models.AdminPermission {
	out := make([]models.AdminPermission, len(raw))
	for i, p := range raw {
		out[i] = models.AdminPermission(p)
	}
	return out
}
