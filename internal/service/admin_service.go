package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"admin-service/internal/models"
	"admin-service/internal/repository/clickhouse"
	"admin-service/internal/repository/elastic"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

// AccountNotifier is the slice of the mailer the admin lifecycle needs.
type AccountNotifier interface {
	SendPromotionNotice(ctx context.Context, to, fullName, role string) error
	SendDemotionNotice(ctx context.Context, to, fullName string) error
}

// AdminUpdateRequest carries the mutable admin fields. Nil means leave
// the field alone. Permissions accompanies a role change to override the
// role's defaults, or stands alone to reshape the current set.
type AdminUpdateRequest struct {
	FullName    *string                  `json:"full_name,omitempty"`
	IsActive    *bool                    `json:"is_active,omitempty"`
	Role        *models.AdminRole        `json:"role,omitempty"`
	Permissions []models.AdminPermission `json:"permissions,omitempty"`
}

// DashboardStats is the admin console overview, assembled from the
// account store, the user index, and the audit warehouse.
type DashboardStats struct {
	TotalAdmins      int                     `json:"total_admins"`
	ActiveAdmins     int                     `json:"active_admins"`
	AdminsByRole     map[string]int          `json:"admins_by_role"`
	TotalUsers       int64                   `json:"total_users"`
	EligibleUsers    int64                   `json:"eligible_users"`
	AuditEventsToday uint64                  `json:"audit_events_today"`
	RecentActions    []*models.AuditLogEntry `json:"recent_actions"`
}

// AdminService manages the admin roster: promotion of platform users,
// demotion, profile updates, and the console dashboard. Every mutation
// takes the acting identity and lands in the audit log.
type AdminService struct {
	adminRepo  scylla.AdminRepository
	userRepo   scylla.UserRepository
	userSearch elastic.UserSearch
	auditRepo  clickhouse.AuditRepository
	audit      *AuditService
	notifier   AccountNotifier
	now        func() time.Time
}

func NewAdminService(
	adminRepo scylla.AdminRepository,
	userRepo scylla.UserRepository,
	userSearch elastic.UserSearch,
	auditRepo clickhouse.AuditRepository,
	audit *AuditService,
	notifier AccountNotifier,
) *AdminService {
	return &AdminService{
		adminRepo:  adminRepo,
		userRepo:   userRepo,
		userSearch: userSearch,
		auditRepo:  auditRepo,
		audit:      audit,
		notifier:   notifier,
		now:        time.Now,
	}
}

// EligibleUsers returns promotion candidates matching term. Only
// KYC-verified, unbanned accounts are returned.
func (s *AdminService) EligibleUsers(ctx context.Context, term string, limit int) ([]*models.PlatformUser, error) {
	term = strings.TrimSpace(term)
	if util.ContainsSuspicious(term) {
		return nil, models.ErrInvalidInput
	}
	return s.userSearch.SearchEligible(ctx, term, limit)
}

// PromoteUser turns an eligible platform user into an admin with the
// given role. The permission set is the explicit list when provided,
// otherwise the role's defaults. Re-promoting a previously demoted admin
// reactivates the existing account.
func (s *AdminService) PromoteUser(ctx context.Context, actor *token.Identity, userID string, role models.AdminRole, permissions []models.AdminPermission) (*models.AdminUser, error) {
	if !actor.HasPermission(models.PermAdminManagement) {
		s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourcePlatformUser,
			userID, models.AuditOutcomeFailure, "permission denied")
		return nil, models.ErrPermissionDenied
	}

	if userID == "" || !models.ValidRole(role) {
		s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourcePlatformUser,
			userID, models.AuditOutcomeFailure, fmt.Sprintf("invalid role %q", role))
		return nil, models.ErrInvalidInput
	}

	grants, err := resolvePermissions(role, permissions)
	if err != nil {
		s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourcePlatformUser,
			userID, models.AuditOutcomeFailure, "invalid permission list")
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourcePlatformUser,
				userID, models.AuditOutcomeFailure, "user not found")
		}
		return nil, err
	}

	if !user.Eligible() {
		s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourcePlatformUser,
			userID, models.AuditOutcomeFailure,
			fmt.Sprintf("not eligible: kyc_status=%s banned=%t", user.KYCStatus, user.IsBanned))
		return nil, models.ErrNotEligible
	}

	email := util.NormalizeEmail(user.Email)

	existing, err := s.adminRepo.GetByEmail(email)
	if err != nil && !errors.Is(err, models.ErrAdminNotFound) {
		return nil, err
	}

	var admin *models.AdminUser
	switch {
	case existing != nil && existing.IsActive:
		s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourceAdminUser,
			existing.AdminID, models.AuditOutcomeFailure, fmt.Sprintf("%s is already an admin", email))
		return nil, models.ErrAlreadyAdmin

	case existing != nil:
		// Reactivation keeps the admin_id so the audit history stays
		// attached to one account.
		if err := s.adminRepo.UpdateRole(existing.AdminID, role, grants); err != nil {
			return nil, err
		}
		if err := s.adminRepo.UpdateProfile(existing.AdminID, user.FullName, true); err != nil {
			return nil, err
		}
		admin, err = s.adminRepo.GetByID(existing.AdminID)
		if err != nil {
			return nil, err
		}

	default:
		admin = &models.AdminUser{
			Email:       email,
			FullName:    user.FullName,
			Role:        role,
			Permissions: grants,
			IsActive:    true,
			CreatedBy:   actor.Email,
		}
		if err := s.adminRepo.Create(admin); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor.Email, models.AuditActionPromote, models.AuditResourceAdminUser,
		admin.AdminID, models.AuditOutcomeSuccess,
		fmt.Sprintf("promoted %s to %s", email, role))

	s.notifyBestEffort(func(ctx context.Context) error {
		return s.notifier.SendPromotionNotice(ctx, email, admin.FullName, string(role))
	})

	util.Info("User promoted to admin",
		zap.String("actor", actor.Email),
		zap.String("admin_id", admin.AdminID),
		zap.String("email", email),
		zap.String("role", string(role)))

	return admin, nil
}

// DemoteAdmin deactivates an admin account. The row is kept; demoted
// admins stay visible in listings and the audit trail.
func (s *AdminService) DemoteAdmin(ctx context.Context, actor *token.Identity, adminID string) error {
	if !actor.HasPermission(models.PermAdminManagement) {
		s.audit.Record(ctx, actor.Email, models.AuditActionDemote, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "permission denied")
		return models.ErrPermissionDenied
	}

	if adminID == actor.AdminID {
		s.audit.Record(ctx, actor.Email, models.AuditActionDemote, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "self-demotion attempt")
		return models.ErrSelfDemotion
	}

	target, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			s.audit.Record(ctx, actor.Email, models.AuditActionDemote, models.AuditResourceAdminUser,
				adminID, models.AuditOutcomeFailure, "admin not found")
		}
		return err
	}
	if !target.IsActive {
		s.audit.Record(ctx, actor.Email, models.AuditActionDemote, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "already demoted")
		return models.ErrAdminNotFound
	}

	if err := s.adminRepo.Deactivate(adminID, actor.Email); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Email, models.AuditActionDemote, models.AuditResourceAdminUser,
		adminID, models.AuditOutcomeSuccess,
		fmt.Sprintf("demoted %s", target.Email))

	s.notifyBestEffort(func(ctx context.Context) error {
		return s.notifier.SendDemotionNotice(ctx, target.Email, target.FullName)
	})

	util.Info("Admin demoted",
		zap.String("actor", actor.Email),
		zap.String("admin_id", adminID),
		zap.String("email", target.Email))

	return nil
}

// UpdateAdmin applies a partial update to an admin account. A role change
// resets the permission set to the new role's defaults.
func (s *AdminService) UpdateAdmin(ctx context.Context, actor *token.Identity, adminID string, req *AdminUpdateRequest) (*models.AdminUser, error) {
	if !actor.HasPermission(models.PermAdminManagement) {
		s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "permission denied")
		return nil, models.ErrPermissionDenied
	}

	if err := validateUpdateRequest(req); err != nil {
		s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "invalid update request")
		return nil, err
	}

	// Deactivating yourself is demotion by another name.
	if req.IsActive != nil && !*req.IsActive && adminID == actor.AdminID {
		s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
			adminID, models.AuditOutcomeFailure, "self-deactivation attempt")
		return nil, models.ErrSelfDemotion
	}

	target, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
				adminID, models.AuditOutcomeFailure, "admin not found")
		}
		return nil, err
	}

	var changes []string

	switch {
	case req.Role != nil && *req.Role != target.Role:
		// A role change resets permissions to the new role's defaults
		// unless an explicit set accompanies it.
		grants, err := resolvePermissions(*req.Role, req.Permissions)
		if err != nil {
			return nil, err
		}
		if err := s.adminRepo.UpdateRole(adminID, *req.Role, grants); err != nil {
			return nil, err
		}
		changes = append(changes, fmt.Sprintf("role %s->%s", target.Role, *req.Role))

	case req.Permissions != nil:
		if err := s.adminRepo.UpdateRole(adminID, target.Role, req.Permissions); err != nil {
			return nil, err
		}
		changes = append(changes, "permissions")
	}

	fullName := target.FullName
	if req.FullName != nil && *req.FullName != target.FullName {
		fullName = strings.TrimSpace(*req.FullName)
		if fullName == "" || util.ContainsSuspicious(fullName) {
			s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
				adminID, models.AuditOutcomeFailure, "invalid full name")
			return nil, models.ErrInvalidInput
		}
		changes = append(changes, "full_name")
	}

	isActive := target.IsActive
	if req.IsActive != nil && *req.IsActive != target.IsActive {
		isActive = *req.IsActive
		changes = append(changes, fmt.Sprintf("is_active=%t", isActive))
	}

	if fullName != target.FullName || isActive != target.IsActive {
		if err := s.adminRepo.UpdateProfile(adminID, fullName, isActive); err != nil {
			return nil, err
		}
	}

	if len(changes) == 0 {
		return target, nil
	}

	s.audit.Record(ctx, actor.Email, models.AuditActionUpdate, models.AuditResourceAdminUser,
		adminID, models.AuditOutcomeSuccess, strings.Join(changes, ", "))

	return s.adminRepo.GetByID(adminID)
}

// ListAdmins returns all admin accounts, active and demoted.
func (s *AdminService) ListAdmins(ctx context.Context) ([]*models.AdminUser, error) {
	return s.adminRepo.List()
}

// Dashboard gathers the console overview. The three backends are queried
// in parallel; any one failing fails the whole request.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		AdminsByRole: make(map[string]int),
	}

	midnight := s.now().UTC().Truncate(24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		admins, err := s.adminRepo.List()
		if err != nil {
			return err
		}
		stats.TotalAdmins = len(admins)
		for _, a := range admins {
			if a.IsActive {
				stats.ActiveAdmins++
				stats.AdminsByRole[string(a.Role)]++
			}
		}
		return nil
	})

	g.Go(func() error {
		total, err := s.userSearch.CountUsers(gctx)
		if err != nil {
			return err
		}
		stats.TotalUsers = total

		eligible, err := s.userSearch.CountEligible(gctx)
		if err != nil {
			return err
		}
		stats.EligibleUsers = eligible
		return nil
	})

	g.Go(func() error {
		count, err := s.auditRepo.CountSince(gctx, midnight)
		if err != nil {
			return err
		}
		stats.AuditEventsToday = count

		recent, err := s.auditRepo.Query(gctx, models.AuditQuery{Limit: 10})
		if err != nil {
			return err
		}
		stats.RecentActions = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble dashboard: %w", err)
	}

	return stats, nil
}

// validateUpdateRequest rejects empty updates and unknown roles or
// permissions before anything is touched.
func validateUpdateRequest(req *AdminUpdateRequest) error {
	if req.FullName == nil && req.IsActive == nil && req.Role == nil && req.Permissions == nil {
		return models.ErrInvalidInput
	}
	if req.Role != nil && !models.ValidRole(*req.Role) {
		return models.ErrInvalidInput
	}
	for _, perm := range req.Permissions {
		if !models.ValidPermission(perm) {
			return models.ErrInvalidInput
		}
	}
	return nil
}

// resolvePermissions picks the explicit grant list when one is given,
// falling back to the role's defaults.
func resolvePermissions(role models.AdminRole, explicit []models.AdminPermission) ([]models.AdminPermission, error) {
	if len(explicit) == 0 {
		return models.DefaultPermissions(role), nil
	}
	for _, perm := range explicit {
		if !models.ValidPermission(perm) {
			return nil, models.ErrInvalidInput
		}
	}
	return append([]models.AdminPermission(nil), explicit...), nil
}

// notifyBestEffort delivers an account email without blocking the caller.
// Delivery failures are logged and dropped.
func (s *AdminService) notifyBestEffort(send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := send(ctx); err != nil {
			util.Warn("Account notification failed", zap.Error(err))
		}
	}()
}
