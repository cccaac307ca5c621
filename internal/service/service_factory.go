package service

import (
	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/notification"
	"admin-service/internal/repository/clickhouse"
	"admin-service/internal/repository/elastic"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	adminRepo  scylla.AdminRepository
	userRepo   scylla.UserRepository
	userSearch elastic.UserSearch
	auditRepo  clickhouse.AuditRepository
	challenges ChallengeStore
	hasher     *hashing.Hasher
	issuer     *token.Issuer
	notifier   notification.Notifier
	publisher  EventPublisher
	otpConfig  config.OTPConfig

	auditService *AuditService
	authService  *AuthService
	adminService *AdminService
}

func NewServiceFactory(
	adminRepo scylla.AdminRepository,
	userRepo scylla.UserRepository,
	userSearch elastic.UserSearch,
	auditRepo clickhouse.AuditRepository,
	challenges ChallengeStore,
	hasher *hashing.Hasher,
	issuer *token.Issuer,
	notifier notification.Notifier,
	publisher EventPublisher,
	otpConfig config.OTPConfig,
) *ServiceFactory {
	return &ServiceFactory{
		adminRepo:  adminRepo,
		userRepo:   userRepo,
		userSearch: userSearch,
		auditRepo:  auditRepo,
		challenges: challenges,
		hasher:     hasher,
		issuer:     issuer,
		notifier:   notifier,
		publisher:  publisher,
		otpConfig:  otpConfig,
	}
}

// AuditService returns the audit service instance (singleton)
func (f *ServiceFactory) AuditService() *AuditService {
	if f.auditService == nil {
		f.auditService = NewAuditService(f.auditRepo, f.publisher)
	}
	return f.auditService
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.adminRepo,
			f.challenges,
			f.hasher,
			f.issuer,
			f.notifier,
			f.AuditService(),
			f.otpConfig,
		)
	}
	return f.authService
}

// AdminService returns the admin service instance (singleton)
func (f *ServiceFactory) AdminService() *AdminService {
	if f.adminService == nil {
		f.adminService = NewAdminService(
			f.adminRepo,
			f.userRepo,
			f.userSearch,
			f.auditRepo,
			f.AuditService(),
			f.notifier,
		)
	}
	return f.adminService
}
