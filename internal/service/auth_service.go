package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/metrics"
	"admin-service/internal/models"
	redisrepo "admin-service/internal/repository/redis"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

// ChallengeStore is the OTP challenge lifecycle as the auth service sees
// it. Backed by Redis in production, by a fake in tests.
type ChallengeStore interface {
	Put(ctx context.Context, challenge *models.OTPChallenge) error
	Get(ctx context.Context, email string) (*models.OTPChallenge, error)
	Delete(ctx context.Context, email string) error
	IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error)
	MarkExhausted(ctx context.Context, email string, ttl time.Duration) error
	IsExhausted(ctx context.Context, email string) (bool, error)
	AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error)
}

// Notifier is the slice of the mailer the auth flow needs.
type Notifier interface {
	SendOTP(ctx context.Context, to, code string, expiry time.Duration) error
}

// AuthService implements passwordless admin login: a short-lived code is
// mailed to a known admin address, and a correct code within the attempt
// budget yields a signed session credential.
type AuthService struct {
	adminRepo  scylla.AdminRepository
	challenges ChallengeStore
	hasher     *hashing.Hasher
	issuer     *token.Issuer
	notifier   Notifier
	audit      *AuditService
	otpConfig  config.OTPConfig
	now        func() time.Time
}

func NewAuthService(
	adminRepo scylla.AdminRepository,
	challenges ChallengeStore,
	hasher *hashing.Hasher,
	issuer *token.Issuer,
	notifier Notifier,
	audit *AuditService,
	otpConfig config.OTPConfig,
) *AuthService {
	return &AuthService{
		adminRepo:  adminRepo,
		challenges: challenges,
		hasher:     hasher,
		issuer:     issuer,
		notifier:   notifier,
		audit:      audit,
		otpConfig:  otpConfig,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Used by tests to age challenges.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RequestOTP issues a fresh one-time code for an active admin account and
// emails it. Issuing again replaces any outstanding challenge and resets
// its attempt budget.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return err
	}

	admin, err := s.lookupActiveAdmin(email)
	if err != nil {
		return err
	}

	if s.otpConfig.Cooldown > 0 {
		ok, err := s.challenges.AcquireCooldown(ctx, email, s.otpConfig.Cooldown)
		if err != nil {
			return err
		}
		if !ok {
			util.Warn("OTP request rate limited", zap.String("email", email))
			return models.ErrRateLimited
		}
	}

	code, err := generateCode(s.otpConfig.CodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hashed, err := s.hasher.HashCode(code)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	now := s.now().UTC()
	challenge := &models.OTPChallenge{
		Email:         email,
		CodeHash:      hashed.Hash,
		CodeSalt:      hashed.Salt,
		HashAlgorithm: hashed.Algorithm,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.otpConfig.Expiry),
		MaxAttempts:   s.otpConfig.MaxAttempts,
	}

	if err := s.challenges.Put(ctx, challenge); err != nil {
		return err
	}

	// Delivery never blocks the response. A lost email leaves a valid
	// challenge behind; the admin requests a new code.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.SendOTP(sendCtx, email, code, s.otpConfig.Expiry); err != nil {
			util.Warn("Failed to deliver code",
				zap.String("email", email),
				zap.Error(err))
		}
	}()

	metrics.OTPIssued.Inc()
	util.Info("OTP issued",
		zap.String("email", email),
		zap.String("admin_id", admin.AdminID),
		zap.Time("expires_at", challenge.ExpiresAt))

	return nil
}

// VerifyOTP checks a submitted code against the outstanding challenge.
// On success the challenge is consumed, login bookkeeping is updated, and
// a signed session credential is returned.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, *models.AdminUser, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}

	admin, err := s.lookupActiveAdmin(email)
	if err != nil {
		return "", nil, err
	}

	exhausted, err := s.challenges.IsExhausted(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if exhausted {
		s.recordLoginFailure(ctx, email, "attempts exhausted")
		metrics.OTPVerifications.WithLabelValues("exhausted").Inc()
		return "", nil, models.ErrExhausted
	}

	challenge, err := s.challenges.Get(ctx, email)
	if err != nil {
		if errors.Is(err, redisrepo.ErrChallengeNotFound) {
			metrics.OTPVerifications.WithLabelValues("no_challenge").Inc()
			return "", nil, models.ErrNoActiveChallenge
		}
		return "", nil, err
	}

	now := s.now().UTC()
	if challenge.Expired(now) {
		_ = s.challenges.Delete(ctx, email)
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return "", nil, models.ErrExpiredCode
	}

	ok, err := s.hasher.VerifyCode(code, challenge.CodeHash, challenge.CodeSalt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to verify code: %w", err)
	}

	if !ok {
		remaining := challenge.ExpiresAt.Sub(now)
		attempts, err := s.challenges.IncrementAttempts(ctx, email, remaining)
		if err != nil {
			return "", nil, err
		}

		if attempts >= challenge.MaxAttempts {
			// The lock holds until the challenge would have expired, so a
			// brute-forced final guess buys nothing.
			if err := s.challenges.MarkExhausted(ctx, email, remaining); err != nil {
				return "", nil, err
			}
			_ = s.challenges.Delete(ctx, email)
			s.recordLoginFailure(ctx, email, "attempts exhausted")
			metrics.OTPVerifications.WithLabelValues("exhausted").Inc()
			return "", nil, models.ErrExhausted
		}

		s.recordLoginFailure(ctx, email, fmt.Sprintf("invalid code, attempt %d of %d", attempts, challenge.MaxAttempts))
		metrics.OTPVerifications.WithLabelValues("invalid").Inc()
		return "", nil, models.ErrInvalidCode
	}

	if err := s.challenges.Delete(ctx, email); err != nil {
		util.Warn("Failed to delete consumed challenge",
			zap.String("email", email),
			zap.Error(err))
	}

	loginAt := now
	admin.LastLogin = &loginAt
	admin.LoginCount++
	if err := s.adminRepo.RecordLogin(admin.AdminID, loginAt, admin.LoginCount); err != nil {
		util.Warn("Failed to record admin login",
			zap.String("admin_id", admin.AdminID),
			zap.Error(err))
	}

	credential, err := s.issuer.Issue(admin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session credential: %w", err)
	}

	s.audit.Record(ctx, email, models.AuditActionLogin, models.AuditResourceSession,
		admin.AdminID, models.AuditOutcomeSuccess, "otp login")
	metrics.OTPVerifications.WithLabelValues("success").Inc()

	util.Info("Admin logged in",
		zap.String("email", email),
		zap.String("admin_id", admin.AdminID),
		zap.String("role", string(admin.Role)))

	return credential, admin, nil
}

// Profile returns the current stored profile for an authenticated admin.
// Unlike the token snapshot, this reflects role or status changes made
// since login; a deactivated admin is rejected here.
func (s *AuthService) Profile(ctx context.Context, identity *token.Identity) (*models.AdminProfile, error) {
	admin, err := s.adminRepo.GetByID(identity.AdminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, models.ErrPermissionDenied
	}
	return admin.Profile(), nil
}

func (s *AuthService) normalizeEmail(email string) (string, error) {
	email = util.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") || util.ContainsSuspicious(email) {
		return "", models.ErrInvalidInput
	}
	return email, nil
}

// lookupActiveAdmin resolves email to an active admin account. Missing
// and deactivated accounts are indistinguishable to the caller.
func (s *AuthService) lookupActiveAdmin(email string) (*models.AdminUser, error) {
	admin, err := s.adminRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			return nil, models.ErrUnknownAdmin
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, models.ErrUnknownAdmin
	}
	return admin, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email, detail string) {
	s.audit.Record(ctx, email, models.AuditActionLogin, models.AuditResourceSession,
		"", models.AuditOutcomeFailure, detail)
}

// generateCode draws a uniform random numeric code of the given length.
// Leading zeros are valid, so the code space is exactly 10^length.
func generateCode(length int) (string, error) {
	max := big.NewInt(10)
	var sb strings.Builder
	for i := 0; i < length; i++ {
		digit, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteString(digit.String())
	}
	return sb.String(), nil
}
