package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/models"
	"admin-service/internal/token"
)

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		CodeLength:  6,
		Expiry:      10 * time.Minute,
		MaxAttempts: 3,
		Cooldown:    0,
		Pepper:      "test-pepper",
	}
}

func testHasher() *hashing.Hasher {
	return hashing.NewHasher(hashing.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}, "test-pepper")
}

type authFixture struct {
	service   *AuthService
	admins    *fakeAdminRepo
	store     *fakeChallengeStore
	notifier  *fakeNotifier
	auditRepo *fakeAuditRepo
	issuer    *token.Issuer
}

func newAuthFixture(t *testing.T, cfg config.OTPConfig) *authFixture {
	t.Helper()

	admins := newFakeAdminRepo()
	store := newFakeChallengeStore()
	notifier := newFakeNotifier()
	auditRepo := &fakeAuditRepo{}
	issuer := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), 24*time.Hour)

	svc := NewAuthService(
		admins, store, testHasher(), issuer, notifier,
		NewAuditService(auditRepo, nil), cfg,
	)

	return &authFixture{
		service:   svc,
		admins:    admins,
		store:     store,
		notifier:  notifier,
		auditRepo: auditRepo,
		issuer:    issuer,
	}
}

func (f *authFixture) seedAdmin(email string, role models.AdminRole, active bool) *models.AdminUser {
	admin := &models.AdminUser{
		Email:       email,
		FullName:    "Seed Admin",
		Role:        role,
		Permissions: models.DefaultPermissions(role),
		IsActive:    active,
	}
	_ = f.admins.Create(admin)
	return admin
}

func TestRequestOTPUnknownEmail(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())

	err := f.service.RequestOTP(context.Background(), "nobody@launchkart.com")
	assert.ErrorIs(t, err, models.ErrUnknownAdmin)
	assert.Empty(t, f.notifier.lastCode("nobody@launchkart.com"))
}

func TestRequestOTPDeactivatedAdmin(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("gone@launchkart.com", models.RoleAdmin, false)

	err := f.service.RequestOTP(context.Background(), "gone@launchkart.com")
	assert.ErrorIs(t, err, models.ErrUnknownAdmin)
}

func TestRequestOTPDeliversCode(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)

	err := f.service.RequestOTP(context.Background(), "OPS@launchkart.com ")
	require.NoError(t, err)

	code := f.notifier.waitOTP(t, "ops@launchkart.com")
	require.Len(t, code, 6)

	// Stored challenge holds only the hash, never the code.
	challenge, err := f.store.Get(context.Background(), "ops@launchkart.com")
	require.NoError(t, err)
	assert.NotContains(t, challenge.CodeHash, code)
	assert.Equal(t, 3, challenge.MaxAttempts)
}

func TestRequestOTPSurvivesDeliveryFailure(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	f.notifier.sendErr = errors.New("smtp down")

	// A dead mailer degrades delivery, never the request.
	err := f.service.RequestOTP(context.Background(), "ops@launchkart.com")
	require.NoError(t, err)

	assert.Empty(t, f.notifier.waitOTP(t, "ops@launchkart.com"))

	// The challenge was still issued and is waiting for the code.
	_, err = f.store.Get(context.Background(), "ops@launchkart.com")
	require.NoError(t, err)
}

func TestRequestOTPCooldown(t *testing.T) {
	cfg := testOTPConfig()
	cfg.Cooldown = time.Minute
	f := newAuthFixture(t, cfg)
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)

	require.NoError(t, f.service.RequestOTP(context.Background(), "ops@launchkart.com"))

	err := f.service.RequestOTP(context.Background(), "ops@launchkart.com")
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestRequestOTPReplacesChallenge(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	ctx := context.Background()

	require.NoError(t, f.service.RequestOTP(ctx, "ops@launchkart.com"))
	firstCode := f.notifier.waitOTP(t, "ops@launchkart.com")

	// Burn an attempt, then reissue. The new challenge starts fresh.
	_, _, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", wrongCode(firstCode))
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	require.NoError(t, f.service.RequestOTP(ctx, "ops@launchkart.com"))
	secondCode := f.notifier.waitOTP(t, "ops@launchkart.com")

	// The replaced code no longer works.
	if firstCode != secondCode {
		_, _, err = f.service.VerifyOTP(ctx, "ops@launchkart.com", firstCode)
		assert.ErrorIs(t, err, models.ErrInvalidCode)
	}

	_, admin, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", secondCode)
	require.NoError(t, err)
	assert.Equal(t, "ops@launchkart.com", admin.Email)
}

func TestVerifyOTPNoChallenge(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)

	_, _, err := f.service.VerifyOTP(context.Background(), "ops@launchkart.com", "123456")
	assert.ErrorIs(t, err, models.ErrNoActiveChallenge)
}

func TestVerifyOTPWrongThenCorrect(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	seeded := f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	ctx := context.Background()

	require.NoError(t, f.service.RequestOTP(ctx, "ops@launchkart.com"))
	code := f.notifier.waitOTP(t, "ops@launchkart.com")

	// Two wrong guesses leave one attempt in the budget.
	for i := 0; i < 2; i++ {
		_, _, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", wrongCode(code))
		assert.ErrorIs(t, err, models.ErrInvalidCode)
	}

	credential, admin, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, credential)
	assert.Equal(t, seeded.AdminID, admin.AdminID)
	assert.Equal(t, 1, admin.LoginCount)
	require.NotNil(t, admin.LastLogin)

	identity, err := f.issuer.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, seeded.AdminID, identity.AdminID)

	// Challenge is consumed; replay fails.
	_, _, err = f.service.VerifyOTP(ctx, "ops@launchkart.com", code)
	assert.ErrorIs(t, err, models.ErrNoActiveChallenge)

	logins := f.auditRepo.byAction(models.AuditActionLogin)
	require.NotEmpty(t, logins)
	last := logins[len(logins)-1]
	assert.Equal(t, models.AuditOutcomeSuccess, last.Outcome)
	assert.Equal(t, "ops@launchkart.com", last.ActorEmail)
}

func TestVerifyOTPExhaustion(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	ctx := context.Background()

	require.NoError(t, f.service.RequestOTP(ctx, "ops@launchkart.com"))
	code := f.notifier.waitOTP(t, "ops@launchkart.com")

	for i := 0; i < 2; i++ {
		_, _, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", wrongCode(code))
		assert.ErrorIs(t, err, models.ErrInvalidCode)
	}

	// Third wrong guess exhausts the budget.
	_, _, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", wrongCode(code))
	assert.ErrorIs(t, err, models.ErrExhausted)

	// Even the correct code is now rejected.
	_, _, err = f.service.VerifyOTP(ctx, "ops@launchkart.com", code)
	assert.ErrorIs(t, err, models.ErrExhausted)
}

func TestVerifyOTPExpiry(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	ctx := context.Background()

	issued := time.Now()
	f.service.WithClock(func() time.Time { return issued })

	require.NoError(t, f.service.RequestOTP(ctx, "ops@launchkart.com"))
	code := f.notifier.waitOTP(t, "ops@launchkart.com")

	f.service.WithClock(func() time.Time { return issued.Add(11 * time.Minute) })

	_, _, err := f.service.VerifyOTP(ctx, "ops@launchkart.com", code)
	assert.ErrorIs(t, err, models.ErrExpiredCode)

	// The expired challenge is gone, not retryable.
	_, _, err = f.service.VerifyOTP(ctx, "ops@launchkart.com", code)
	assert.ErrorIs(t, err, models.ErrNoActiveChallenge)
}

func TestVerifyOTPInvalidEmail(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())

	_, _, err := f.service.VerifyOTP(context.Background(), "<script>", "123456")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestProfileReflectsCurrentState(t *testing.T) {
	f := newAuthFixture(t, testOTPConfig())
	seeded := f.seedAdmin("ops@launchkart.com", models.RoleAdmin, true)
	ctx := context.Background()

	identity := &token.Identity{AdminID: seeded.AdminID, Email: seeded.Email}

	profile, err := f.service.Profile(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)

	// Deactivation takes effect immediately, ignoring the token snapshot.
	require.NoError(t, f.admins.Deactivate(seeded.AdminID, "root@launchkart.com"))

	_, err = f.service.Profile(ctx, identity)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

// wrongCode returns a six digit code differing from code in every digit.
func wrongCode(code string) string {
	out := []byte(code)
	for i, c := range out {
		out[i] = '0' + (c-'0'+1)%10
	}
	return string(out)
}
