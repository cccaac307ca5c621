package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-service/internal/models"
	"admin-service/internal/token"
)

// Full login-then-promote flow across both services, sharing one audit
// trail and one issuer.
func TestLoginAndPromoteScenario(t *testing.T) {
	ctx := context.Background()

	admins := newFakeAdminRepo()
	store := newFakeChallengeStore()
	notifier := newFakeNotifier()
	auditRepo := &fakeAuditRepo{}
	audit := NewAuditService(auditRepo, nil)
	issuer := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), 24*time.Hour)

	authSvc := NewAuthService(admins, store, testHasher(), issuer, notifier, audit, testOTPConfig())
	adminSvc := NewAdminService(admins, newFakeUserRepo(verifiedUser("u-b", "b@x.com")),
		&fakeUserSearch{}, auditRepo, audit, notifier)

	seed := &models.AdminUser{
		Email:       "a@x.com",
		FullName:    "Admin A",
		Role:        models.RoleSuperAdmin,
		Permissions: models.DefaultPermissions(models.RoleSuperAdmin),
		IsActive:    true,
	}
	require.NoError(t, admins.Create(seed))

	require.NoError(t, authSvc.RequestOTP(ctx, "a@x.com"))
	code := notifier.waitOTP(t, "a@x.com")
	require.Len(t, code, 6)

	// Two wrong guesses burn attempts without locking the challenge.
	_, _, err := authSvc.VerifyOTP(ctx, "a@x.com", wrongCode(code))
	assert.ErrorIs(t, err, models.ErrInvalidCode)
	_, _, err = authSvc.VerifyOTP(ctx, "a@x.com", wrongCode(wrongCode(code)))
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	credential, _, err := authSvc.VerifyOTP(ctx, "a@x.com", code)
	require.NoError(t, err)

	identity, err := issuer.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", identity.Email)

	promoted, err := adminSvc.PromoteUser(ctx, identity, "u-b", models.RoleModerator, nil)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", promoted.Email)
	assert.Equal(t, models.RoleModerator, promoted.Role)

	entries := auditRepo.byAction(models.AuditActionPromote)
	require.Len(t, entries, 1)
	assert.Equal(t, "a@x.com", entries[0].ActorEmail)
	assert.Equal(t, promoted.AdminID, entries[0].ResourceID)
	assert.Equal(t, models.AuditOutcomeSuccess, entries[0].Outcome)
}
