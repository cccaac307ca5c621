package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-service/internal/models"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testAdmin() *models.AdminUser {
	return &models.AdminUser{
		AdminID:     "adm-1",
		Email:       "root@launchkart.com",
		FullName:    "Root Admin",
		Role:        models.RoleAdmin,
		Permissions: models.DefaultPermissions(models.RoleAdmin),
		IsActive:    true,
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	credential, err := issuer.Issue(testAdmin())
	require.NoError(t, err)
	require.NotEmpty(t, credential)

	identity, err := issuer.Verify(credential)
	require.NoError(t, err)

	assert.Equal(t, "adm-1", identity.AdminID)
	assert.Equal(t, "root@launchkart.com", identity.Email)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.True(t, identity.HasPermission(models.PermUserManagement))
	assert.False(t, identity.HasPermission(models.PermAdminManagement))
}

func TestVerifyRejectsTamperedCredential(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	credential, err := issuer.Issue(testAdmin())
	require.NoError(t, err)

	tampered := credential[:len(credential)-2] + "xx"
	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	credential, err := NewIssuer(testSecret, time.Hour).Issue(testAdmin())
	require.NoError(t, err)

	other := NewIssuer([]byte("another-secret-another-secret-xx"), time.Hour)
	_, err = other.Verify(credential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsExpiredCredential(t *testing.T) {
	issued := time.Now()
	issuer := NewIssuer(testSecret, time.Hour).WithClock(func() time.Time { return issued })

	credential, err := issuer.Issue(testAdmin())
	require.NoError(t, err)

	// Advance the clock past expiry.
	issuer.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })

	_, err = issuer.Verify(credential)
	assert.ErrorIs(t, err, ErrExpiredCredential)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	_, err := issuer.Verify("not-a-credential")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestIssuedCredentialSnapshotsPermissions(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	admin := testAdmin()
	credential, err := issuer.Issue(admin)
	require.NoError(t, err)

	// Changing the stored admin after issuance does not affect the token.
	admin.Permissions = nil

	identity, err := issuer.Verify(credential)
	require.NoError(t, err)
	assert.True(t, identity.HasPermission(models.PermUserManagement))
}
