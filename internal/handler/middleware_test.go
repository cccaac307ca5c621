package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-service/internal/models"
	"admin-service/internal/token"
)

func testIssuer() *token.Issuer {
	return token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
}

func protectedRouter(issuer *token.Issuer, perm models.AdminPermission) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(issuer))
		r.Use(RequirePermission(perm))
		r.Get("/guarded", func(w http.ResponseWriter, req *http.Request) {
			identity := IdentityFrom(req)
			respondWithJSON(w, http.StatusOK, successResponse(identity.Email, "ok"))
		})
	})
	return r
}

func credentialFor(t *testing.T, issuer *token.Issuer, role models.AdminRole) string {
	t.Helper()
	credential, err := issuer.Issue(&models.AdminUser{
		AdminID:     "adm-1",
		Email:       "ops@launchkart.com",
		Role:        role,
		Permissions: models.DefaultPermissions(role),
	})
	require.NoError(t, err)
	return credential
}

func TestRequireAuthMissingHeader(t *testing.T) {
	router := protectedRouter(testIssuer(), models.PermUserManagement)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	router := protectedRouter(testIssuer(), models.PermUserManagement)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthInvalidCredential(t *testing.T) {
	router := protectedRouter(testIssuer(), models.PermUserManagement)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer not-a-credential")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthExpiredCredential(t *testing.T) {
	issued := time.Now()
	issuer := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour).
		WithClock(func() time.Time { return issued })

	credential := credentialFor(t, issuer, models.RoleAdmin)

	issuer.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	router := protectedRouter(issuer, models.PermUserManagement)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+credential)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionDenied(t *testing.T) {
	issuer := testIssuer()

	// Support role lacks both of these.
	for _, perm := range []models.AdminPermission{
		models.PermAdminManagement,
		models.PermPaymentManagement,
	} {
		router := protectedRouter(issuer, perm)
		credential := credentialFor(t, issuer, models.RoleSupport)

		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		req.Header.Set("Authorization", "Bearer "+credential)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "permission %s", perm)
	}
}

func TestRequirePermissionGranted(t *testing.T) {
	issuer := testIssuer()
	router := protectedRouter(issuer, models.PermAdminManagement)

	credential := credentialFor(t, issuer, models.RoleSuperAdmin)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+credential)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ops@launchkart.com")
}

func TestGetStatusCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{models.ErrInvalidCode, http.StatusBadRequest},
		{models.ErrInvalidInput, http.StatusBadRequest},
		{models.ErrNoActiveChallenge, http.StatusBadRequest},
		{models.ErrExpiredCode, http.StatusBadRequest},
		{models.ErrExhausted, http.StatusBadRequest},
		{models.ErrNotEligible, http.StatusBadRequest},
		{models.ErrAlreadyAdmin, http.StatusBadRequest},
		{token.ErrInvalidCredential, http.StatusUnauthorized},
		{token.ErrExpiredCredential, http.StatusUnauthorized},
		{models.ErrPermissionDenied, http.StatusForbidden},
		{models.ErrSelfDemotion, http.StatusForbidden},
		{models.ErrUnknownAdmin, http.StatusNotFound},
		{models.ErrAdminNotFound, http.StatusNotFound},
		{models.ErrUserNotFound, http.StatusNotFound},
		{models.ErrRateLimited, http.StatusTooManyRequests},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, getStatusCode(tt.err), "error %v", tt.err)
	}
}
