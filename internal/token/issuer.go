package token

import (
	"errors"
	"time"

	"admin-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredential = errors.New("invalid session credential")
	ErrExpiredCredential = errors.New("session credential expired")
)

const tokenType = "admin"

// Identity is the decoded, verified content of a session credential. It is
// passed explicitly to every privileged operation; nothing reads it from
// ambient state.
type Identity struct {
	AdminID     string
	Email       string
	FullName    string
	Role        models.AdminRole
	Permissions []models.AdminPermission
}

// HasPermission reports whether the identity's snapshot carries perm. The
// snapshot is taken at login; changes to the stored admin take effect on
// the next authentication.
func (i *Identity) HasPermission(perm models.AdminPermission) bool {
	return models.HasPermission(i.Permissions, perm)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email       string                   `json:"email"`
	FullName    string                   `json:"full_name"`
	Role        models.AdminRole         `json:"role"`
	Permissions []models.AdminPermission `json:"permissions"`
	TokenType   string                   `json:"typ"`
}

// Issuer mints and verifies signed session credentials. Verification needs
// only the shared secret, never a store lookup.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewIssuer(secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock overrides the issuer's clock. Used by tests to force expiry.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue builds a signed credential embedding the admin's identity, role,
// and a snapshot of its permission set.
func (i *Issuer) Issue(admin *models.AdminUser) (string, error) {
	now := i.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.AdminID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
		Email:       admin.Email,
		FullName:    admin.FullName,
		Role:        admin.Role,
		Permissions: admin.Permissions,
		TokenType:   tokenType,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature, expiry, and token type, and returns the
// embedded identity.
func (i *Issuer) Verify(tokenString string) (*Identity, error) {
	claims := &sessionClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidCredential
			}
			return i.secret, nil
		},
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}

	if !parsed.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidCredential
	}

	return &Identity{
		AdminID:     claims.Subject,
		Email:       claims.Email,
		FullName:    claims.FullName,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}
