package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "books.example.net"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()
	token, expiresAt, err := svc.IssueToken("admin-1", "mouse", models.RoleAdmin, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "mouse", claims.Username)
	assert.True(t, claims.Can(models.CapabilityEditInstanceSettings))
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "books.example.net"})
	token, _, err := other.IssueToken("admin-1", "mouse", models.RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "elsewhere.example"})
	token, _, err = wrongIssuer.IssueToken("admin-1", "mouse", models.RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredTokens(t *testing.T) {
	svc := newTestAuthService()
	claims := &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "books.example.net",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsUnknownRoles(t *testing.T) {
	svc := newTestAuthService()
	_, _, err := svc.IssueToken("u", "u", models.UserRole("root"), 0)
	require.Error(t, err)

	claims := &models.JWTClaims{UserID: "u", Role: "root", RegisteredClaims: jwt.RegisteredClaims{Issuer: "books.example.net"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceConfirmationTokens(t *testing.T) {
	svc := newTestAuthService()
	token, err := svc.IssueConfirmationToken("reader@example.net")
	require.NoError(t, err)

	email, err := svc.ValidateConfirmationToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.net", email)

	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized), "a confirmation token is not an access token")

	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "books.example.net"})
	forged, err := other.IssueConfirmationToken("reader@example.net")
	require.NoError(t, err)
	_, err = svc.ValidateConfirmationToken(forged)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceCSRFTokens(t *testing.T) {
	svc := newTestAuthService()
	token, err := svc.IssueCSRFToken("admin-1")
	require.NoError(t, err)

	require.NoError(t, svc.ValidateCSRFToken(token, "admin-1"))
	assert.True(t, appErrors.Is(svc.ValidateCSRFToken(token, "admin-2"), appErrors.ErrForbidden))
	assert.True(t, appErrors.Is(svc.ValidateCSRFToken("garbage", "admin-1"), appErrors.ErrForbidden))

	confirmation, err := svc.IssueConfirmationToken("admin-1")
	require.NoError(t, err)
	assert.Error(t, svc.ValidateCSRFToken(confirmation, "admin-1"))

	access, _, err := svc.IssueToken("admin-1", "mouse", models.RoleAdmin, 0)
	require.NoError(t, err)
	assert.Error(t, svc.ValidateCSRFToken(access, "admin-1"))
}
