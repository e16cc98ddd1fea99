package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("admin@example.com", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseTokenRejectsOtherSecretAndExpired(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("a@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("one", 5)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken("a@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = expired.ParseToken(old)
	assert.Error(t, err)
}

func TestAdminCredentialsFromPlainPassword(t *testing.T) {
	creds, err := NewAdminCredentials(" Admin@Example.com ", "", "s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", creds.Email())

	assert.NoError(t, creds.Verify("ADMIN@example.com", "s3cret"))
	assert.Error(t, creds.Verify("admin@example.com", "wrong"))
	assert.Error(t, creds.Verify("other@example.com", "s3cret"))
}

func TestAdminCredentialsFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	creds, err := NewAdminCredentials("admin@example.com", string(hash), "ignored", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, creds.Verify("admin@example.com", "hunter2"))
	assert.Error(t, creds.Verify("admin@example.com", "ignored"))
}

func TestAdminCredentialsDisabled(t *testing.T) {
	creds, err := NewAdminCredentials("admin@example.com", "", "", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, creds.Verify("admin@example.com", ""), ErrAdminDisabled)
}

func newProtectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.SendStatus(fe.Code)
		}
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tm)
	app.Get("/admin", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Email)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newProtectedApp(tm)

	adminToken, _, err := tm.GenerateToken("admin@example.com", RoleAdmin)
	require.NoError(t, err)
	otherToken, _, err := tm.GenerateToken("viewer@example.com", "viewer")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"non admin", "Bearer " + otherToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
