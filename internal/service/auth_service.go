package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// AuthService authenticates the single configured admin principal.
type AuthService struct {
	admin    *auth.AdminCredentials
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service. When only a plaintext admin password is
// configured it is hashed once at startup.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager) (*AuthService, error) {
	admin, err := auth.NewAdminCredentials(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{admin: admin, tokenMgr: tokens}, nil
}

// LoginAdmin verifies credentials and returns a signed admin token.
func (s *AuthService) LoginAdmin(_ context.Context, email, password string) (string, time.Time, error) {
	if err := s.admin.Verify(email, password); err != nil {
		if errors.Is(err, auth.ErrAdminDisabled) {
			return "", time.Time{}, errorutil.NewUnauthorized("admin login disabled")
		}
		return "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}
	return s.tokenMgr.GenerateToken(s.admin.Email(), auth.RoleAdmin)
}
