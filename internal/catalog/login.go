package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

const badCredentials = "invalid credentials"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionUser struct {
	ID    uint        `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"nombre,omitempty"`
	Role  models.Role `json:"rol"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// Login checks credentials and issues a token. Unknown emails, wrong
// passwords and disabled accounts all fail the same way.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var errs problems
	email := store.NormalizeEmail(req.Email)
	if !validEmail(email) {
		errs.add("email", "must be a valid email address")
	}
	if strings.TrimSpace(req.Password) == "" {
		errs.add("password", "is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("login for unknown email", zap.String("email", email))
		return nil, apperr.Unauthenticated(badCredentials)
	}
	if err != nil {
		return nil, storeErr(err, badCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Debug("login with wrong password", zap.Uint("user_id", u.ID))
		return nil, apperr.Unauthenticated(badCredentials)
	}
	if !u.Active {
		s.log.Info("login to disabled account", zap.Uint("user_id", u.ID))
		return nil, apperr.Unauthenticated(badCredentials)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal error", err)
	}
	return &LoginResult{
		Token: token,
		User:  SessionUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	}, nil
}
