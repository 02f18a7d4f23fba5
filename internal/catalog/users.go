package catalog

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/events"
	"github.com/petermazzocco/go-catalog-api/internal/policy"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

const userNotFound = "user not found"

// CreateUserRequest creates an administrative user. A rol field, if sent,
// is ignored.
type CreateUserRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"nombre"`
	Phone    *string `json:"telefono"`
}

// UpdateUserRequest is a partial update. Telefono may be null to clear it.
type UpdateUserRequest struct {
	Name     *string         `json:"nombre"`
	Phone    json.RawMessage `json:"telefono"`
	Active   *bool           `json:"activo"`
	Password *string         `json:"password"`
}

// AdminSeed holds the credentials of the account created on first boot.
type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "internal error", err)
	}
	return string(b), nil
}

func (s *Service) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if err := policy.RequireOwner(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, actor policy.Actor, id uint) (*models.User, error) {
	if err := policy.RequireOwnerOrSelf(actor, id); err != nil {
		return nil, err
	}
	u, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	return u, nil
}

func (s *Service) CreateUser(ctx context.Context, actor policy.Actor, req CreateUserRequest) (*models.User, error) {
	if err := policy.RequireOwner(actor); err != nil {
		return nil, err
	}

	var errs problems
	email := store.NormalizeEmail(req.Email)
	if !validEmail(email) {
		errs.add("email", "must be a valid email address")
	}
	if !strongPassword(req.Password) {
		errs.add("password", "must be at least 8 characters with upper case, lower case and a digit")
	}
	name := strings.TrimSpace(req.Name)
	if !validUserName(name) {
		errs.add("nombre", "must be between 2 and 100 characters")
	}
	var phone *string
	if p := trimmed(req.Phone); p != "" {
		if !validPhone(p) {
			errs.add("telefono", "must be 10 to 15 digits")
		}
		phone = &p
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        phone,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, storeErr(err, userNotFound)
	}
	s.publish(ctx, events.UserCreated, map[string]any{"user_id": u.ID, "actor_id": actor.ID})
	return u, nil
}

// UpdateUser applies a partial update. Users may change their own name,
// phone and password; only the owner may change the active flag, and
// never on another owner.
func (s *Service) UpdateUser(ctx context.Context, actor policy.Actor, id uint, req UpdateUserRequest) (*models.User, error) {
	if err := policy.RequireOwnerOrSelf(actor, id); err != nil {
		return nil, err
	}
	target, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	if target.Role == models.RoleOwner && target.ID != actor.ID {
		return nil, apperr.Forbidden("cannot modify another owner")
	}

	var (
		patch store.UserPatch
		errs  problems
	)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !validUserName(name) {
			errs.add("nombre", "must be between 2 and 100 characters")
		}
		patch.Name = store.Some(name)
	}
	if present(req.Phone) {
		var phone *string
		if !isNull(req.Phone) {
			p, ok := parseString(req.Phone)
			switch {
			case !ok:
				errs.add("telefono", "must be a string")
			case p == "":
			case !validPhone(p):
				errs.add("telefono", "must be 10 to 15 digits")
			default:
				phone = &p
			}
		}
		patch.Phone = store.Some(phone)
	}
	if req.Active != nil && actor.IsOwner() {
		patch.Active = store.Some(*req.Active)
	}
	if req.Password != nil {
		if !strongPassword(*req.Password) {
			errs.add("password", "must be at least 8 characters with upper case, lower case and a digit")
		} else {
			hash, err := hashPassword(*req.Password)
			if err != nil {
				return nil, err
			}
			patch.PasswordHash = store.Some(hash)
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.Invalid("no fields to update")
	}

	u, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	return u, nil
}

// DeleteUser removes an admin user and applies the orphan policy to the
// products they owned.
func (s *Service) DeleteUser(ctx context.Context, actor policy.Actor, id uint) error {
	if err := policy.RequireOwner(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperr.Invalid("you cannot delete your own user")
	}
	target, err := s.users.ByID(ctx, id)
	if err != nil {
		return storeErr(err, userNotFound)
	}
	if target.Role == models.RoleOwner {
		return apperr.Forbidden("owner accounts cannot be deleted")
	}
	if err := s.users.Delete(ctx, id, s.opts.Orphans); err != nil {
		return storeErr(err, userNotFound)
	}
	s.publish(ctx, events.UserDeleted, map[string]any{
		"user_id":  id,
		"actor_id": actor.ID,
		"orphans":  string(s.opts.Orphans),
	})
	return nil
}

// Bootstrap creates the seed owner when no owner or admin exists. It is
// safe to call on every start.
func (s *Service) Bootstrap(ctx context.Context, seed AdminSeed) (bool, error) {
	hash, err := hashPassword(seed.Password)
	if err != nil {
		return false, err
	}
	created, err := s.users.Bootstrap(ctx, models.User{
		Email:        seed.Email,
		PasswordHash: hash,
		Name:         seed.Name,
		Role:         models.RoleOwner,
		Active:       true,
	})
	if err != nil {
		return false, storeErr(err, userNotFound)
	}
	if created {
		s.log.Info("seed owner created", zap.String("email", store.NormalizeEmail(seed.Email)))
	}
	return created, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
