// Package policy holds the role checks applied before any mutation. The
// functions are pure: they look only at the actor and the target ids.
package policy

import (
	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/models"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    uint
	Email string
	Role  models.Role
}

func (a Actor) IsOwner() bool { return a.Role == models.RoleOwner }

// RequireAdmin allows admins and owners.
func RequireAdmin(a Actor) error {
	if a.Role == models.RoleAdmin || a.Role == models.RoleOwner {
		return nil
	}
	return apperr.Forbidden("administrator role required")
}

func RequireOwner(a Actor) error {
	if a.IsOwner() {
		return nil
	}
	return apperr.Forbidden("owner role required")
}

func RequireOwnerOrSelf(a Actor, targetUserID uint) error {
	if a.IsOwner() || a.ID == targetUserID {
		return nil
	}
	return apperr.Forbidden("you can only manage your own account")
}

// CanMutateProduct reports whether the actor may edit or delete a product
// owned by productOwnerID. Owners may mutate anything; admins only their own
// products. A product with no owner is owner-role only.
func CanMutateProduct(role models.Role, actorID uint, productOwnerID *uint) bool {
	switch role {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return productOwnerID != nil && *productOwnerID == actorID
	default:
		return false
	}
}

// RequireProductMutation is CanMutateProduct as an error.
func RequireProductMutation(a Actor, productOwnerID *uint) error {
	if CanMutateProduct(a.Role, a.ID, productOwnerID) {
		return nil
	}
	return apperr.Forbidden("you do not have permission to modify this product")
}
