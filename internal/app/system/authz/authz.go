// internal/app/system/authz/authz.go
package authz

import (
	"errors"
	"net/http"

	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/normalize"
	"github.com/dalemusser/salesmake/internal/domain/models"
)

// ErrForbidden is returned when a role-gated action is attempted by a role
// that may not perform it. It is always surfaced to the user.
var ErrForbidden = errors.New("not permitted for this role")

// RequireAdmin returns ErrForbidden unless role is admin.
func RequireAdmin(role string) error {
	if normalize.Role(role) != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanCreateProjects reports whether role may create projects.
func CanCreateProjects(role string) bool {
	return normalize.Role(role) == models.RoleAdmin
}

// CanManageUsers reports whether role may invite, delete or assign users.
func CanManageUsers(role string) bool {
	return normalize.Role(role) == models.RoleAdmin
}

// CanSelfRegister reports whether a self sign-up may request role.
// Admins are only ever created by invitation.
func CanSelfRegister(role string) bool {
	r := normalize.Role(role)
	return r == models.RoleClient || r == models.RoleSpecialist
}

// Role returns the current viewer's role and whether a viewer is present.
func Role(r *http.Request) (string, bool) {
	v, ok := auth.CurrentViewer(r)
	if !ok {
		return "", false
	}
	return normalize.Role(v.Role), true
}

// IsAdmin reports whether the current viewer is an admin.
func IsAdmin(r *http.Request) bool {
	role, ok := Role(r)
	return ok && role == models.RoleAdmin
}

// HasAnyRole reports whether the current viewer holds one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	cur, ok := Role(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if cur == normalize.Role(want) {
			return true
		}
	}
	return false
}
