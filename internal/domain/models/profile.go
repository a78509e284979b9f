// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a profile can hold.
const (
	RoleAdmin      = "admin"
	RoleSpecialist = "specialist"
	RoleClient     = "client"
)

// Profile statuses. A profile stays "invited" until its first sign-in links
// an identity to it.
const (
	StatusInvited = "invited"
	StatusActive  = "active"
)

// Profile is the application-level user record. It is distinct from the raw
// identity held by the identity provider: the profile carries the role and
// status, and is linked to an identity through AuthID.
//
// NOTE:
//   - Email is unique across profiles and is the fallback key used to link
//     an identity when AuthID is not yet set.
//   - Project access is not embedded here; see ProjectAssignment.
type Profile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthID    string             `bson:"auth_id,omitempty" json:"auth_id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Role      string             `bson:"role" json:"role"` // admin | specialist | client
	Status    string             `bson:"status" json:"status"`
	InvitedAt *time.Time         `bson:"invited_at,omitempty" json:"invited_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Linked reports whether an identity has been attached to the profile.
func (p Profile) Linked() bool {
	return p.AuthID != ""
}

// IsAdmin reports whether the profile holds the admin role.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known profile roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSpecialist, RoleClient:
		return true
	}
	return false
}

// ValidStatus reports whether status is one of the known profile statuses.
func ValidStatus(status string) bool {
	return status == StatusInvited || status == StatusActive
}
