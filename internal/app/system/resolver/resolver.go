// Package resolver turns an authenticated identity into an application
// profile and the projects that profile can see.
package resolver

import (
	"context"
	"errors"
	"fmt"

	profilestore "github.com/dalemusser/salesmake/internal/app/store/profiles"
	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/normalize"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.uber.org/zap"
)

// NotFoundMessage is shown to a user whose identity has no profile.
const NotFoundMessage = "No profile found. Please contact your administrator."

// ErrProfileNotFound means neither the identity id nor its email matched a
// profile. It is never wrapped in a ResolveError.
var ErrProfileNotFound = errors.New("profile not found")

// ResolveError is a store failure during resolution. It is distinct from
// ErrProfileNotFound and callers render it as a transient error.
type ResolveError struct {
	Op  string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve profile: %s: %v", e.Op, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolved is a profile together with the projects reachable through its
// assignments, in assignment-insertion order.
type Resolved struct {
	Profile  models.Profile
	Assigned []models.Project
}

// SignUpInfo carries the optional profile fields of a self sign-up.
type SignUpInfo struct {
	Name string
	Role string
}

// Resolver resolves and links profiles.
type Resolver struct {
	profiles *profilestore.Store
	projects *projectstore.Store
	log      *zap.Logger
}

func New(rs records.Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		profiles: profilestore.New(rs),
		projects: projectstore.New(rs),
		log:      logger,
	}
}

// ResolveProfile finds the profile for id. The identity id is tried first,
// fetching assignments and projects in the same call. On a miss the email
// is tried; a match there is linked with exactly one write setting auth_id
// and status=active, so later resolutions take the identity-id path.
func (r *Resolver) ResolveProfile(ctx context.Context, id identity.Identity) (*Resolved, error) {
	wp, err := r.profiles.GetByAuthIDWithProjects(ctx, id.ID)
	if err == nil {
		return &Resolved{Profile: wp.Profile, Assigned: wp.Projects}, nil
	}
	if !errors.Is(err, records.ErrNotFound) {
		return nil, &ResolveError{Op: "lookup by identity", Err: err}
	}

	wp, err = r.profiles.GetByEmailWithProjects(ctx, id.Email)
	if errors.Is(err, records.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, &ResolveError{Op: "lookup by email", Err: err}
	}

	if wp.Profile.AuthID != "" && wp.Profile.AuthID != id.ID {
		r.log.Warn("relinking profile to a different identity",
			zap.String("profile_id", wp.Profile.ID.Hex()),
			zap.String("old_auth_id", wp.Profile.AuthID),
			zap.String("new_auth_id", id.ID))
	}

	updatedAt, err := r.profiles.Link(ctx, wp.Profile.ID, id.ID)
	if err != nil {
		return nil, &ResolveError{Op: "link identity", Err: err}
	}

	p := wp.Profile
	p.AuthID = id.ID
	p.Status = models.StatusActive
	p.UpdatedAt = updatedAt

	r.log.Info("profile linked to identity",
		zap.String("profile_id", p.ID.Hex()),
		zap.String("identity_id", id.ID))

	return &Resolved{Profile: p, Assigned: wp.Projects}, nil
}

// ListAssignedProjects returns the projects res may see: every project for
// an admin, otherwise the assigned projects in assignment-insertion order.
func (r *Resolver) ListAssignedProjects(ctx context.Context, res *Resolved) ([]models.Project, error) {
	if res.Profile.IsAdmin() {
		all, err := r.projects.List(ctx)
		if err != nil {
			return nil, &ResolveError{Op: "list projects", Err: err}
		}
		return all, nil
	}
	out := make([]models.Project, len(res.Assigned))
	copy(out, res.Assigned)
	return out, nil
}

// LinkOrCreate runs after a self sign-up. An existing profile with the
// identity's email (typically an invitation) is linked; otherwise an active
// profile is created. Name defaults to "New User" and role to client; a
// self sign-up may never request admin.
func (r *Resolver) LinkOrCreate(ctx context.Context, id identity.Identity, info SignUpInfo) (*Resolved, error) {
	role := normalize.Role(info.Role)
	if role == "" {
		role = models.RoleClient
	}

	res, err := r.ResolveProfile(ctx, id)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	if !authz.CanSelfRegister(role) {
		return nil, fmt.Errorf("sign up as %q: %w", role, authz.ErrForbidden)
	}

	name := normalize.Name(info.Name)
	if name == "" {
		name = "New User"
	}
	p, err := r.profiles.Create(ctx, models.Profile{
		AuthID: id.ID,
		Email:  id.Email,
		Name:   name,
		Role:   role,
		Status: models.StatusActive,
	})
	if err != nil {
		return nil, &ResolveError{Op: "create profile", Err: err}
	}

	r.log.Info("profile created on sign-up",
		zap.String("profile_id", p.ID.Hex()),
		zap.String("role", p.Role))

	return &Resolved{Profile: p, Assigned: []models.Project{}}, nil
}
