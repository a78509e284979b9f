// Package usermgmt implements the admin user-management operations:
// inviting profiles, deleting them, and toggling project assignments.
package usermgmt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	assignmentstore "github.com/dalemusser/salesmake/internal/app/store/assignments"
	profilestore "github.com/dalemusser/salesmake/internal/app/store/profiles"
	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/app/system/inputval"
	"github.com/dalemusser/salesmake/internal/app/system/mailer"
	"github.com/dalemusser/salesmake/internal/app/system/normalize"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUserNotFound = errors.New("user not found")
	ErrSelfDelete   = errors.New("you cannot delete your own account")
	ErrLastAdmin    = errors.New("there must be at least one active admin")
)

// Actor is the admin performing an operation.
type Actor struct {
	ProfileID primitive.ObjectID
	Role      string
}

// InviteInput describes a new invitation.
type InviteInput struct {
	Email      string
	Name       string
	Role       string
	ProjectIDs []primitive.ObjectID
}

// Filter narrows List. Tab is one of all, admins, specialists, clients;
// Search matches name or email case-insensitively.
type Filter struct {
	Tab    string
	Search string
}

// ProjectRef names an assigned project.
type ProjectRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"project_name"`
}

// UserRow is one profile with its assigned projects.
type UserRow struct {
	models.Profile
	Projects []ProjectRef `json:"projects"`
}

// TabCounts counts profiles per tab, ignoring the search filter.
type TabCounts struct {
	All         int `json:"all"`
	Admins      int `json:"admins"`
	Specialists int `json:"specialists"`
	Clients     int `json:"clients"`
}

// Listing is the result of List.
type Listing struct {
	Users  []UserRow `json:"users"`
	Counts TabCounts `json:"counts"`
}

// Options configures invitation emails.
type Options struct {
	SiteName string
	BaseURL  string
}

type Service struct {
	profiles    *profilestore.Store
	projects    *projectstore.Store
	assignments *assignmentstore.Store
	mail        mailer.Sender
	opts        Options
	log         *zap.Logger
}

func New(rs records.Store, mail mailer.Sender, opts Options, logger *zap.Logger) *Service {
	if opts.SiteName == "" {
		opts.SiteName = "SalesMake"
	}
	return &Service{
		profiles:    profilestore.New(rs),
		projects:    projectstore.New(rs),
		assignments: assignmentstore.New(rs),
		mail:        mail,
		opts:        opts,
		log:         logger,
	}
}

// Invite creates an invited profile, assigns the selected projects and
// mails the invitation. Only clients and specialists can be invited.
// A failed email is logged; the invitation itself stands.
func (s *Service) Invite(ctx context.Context, actor Actor, in InviteInput) (models.Profile, error) {
	if err := authz.RequireAdmin(actor.Role); err != nil {
		return models.Profile{}, err
	}

	email := normalize.Email(in.Email)
	name := normalize.Name(in.Name)
	role := normalize.Role(in.Role)
	if role == "" {
		role = models.RoleClient
	}

	switch {
	case !inputval.IsValidEmail(email):
		return models.Profile{}, fmt.Errorf("%w: a valid email address is required", ErrInvalidInput)
	case name == "":
		return models.Profile{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case role != models.RoleClient && role != models.RoleSpecialist:
		return models.Profile{}, fmt.Errorf("%w: role must be client or specialist", ErrInvalidInput)
	}

	projectIDs := dedupe(in.ProjectIDs)
	if len(projectIDs) > 0 {
		found, err := s.projects.ListByIDs(ctx, projectIDs)
		if err != nil {
			return models.Profile{}, err
		}
		if len(found) != len(projectIDs) {
			return models.Profile{}, fmt.Errorf("%w: unknown project selected", ErrInvalidInput)
		}
	}

	now := time.Now().UTC()
	p, err := s.profiles.Create(ctx, models.Profile{
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    models.StatusInvited,
		InvitedAt: &now,
	})
	if err != nil {
		return models.Profile{}, err
	}

	for _, pid := range projectIDs {
		if _, _, err := s.assignments.Assign(ctx, p.ID, pid); err != nil {
			s.log.Error("failed to assign project to invited user",
				zap.Error(err),
				zap.String("profile_id", p.ID.Hex()),
				zap.String("project_id", pid.Hex()))
			return p, err
		}
	}

	msg := mailer.BuildInviteEmail(email, mailer.InviteEmailData{
		SiteName:    s.opts.SiteName,
		InviteeName: name,
		Role:        role,
		SignUpURL:   strings.TrimRight(s.opts.BaseURL, "/") + "/auth/signup",
	})
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("invitation email failed",
			zap.Error(err),
			zap.String("profile_id", p.ID.Hex()))
	}

	s.log.Info("user invited",
		zap.String("profile_id", p.ID.Hex()),
		zap.String("role", role),
		zap.Int("projects", len(projectIDs)))
	return p, nil
}

// Delete removes userID's assignments and then the profile. An admin may
// not delete their own account or the last active admin.
func (s *Service) Delete(ctx context.Context, actor Actor, userID primitive.ObjectID) error {
	if err := authz.RequireAdmin(actor.Role); err != nil {
		return err
	}

	target, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, records.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if target.ID == actor.ProfileID {
		return ErrSelfDelete
	}

	if target.IsAdmin() && target.Status == models.StatusActive {
		all, err := s.profiles.List(ctx)
		if err != nil {
			return err
		}
		active := 0
		for _, p := range all {
			if p.IsAdmin() && p.Status == models.StatusActive {
				active++
			}
		}
		if active <= 1 {
			return ErrLastAdmin
		}
	}

	if _, err := s.assignments.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.profiles.Delete(ctx, userID); err != nil {
		return err
	}

	s.log.Info("user deleted", zap.String("profile_id", userID.Hex()))
	return nil
}

// ToggleAssignment sets whether userID is assigned to projectID.
// Setting the current state again is a no-op.
func (s *Service) ToggleAssignment(ctx context.Context, actor Actor, userID, projectID primitive.ObjectID, assigned bool) error {
	if err := authz.RequireAdmin(actor.Role); err != nil {
		return err
	}

	if _, err := s.profiles.GetByID(ctx, userID); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return fmt.Errorf("%w: unknown project", ErrInvalidInput)
		}
		return err
	}

	if assigned {
		_, _, err := s.assignments.Assign(ctx, userID, projectID)
		return err
	}
	_, err := s.assignments.Unassign(ctx, userID, projectID)
	return err
}

// List returns profiles sorted by name with their assigned projects.
func (s *Service) List(ctx context.Context, actor Actor, f Filter) (Listing, error) {
	if err := authz.RequireAdmin(actor.Role); err != nil {
		return Listing{}, err
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return Listing{}, err
	}
	projects, err := s.projects.List(ctx)
	if err != nil {
		return Listing{}, err
	}
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return Listing{}, err
	}

	names := make(map[primitive.ObjectID]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	byUser := make(map[primitive.ObjectID][]ProjectRef)
	for _, a := range assignments {
		name, ok := names[a.ProjectID]
		if !ok {
			continue
		}
		byUser[a.UserID] = append(byUser[a.UserID], ProjectRef{ID: a.ProjectID, Name: name})
	}

	role := normalize.Tab(f.Tab)
	search := strings.ToLower(normalize.QueryParam(f.Search))

	out := Listing{Users: []UserRow{}}
	for _, p := range profiles {
		out.Counts.add(p.Role)
		if role != "" && p.Role != role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		refs := byUser[p.ID]
		if refs == nil {
			refs = []ProjectRef{}
		}
		out.Users = append(out.Users, UserRow{Profile: p, Projects: refs})
	}
	return out, nil
}

func (c *TabCounts) add(role string) {
	c.All++
	switch role {
	case models.RoleAdmin:
		c.Admins++
	case models.RoleSpecialist:
		c.Specialists++
	case models.RoleClient:
		c.Clients++
	}
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
