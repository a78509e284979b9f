package testutil

import (
	"context"
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/salesmake/internal/app/store/assignments"
	profilestore "github.com/dalemusser/salesmake/internal/app/store/profiles"
	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/store/records/memrecords"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures creates test data through the typed stores.
type Fixtures struct {
	t  *testing.T
	rs records.Store

	Profiles    *profilestore.Store
	Projects    *projectstore.Store
	Assignments *assignmentstore.Store
	Directory   *identity.Directory
}

// NewFixtures returns fixtures writing to rs.
func NewFixtures(t *testing.T, rs records.Store) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:           t,
		rs:          rs,
		Profiles:    profilestore.New(rs),
		Projects:    projectstore.New(rs),
		Assignments: assignmentstore.New(rs),
		Directory:   identity.NewDirectory(rs).WithCost(bcrypt.MinCost),
	}
}

// NewMemFixtures returns fixtures over a fresh in-memory store.
func NewMemFixtures(t *testing.T) (*Fixtures, *memrecords.Store) {
	t.Helper()
	mem := memrecords.New()
	return NewFixtures(t, mem), mem
}

// Store returns the underlying record store.
func (f *Fixtures) Store() records.Store {
	return f.rs
}

// CreateProfile creates an active, unlinked profile.
func (f *Fixtures) CreateProfile(ctx context.Context, name, email, role string) models.Profile {
	f.t.Helper()
	p, err := f.Profiles.Create(ctx, models.Profile{
		Name:   name,
		Email:  email,
		Role:   role,
		Status: models.StatusActive,
	})
	if err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateInvitedProfile creates an invited profile with no identity.
func (f *Fixtures) CreateInvitedProfile(ctx context.Context, name, email, role string) models.Profile {
	f.t.Helper()
	now := time.Now().UTC()
	p, err := f.Profiles.Create(ctx, models.Profile{
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    models.StatusInvited,
		InvitedAt: &now,
	})
	if err != nil {
		f.t.Fatalf("failed to create invited profile: %v", err)
	}
	return p
}

// CreateLinkedProfile registers an identity and a profile linked to it.
func (f *Fixtures) CreateLinkedProfile(ctx context.Context, name, email, password, role string) (models.Profile, identity.Identity) {
	f.t.Helper()
	id := f.CreateIdentity(ctx, email, password)
	p, err := f.Profiles.Create(ctx, models.Profile{
		AuthID: id.ID,
		Name:   name,
		Email:  email,
		Role:   role,
		Status: models.StatusActive,
	})
	if err != nil {
		f.t.Fatalf("failed to create linked profile: %v", err)
	}
	return p, id
}

// CreateIdentity registers credentials without a profile.
func (f *Fixtures) CreateIdentity(ctx context.Context, email, password string) identity.Identity {
	f.t.Helper()
	id, err := f.Directory.Register(ctx, email, password)
	if err != nil {
		f.t.Fatalf("failed to register identity: %v", err)
	}
	return id
}

// CreateProject creates a project with the given name and progress.
func (f *Fixtures) CreateProject(ctx context.Context, name string, progress int) models.Project {
	f.t.Helper()
	p, err := f.Projects.Create(ctx, models.Project{
		Name:                 name,
		Progress:             progress,
		IdealCustomerProfile: models.EmptyICP(),
	})
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// Assign links a profile to a project.
func (f *Fixtures) Assign(ctx context.Context, profile models.Profile, project models.Project) models.ProjectAssignment {
	f.t.Helper()
	a, _, err := f.Assignments.Assign(ctx, profile.ID, project.ID)
	if err != nil {
		f.t.Fatalf("failed to assign project: %v", err)
	}
	return a
}
