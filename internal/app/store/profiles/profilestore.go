// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/normalize"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateEmail is returned by Create when a profile already holds the email.
var ErrDuplicateEmail = errors.New("a profile with this email already exists")

type Store struct {
	rs records.Store
}

func New(rs records.Store) *Store {
	return &Store{rs: rs}
}

// WithProjects is a profile together with the projects reachable through its
// assignments, in assignment-insertion order.
type WithProjects struct {
	Profile  models.Profile
	Projects []models.Project
}

// projectJoin fetches profile -> assignments -> projects in one call.
var projectJoin = records.Join{
	Collection:   records.AssignmentsCollection,
	LocalField:   "_id",
	ForeignField: "user_id",
	As:           "assignments",
	SortBy:       "created_at",
	Joins: []records.Join{{
		Collection:   records.ProjectsCollection,
		LocalField:   "project_id",
		ForeignField: "_id",
		As:           "project",
	}},
}

// GetByID returns the profile with the given _id, or records.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Profile, error) {
	return s.getOne(ctx, records.Eq("_id", id))
}

// GetByAuthID returns the profile linked to the external identity authID.
func (s *Store) GetByAuthID(ctx context.Context, authID string) (models.Profile, error) {
	return s.getOne(ctx, records.Eq("auth_id", authID))
}

// GetByEmail returns the profile holding email (normalized before lookup).
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	return s.getOne(ctx, records.Eq("email", normalize.Email(email)))
}

// GetByAuthIDWithProjects is GetByAuthID plus the assigned projects.
func (s *Store) GetByAuthIDWithProjects(ctx context.Context, authID string) (WithProjects, error) {
	return s.getWithProjects(ctx, records.Eq("auth_id", authID))
}

// GetByEmailWithProjects is GetByEmail plus the assigned projects.
func (s *Store) GetByEmailWithProjects(ctx context.Context, email string) (WithProjects, error) {
	return s.getWithProjects(ctx, records.Eq("email", normalize.Email(email)))
}

func (s *Store) getOne(ctx context.Context, f records.Filter) (models.Profile, error) {
	var p models.Profile
	rec, err := s.rs.SelectOne(ctx, records.ProfilesCollection, records.Query{Filter: f})
	if err != nil {
		return p, err
	}
	err = records.Decode(rec, &p)
	return p, err
}

func (s *Store) getWithProjects(ctx context.Context, f records.Filter) (WithProjects, error) {
	rec, err := s.rs.SelectOne(ctx, records.ProfilesCollection, records.Query{
		Filter: f,
		Joins:  []records.Join{projectJoin},
	})
	if err != nil {
		return WithProjects{}, err
	}

	var doc struct {
		models.Profile `bson:",inline"`
		Assignments    []struct {
			Project []models.Project `bson:"project"`
		} `bson:"assignments"`
	}
	if err := records.Decode(rec, &doc); err != nil {
		return WithProjects{}, err
	}

	out := WithProjects{Profile: doc.Profile, Projects: []models.Project{}}
	for _, a := range doc.Assignments {
		// An assignment whose project is gone joins to nothing; skip it.
		if len(a.Project) > 0 {
			out.Projects = append(out.Projects, a.Project[0])
		}
	}
	return out, nil
}

// Link attaches authID to the profile and marks it active. It is the single
// corrective write performed when a profile is found by email.
// Returns the updated_at timestamp that was written.
func (s *Store) Link(ctx context.Context, id primitive.ObjectID, authID string) (time.Time, error) {
	now := time.Now().UTC()
	err := s.rs.Update(ctx, records.ProfilesCollection, records.Eq("_id", id), records.Record{
		"auth_id":    authID,
		"status":     models.StatusActive,
		"updated_at": now,
	})
	return now, err
}

// SetRole changes the profile's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.rs.Update(ctx, records.ProfilesCollection, records.Eq("_id", id), records.Record{
		"role":       role,
		"updated_at": time.Now().UTC(),
	})
}

// Create inserts a new profile. Email is normalized and must be unused;
// ErrDuplicateEmail is returned otherwise (also when the unique index
// rejects a concurrent insert).
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.Email = normalize.Email(p.Email)
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)

	if _, err := s.GetByEmail(ctx, p.Email); err == nil {
		return p, ErrDuplicateEmail
	} else if !errors.Is(err, records.ErrNotFound) {
		return p, err
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	rec, err := records.Encode(p)
	if err != nil {
		return p, err
	}
	stored, err := s.rs.Insert(ctx, records.ProfilesCollection, rec)
	if errors.Is(err, records.ErrDuplicate) {
		return p, ErrDuplicateEmail
	}
	if err != nil {
		return p, err
	}
	if oid, ok := stored["_id"].(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

// List returns every profile ordered by folded name.
func (s *Store) List(ctx context.Context) ([]models.Profile, error) {
	recs, err := s.rs.Select(ctx, records.ProfilesCollection, records.Query{SortBy: "name_ci"})
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(recs))
	for _, rec := range recs {
		var p models.Profile
		if err := records.Decode(rec, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Delete removes the profile with the given _id. Callers remove the
// profile's assignments first.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return s.rs.Delete(ctx, records.ProfilesCollection, records.Eq("_id", id))
}
