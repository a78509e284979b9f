// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	rs records.Store
}

func New(rs records.Store) *Store {
	return &Store{rs: rs}
}

// Assign links userID to projectID. An existing link is left as is and
// reported with created=false.
func (s *Store) Assign(ctx context.Context, userID, projectID primitive.ObjectID) (a models.ProjectAssignment, created bool, err error) {
	exists, err := s.Exists(ctx, userID, projectID)
	if err != nil || exists {
		return a, false, err
	}

	a = models.ProjectAssignment{
		UserID:    userID,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}
	rec, err := records.Encode(a)
	if err != nil {
		return a, false, err
	}
	stored, err := s.rs.Insert(ctx, records.AssignmentsCollection, rec)
	if errors.Is(err, records.ErrDuplicate) {
		// lost a race with a concurrent assign; the pair exists
		return a, false, nil
	}
	if err != nil {
		return a, false, err
	}
	if oid, ok := stored["_id"].(primitive.ObjectID); ok {
		a.ID = oid
	}
	return a, true, nil
}

// Unassign removes the (userID, projectID) link.
func (s *Store) Unassign(ctx context.Context, userID, projectID primitive.ObjectID) (int64, error) {
	return s.rs.Delete(ctx, records.AssignmentsCollection, records.Eq("user_id", userID).Eq("project_id", projectID))
}

// Exists reports whether the (userID, projectID) link is present.
func (s *Store) Exists(ctx context.Context, userID, projectID primitive.ObjectID) (bool, error) {
	_, err := s.rs.SelectOne(ctx, records.AssignmentsCollection, records.Query{
		Filter: records.Eq("user_id", userID).Eq("project_id", projectID),
		Fields: []string{"_id"},
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, records.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListByUser returns a user's assignments in insertion order.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ProjectAssignment, error) {
	return s.list(ctx, records.Eq("user_id", userID))
}

// List returns every assignment in insertion order.
func (s *Store) List(ctx context.Context) ([]models.ProjectAssignment, error) {
	return s.list(ctx, records.Filter{})
}

func (s *Store) list(ctx context.Context, f records.Filter) ([]models.ProjectAssignment, error) {
	recs, err := s.rs.Select(ctx, records.AssignmentsCollection, records.Query{Filter: f, SortBy: "created_at"})
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectAssignment, 0, len(recs))
	for _, rec := range recs {
		var a models.ProjectAssignment
		if err := records.Decode(rec, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteByUser removes every assignment held by userID.
// Used before deleting the profile itself.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.rs.Delete(ctx, records.AssignmentsCollection, records.Eq("user_id", userID))
}
