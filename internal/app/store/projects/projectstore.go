// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
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

// List returns every project in creation order.
func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	recs, err := s.rs.Select(ctx, records.ProjectsCollection, records.Query{SortBy: "created_at"})
	if err != nil {
		return nil, err
	}
	return decodeAll(recs)
}

// ListByIDs returns the projects with the given ids, in creation order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	recs, err := s.rs.Select(ctx, records.ProjectsCollection, records.Query{
		Filter: records.In("_id", vals...),
		SortBy: "created_at",
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(recs)
}

// GetByID returns the project with the given _id, or records.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	rec, err := s.rs.SelectOne(ctx, records.ProjectsCollection, records.Query{Filter: records.Eq("_id", id)})
	if err != nil {
		return p, err
	}
	err = records.Decode(rec, &p)
	return p, err
}

// Count returns the number of stored projects.
func (s *Store) Count(ctx context.Context) (int, error) {
	recs, err := s.rs.Select(ctx, records.ProjectsCollection, records.Query{Fields: []string{"_id"}})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Create inserts p and returns it with its assigned id.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	rec, err := records.Encode(p)
	if err != nil {
		return p, err
	}
	stored, err := s.rs.Insert(ctx, records.ProjectsCollection, rec)
	if err != nil {
		return p, err
	}
	if oid, ok := stored["_id"].(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

// NestedField reads the current value of a nested document field straight
// from the store. A missing field yields an empty record.
func (s *Store) NestedField(ctx context.Context, id primitive.ObjectID, parent string) (records.Record, error) {
	rec, err := s.rs.SelectOne(ctx, records.ProjectsCollection, records.Query{
		Filter: records.Eq("_id", id),
		Fields: []string{parent},
	})
	if err != nil {
		return nil, err
	}
	return records.AsRecord(rec[parent]), nil
}

// Patch writes the given top-level fields plus updated_at and returns the
// timestamp written.
func (s *Store) Patch(ctx context.Context, id primitive.ObjectID, patch records.Record) (time.Time, error) {
	now := time.Now().UTC()
	set := make(records.Record, len(patch)+1)
	for k, v := range patch {
		set[k] = v
	}
	set["updated_at"] = now
	return now, s.rs.Update(ctx, records.ProjectsCollection, records.Eq("_id", id), set)
}

func decodeAll(recs []records.Record) ([]models.Project, error) {
	out := make([]models.Project, 0, len(recs))
	for _, rec := range recs {
		var p models.Project
		if err := records.Decode(rec, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
