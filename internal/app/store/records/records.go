// internal/app/store/records/records.go
package records

// The records package is the generic record store adapter. Typed stores
// (profiles, projects, assignments) are built on top of it; the project
// state model and the profile resolver only ever see those typed stores or
// this interface, never a database driver directly.

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names shared by the typed stores, indexes, and fixtures.
const (
	ProfilesCollection    = "user_profiles"
	ProjectsCollection    = "projects"
	AssignmentsCollection = "project_assignments"
	IdentitiesCollection  = "identities"
)

// Record is a single schemaless document.
type Record = bson.M

// Store is generic CRUD over named record collections.
//
// Implementations must return ErrNotFound (unwrapped) from SelectOne when
// nothing matches, and wrap every backend failure in a *StoreError.
type Store interface {
	Select(ctx context.Context, collection string, q Query) ([]Record, error)
	SelectOne(ctx context.Context, collection string, q Query) (Record, error)
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection string, f Filter, patch Record) error
	Delete(ctx context.Context, collection string, f Filter) (int64, error)
}

var (
	// ErrNotFound is returned by SelectOne when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate marks a unique-constraint violation inside a StoreError.
	ErrDuplicate = errors.New("duplicate record")
)

// StoreError wraps a backend failure with the operation and collection.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("records: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err carries a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Query describes a Select. The zero value selects every record of the
// collection in natural order.
type Query struct {
	Filter Filter
	// Fields limits the returned top-level fields. _id and join targets are
	// always included. Empty means all fields.
	Fields []string
	// SortBy orders results ascending by a top-level field.
	SortBy string
	Limit  int64
	Joins  []Join
}

// Join attaches the records of another collection whose ForeignField equals
// this record's LocalField, as an array stored under As. Joins nest, which
// is how a profile brings back its assignments and, through them, the
// assigned projects in one call.
type Join struct {
	Collection   string
	LocalField   string
	ForeignField string
	As           string
	SortBy       string
	Fields       []string
	Joins        []Join
}

// Op names used in StoreError and in memrecords call logs.
const (
	OpSelect    = "select"
	OpSelectOne = "select_one"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpDelete    = "delete"
)
