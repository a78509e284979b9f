// internal/domain/models/project_assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectAssignment links a profile to a project it can see.
// A given (UserID, ProjectID) pair appears at most once.
type ProjectAssignment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
