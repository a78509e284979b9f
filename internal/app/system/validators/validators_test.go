package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/validators"
	"github.com/dalemusser/salesmake/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_IdempotentAndCreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{
		records.ProfilesCollection,
		records.ProjectsCollection,
		records.AssignmentsCollection,
		records.IdentitiesCollection,
	} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid profile", records.ProfilesCollection,
			bson.M{"email": "a@example.com", "name": "A", "role": "client", "status": "invited"}, false},
		{"profile missing name", records.ProfilesCollection,
			bson.M{"email": "b@example.com", "role": "client", "status": "active"}, true},
		{"profile bad role", records.ProfilesCollection,
			bson.M{"email": "c@example.com", "name": "C", "role": "superadmin", "status": "active"}, true},
		{"profile bad status", records.ProfilesCollection,
			bson.M{"email": "d@example.com", "name": "D", "role": "admin", "status": "disabled"}, true},
		{"valid project", records.ProjectsCollection,
			bson.M{"project_name": "Alpha", "progress": 40, "emails_sent": 3, "meetings_booked": 0}, false},
		{"project progress off the step grid", records.ProjectsCollection,
			bson.M{"project_name": "Beta", "progress": 30}, true},
		{"project negative stats", records.ProjectsCollection,
			bson.M{"project_name": "Gamma", "progress": 0, "emails_sent": -1}, true},
		{"valid assignment", records.AssignmentsCollection,
			bson.M{"user_id": primitive.NewObjectID(), "project_id": primitive.NewObjectID(), "created_at": time.Now()}, false},
		{"assignment string ids", records.AssignmentsCollection,
			bson.M{"user_id": "u1", "project_id": "p1"}, true},
		{"identity missing hash", records.IdentitiesCollection,
			bson.M{"_id": "id-1", "email": "e@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
