// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends shared by every handler. MongoClient and
// MongoDatabase are nil on the memory backend.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Records   records.Store
	Directory *identity.Directory
	Sessions  *dashboard.Registry

	// Sweeper closes expired sessions and prunes rate-limit windows.
	Sweeper *workers.Sweeper
}
