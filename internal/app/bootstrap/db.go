// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/store/records/memrecords"
	"github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/indexes"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/dalemusser/salesmake/internal/app/system/validators"
	"github.com/dalemusser/salesmake/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the record store selected by store_backend and builds the
// identity directory, session registry and background sweeper on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	switch appCfg.StoreBackend {
	case BackendMemory:
		deps.Records = memrecords.New()

	default:
		opts := options.Client().
			ApplyURI(appCfg.MongoURI).
			SetMaxPoolSize(appCfg.MongoMaxPoolSize).
			SetMinPoolSize(appCfg.MongoMinPoolSize)

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
		}

		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		deps.Records = records.NewMongo(deps.MongoDatabase)
	}

	deps.Directory = identity.NewDirectory(deps.Records)
	deps.Sessions = dashboard.NewRegistry(dashboard.Deps{
		Store:      deps.Records,
		Directory:  deps.Directory,
		SessionTTL: appCfg.SessionTTL,
		Logger:     logger,
	})
	deps.Sweeper = workers.NewSweeper(logger, appCfg.SweepInterval)
	deps.Sweeper.Add(workers.Task{Name: "expired-sessions", Run: deps.Sessions.Sweep})
	return deps, nil
}

// EnsureSchema creates collections, validators and indexes. The memory
// backend has no schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
