// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	profilestore "github.com/dalemusser/salesmake/internal/app/store/profiles"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}
	deps.Sweeper.Start()
	return nil
}

// ensureAdmin makes sure a profile with email exists and is an admin.
// A new profile is created as an invitation; it links on first sign-up.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	profiles := profilestore.New(deps.Records)

	p, err := profiles.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if p.Role == models.RoleAdmin {
			logger.Debug("admin profile present", zap.String("email", p.Email))
			return nil
		}
		if err := profiles.SetRole(ctx, p.ID, models.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted profile to admin",
			zap.String("email", p.Email),
			zap.String("previous_role", p.Role))
		return nil

	case errors.Is(err, records.ErrNotFound):
		now := time.Now().UTC()
		created, err := profiles.Create(ctx, models.Profile{
			Email:     email,
			Name:      "Administrator",
			Role:      models.RoleAdmin,
			Status:    models.StatusInvited,
			InvitedAt: &now,
		})
		if err != nil {
			return err
		}
		logger.Info("invited admin profile", zap.String("email", created.Email))
		return nil

	default:
		return err
	}
}
