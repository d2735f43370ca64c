// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/timeouts"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied from environment", zap.Int("count", n))
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, appCfg, deps, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin promotes the configured account to admin, creating it first
// when it does not exist yet. A fresh install is unusable without at least
// one admin, every privileged route requires the role.
func ensureAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)
	email := normalize.Email(appCfg.AdminEmail)

	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if appCfg.AdminPassword == "" {
			logger.Warn("admin_email set but the user does not exist and admin_password is empty; skipping admin bootstrap",
				zap.String("email", email))
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(appCfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u, err = users.Create(ctx, models.User{
			Name:         "Admin",
			Lastname:     "ServiceHub",
			Email:        email,
			Role:         []string{authz.RoleAdmin},
			PasswordHash: string(hash),
		})
		if err != nil {
			return err
		}
		logger.Info("admin user created", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}

	if u.HasRole(authz.RoleAdmin) {
		return nil
	}
	if err := users.AddRole(ctx, []primitive.ObjectID{u.ID}, authz.RoleAdmin); err != nil {
		return err
	}
	logger.Info("existing user promoted to admin", zap.String("email", email))
	return nil
}
