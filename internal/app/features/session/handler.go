// internal/app/features/session/handler.go
package session

import (
	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the session feature
// (login, token refresh, logout).
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Auth     *auth.Manager
	Users    *userstore.Store
	Sessions *sessionstore.Store
	Limiter  *ratelimit.LoginLimiter
}

func NewHandler(db *mongo.Database, mgr *auth.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Auth:     mgr,
		Users:    userstore.New(db),
		Sessions: sessionstore.New(db),
		Limiter:  ratelimit.NewLoginLimiter(),
	}
}
