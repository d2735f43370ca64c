// internal/app/features/areas/handler.go
package areas

import (
	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	areastore "github.com/dalemusser/servicehub/internal/app/store/areas"
	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	settingsstore "github.com/dalemusser/servicehub/internal/app/store/settings"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the areas feature. Area
// writes cascade into activities, assignments, and user ledgers, and
// responsible-list changes touch roles and sessions.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Storage     storage.Store
	Areas       *areastore.Store
	Users       *userstore.Store
	Activities  *activitystore.Store
	Assignments *assignmentstore.Store
	Sessions    *sessionstore.Store
	Settings    *settingsstore.Store
}

func NewHandler(db *mongo.Database, store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Storage:     store,
		Areas:       areastore.New(db),
		Users:       userstore.New(db),
		Activities:  activitystore.New(db),
		Assignments: assignmentstore.New(db),
		Sessions:    sessionstore.New(db),
		Settings:    settingsstore.New(db),
	}
}
