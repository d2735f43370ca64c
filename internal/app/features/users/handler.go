// internal/app/features/users/handler.go
package users

import (
	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	areastore "github.com/dalemusser/servicehub/internal/app/store/areas"
	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	payassignstore "github.com/dalemusser/servicehub/internal/app/store/paymentassign"
	paymentstore "github.com/dalemusser/servicehub/internal/app/store/payments"
	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	settingsstore "github.com/dalemusser/servicehub/internal/app/store/settings"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the users feature. Profile
// updates cascade the user snapshot into every collection that embeds it, so
// this handler holds all the dependent stores.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Users       *userstore.Store
	Areas       *areastore.Store
	Activities  *activitystore.Store
	Assignments *assignmentstore.Store
	Payments    *paymentstore.Store
	PayAssigns  *payassignstore.Store
	Sessions    *sessionstore.Store
	Settings    *settingsstore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Users:       userstore.New(db),
		Areas:       areastore.New(db),
		Activities:  activitystore.New(db),
		Assignments: assignmentstore.New(db),
		Payments:    paymentstore.New(db),
		PayAssigns:  payassignstore.New(db),
		Sessions:    sessionstore.New(db),
		Settings:    settingsstore.New(db),
	}
}
