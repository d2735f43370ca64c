// internal/app/features/activities/handler.go
package activities

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

// Handler is the shared dependency container for the activities feature.
// Activities embed an area and optionally a payment, and their assignments
// embed the activity, so edits fan out into all three stores.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Activities  *activitystore.Store
	Areas       *areastore.Store
	Users       *userstore.Store
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
		Activities:  activitystore.New(db),
		Areas:       areastore.New(db),
		Users:       userstore.New(db),
		Assignments: assignmentstore.New(db),
		Payments:    paymentstore.New(db),
		PayAssigns:  payassignstore.New(db),
		Sessions:    sessionstore.New(db),
		Settings:    settingsstore.New(db),
	}
}
