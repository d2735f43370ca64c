// internal/app/features/payments/handler.go
package payments

import (
	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	payassignstore "github.com/dalemusser/servicehub/internal/app/store/paymentassign"
	paymentstore "github.com/dalemusser/servicehub/internal/app/store/payments"
	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the payments feature.
// Payment edits cascade into activities and charges; voucher evidence lives
// in object storage.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Payments    *paymentstore.Store
	PayAssigns  *payassignstore.Store
	Users       *userstore.Store
	Activities  *activitystore.Store
	Assignments *assignmentstore.Store
	Sessions    *sessionstore.Store
	Storage     storage.Store
}

func NewHandler(db *mongo.Database, store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Payments:    paymentstore.New(db),
		PayAssigns:  payassignstore.New(db),
		Users:       userstore.New(db),
		Activities:  activitystore.New(db),
		Assignments: assignmentstore.New(db),
		Sessions:    sessionstore.New(db),
		Storage:     store,
	}
}
