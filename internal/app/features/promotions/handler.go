// internal/app/features/promotions/handler.go
package promotions

import (
	settingsstore "github.com/dalemusser/servicehub/internal/app/store/settings"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the promotion-span settings endpoints.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Settings *settingsstore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Settings: settingsstore.New(db),
	}
}
