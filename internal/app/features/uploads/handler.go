// internal/app/features/uploads/handler.go
package uploads

import (
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// Handler owns the generic file-upload endpoint.
type Handler struct {
	Log     *zap.Logger
	Storage storage.Store
}

func NewHandler(store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Storage: store}
}
