// internal/app/features/uploads/routes.go
package uploads

import (
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleUpload)

	return r
}
