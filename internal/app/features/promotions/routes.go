// internal/app/features/promotions/routes.go
package promotions

import (
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRoles("No tiene permisos para administrar promociones.", authz.RoleAdmin))

	r.Get("/", h.HandleGet)
	r.Patch("/", h.HandleUpdate)

	return r
}
