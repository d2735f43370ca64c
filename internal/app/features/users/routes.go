// internal/app/features/users/routes.go
package users

import (
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user endpoints. The activities listing for one user lives
// in the activities feature; it is injected so the route can sit under
// /api/user without crossing package dependencies.
func Routes(h *Handler, userActivities http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/logged", h.HandleGetLogged)
	r.Get("/{id}", h.HandleGetByID)
	r.Get("/{id}/activities", userActivities)
	r.Patch("/{id}", h.HandleUpdate)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRoles("No tiene permisos para administrar usuarios.", authz.RoleAdmin))
		pr.Post("/", h.HandleCreate)
		pr.Get("/", h.HandleList)
		pr.Patch("/{id}/disable", h.HandleDisable)
		pr.Patch("/{id}/enable", h.HandleEnable)
	})

	return r
}
