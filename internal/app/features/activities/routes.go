// internal/app/features/activities/routes.go
package activities

import (
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.Get("/logged", h.HandleListLogged)
	r.Get("/assignment", h.HandleListAssignments)
	r.Get("/assignment/logged", h.HandleListLogged)
	r.Get("/{id}", h.HandleGet)
	r.Get("/{id}/assignment", h.HandleListByActivity)
	r.Get("/{id}/assignment/{idUser}", h.HandleGetAssignment)

	// Creation and edits authorize per request: admins, area responsible,
	// activity responsible, or (enrollment only) the user themself.
	r.Post("/", h.HandleCreate)
	r.Patch("/{id}", h.HandleUpdate)
	r.Post("/{id}/assignment/{idUser}", h.HandleAssign)
	r.Delete("/{id}/assignment/{idUser}", h.HandleUnassign)
	r.Patch("/{id}/assignment/{idUser}", h.HandleUpdateAssignment)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRoles("No tiene permisos para administrar actividades.", authz.RoleAdmin))
		pr.Post("/assignMany", h.HandleAssignMany)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Patch("/{id}/disable", h.HandleDisable)
		pr.Patch("/{id}/enable", h.HandleEnable)
	})

	return r
}
