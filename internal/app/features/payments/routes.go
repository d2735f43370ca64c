// internal/app/features/payments/routes.go
package payments

import (
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.Get("/assignment/logged", h.HandleListLogged)
	r.Get("/{id}", h.HandleGet)

	// Voucher flow authorizes per charge: the charged user completes,
	// treasurers and admins confirm or reject.
	r.Post("/assignment/{id}/complete", h.HandleComplete)
	r.Post("/assignment/{id}/confirm", h.HandleConfirm)
	r.Post("/assignment/{id}/reset", h.HandleReset)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRoles("No tiene permisos para administrar pagos.", authz.RoleAdmin))
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/assignment", h.HandleAssign)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
