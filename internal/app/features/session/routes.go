// internal/app/features/session/routes.go
package session

import (
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.HandleLogin)
	r.Post("/accessToken", h.HandleRefresh)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/logout", h.HandleLogout)
	})

	return r
}
