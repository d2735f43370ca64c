// internal/app/features/session/logout.go
package session

import (
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
)

// HandleLogout deletes the caller's session document, invalidating both the
// access token (on its next middleware check) and the refresh grant.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.New("No se ha autenticado el usuario.", http.StatusUnauthorized), "")
		return
	}
	if err := h.Sessions.Delete(r.Context(), u.SessionID); err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al cerrar la sesión.")
		return
	}
	httpjson.NoContent(w)
}
