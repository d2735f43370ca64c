// internal/app/features/promotions/span.go
package promotions

import (
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
)

// HandleGet returns the configured window of active student promotions.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	span, err := h.Settings.PromotionSpan(r.Context())
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar las promociones.")
		return
	}
	httpjson.Write(w, http.StatusOK, span)
}

// HandleUpdate replaces the student promotion window.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var span promos.Span
	if err := httpjson.Decode(r, &span); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El cuerpo de la solicitud no es válido."), "")
		return
	}
	if span.Oldest < 2000 || span.Newest > 2100 || span.Oldest > span.Newest {
		apierr.Write(w, h.Log, apierr.BadRequest("El rango de promociones no es válido."), "")
		return
	}
	if err := h.Settings.SavePromotionSpan(r.Context(), span); err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar las promociones.")
		return
	}
	httpjson.Write(w, http.StatusOK, span)
}
