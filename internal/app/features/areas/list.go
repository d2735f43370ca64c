// internal/app/features/areas/list.go
package areas

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleList returns areas. Admins see blocked ones too.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	as, err := h.Areas.List(r.Context(), su.HasRole(authz.RoleAdmin))
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar los ejes.")
		return
	}
	httpjson.Write(w, http.StatusOK, as)
}

type areaResponse struct {
	models.Area
	Responsible []responsibleEntry `json:"responsible"`
	IconURL     string             `json:"iconUrl,omitempty"`
}

type responsibleEntry struct {
	models.UserSnapshot
	PromotionGroup string `json:"promotionGroup,omitempty"`
}

// HandleGet returns one area with its responsible users tagged with their
// promotion cohort. The cohort lookup is enrichment only.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}

	area, err := h.Areas.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el eje."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar el eje.")
		return
	}

	span, spanErr := h.Settings.PromotionSpan(ctx)
	if spanErr != nil {
		h.Log.Warn("promotion span lookup failed", zap.Error(spanErr))
	}

	resp := areaResponse{Area: area, Responsible: make([]responsibleEntry, 0, len(area.Responsible))}
	for _, u := range area.Responsible {
		e := responsibleEntry{UserSnapshot: u}
		if spanErr == nil {
			e.PromotionGroup = promos.Group(u.Promotion, span)
		}
		resp.Responsible = append(resp.Responsible, e)
	}
	if h.Storage != nil && area.IconKey != "" {
		if url, err := h.Storage.PresignedURL(ctx, area.IconKey, &storage.PresignOptions{Expires: 15 * time.Minute}); err == nil {
			resp.IconURL = url
		} else {
			h.Log.Warn("presign area icon", zap.String("key", area.IconKey), zap.Error(err))
		}
	}
	httpjson.Write(w, http.StatusOK, resp)
}
