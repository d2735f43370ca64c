// internal/app/features/users/get.go
package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/paging"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleGetLogged returns the caller's own user document.
func (h *Handler) HandleGetLogged(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	u, err := h.Users.GetByID(r.Context(), su.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el usuario."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar el usuario.")
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}

// HandleGetByID returns one user. Admins can read anyone; other callers only
// themselves.
func (h *Handler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del usuario no es válido."), "")
		return
	}
	if id != su.ID && !su.HasRole(authz.RoleAdmin) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para consultar este usuario."), "")
		return
	}

	u, err := h.Users.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el usuario."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar el usuario.")
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}

type userListResponse struct {
	Result []userListEntry `json:"result"`
	Count  int64           `json:"count"`
	Pages  int64           `json:"pages"`
}

type userListEntry struct {
	User           models.User `json:"user"`
	PromotionGroup string      `json:"promotionGroup"`
}

// HandleList returns users filtered by promotion, role, and free-text search.
// Admin only. Entries carry the promotion cohort so clients can group them.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := userstore.ListFilter{
		Search:         query.Get(r, "search"),
		Role:           query.Get(r, "role"),
		IncludeBlocked: query.Get(r, "includeBlocked") == "true",
	}
	if p := query.Get(r, "promotion"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("La promoción debe ser un año."), "")
			return
		}
		filter.Promotion = n
	}

	page := paging.ParsePage(r)
	us, total, err := h.Users.List(ctx, filter, paging.Skip(page), paging.Limit())
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar los usuarios.")
		return
	}

	span, err := h.Settings.PromotionSpan(ctx)
	if err != nil {
		// Enrichment only; the listing must not fail on it.
		h.Log.Warn("promotion span lookup failed", zap.Error(err))
	}

	entries := make([]userListEntry, 0, len(us))
	for i := range us {
		entry := userListEntry{User: us[i]}
		if err == nil {
			entry.PromotionGroup = promos.Group(us[i].Promotion, span)
		}
		entries = append(entries, entry)
	}

	pages := (total + paging.PageSize - 1) / paging.PageSize
	httpjson.Write(w, http.StatusOK, userListResponse{Result: entries, Count: total, Pages: pages})
}
