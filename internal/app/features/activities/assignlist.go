// internal/app/features/activities/assignlist.go
package activities

import (
	"errors"
	"net/http"
	"time"

	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/paging"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type assignmentListResponse struct {
	Result []assignmentEntry `json:"result"`
	Count  int64             `json:"count"`
	Pages  int64             `json:"pages"`
}

type assignmentEntry struct {
	models.Assignment
	PromotionGroup string `json:"promotionGroup,omitempty"`
}

// HandleListAssignments is the cross-activity enrollment listing, filtered by
// user, activity, activity-name search, and date bounds. Paged only when a
// page parameter is present.
func (h *Handler) HandleListAssignments(w http.ResponseWriter, r *http.Request) {
	f := assignmentstore.ListFilter{Search: query.Get(r, "search")}
	if s := query.Get(r, "idUser"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("El id del usuario no es válido."), "")
			return
		}
		f.UserID = id
	}
	if s := query.Get(r, "idActivity"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
			return
		}
		f.ActivityID = id
	}
	for param, dst := range map[string]**time.Time{"lowerDate": &f.LowerDate, "upperDate": &f.UpperDate} {
		if s := query.Get(r, param); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				apierr.Write(w, h.Log, apierr.BadRequest("Alguna de las fechas del filtro no es válida."), "")
				return
			}
			*dst = &t
		}
	}

	skip, limit := int64(0), int64(-1)
	if query.Get(r, "page") != "" {
		skip, limit = paging.Skip(paging.ParsePage(r)), paging.Limit()
	}

	as, total, err := h.Assignments.List(r.Context(), f, skip, limit)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar las inscripciones.")
		return
	}

	resp := assignmentListResponse{Result: h.enrich(r, as), Count: total}
	if limit > 0 {
		resp.Pages = (total + paging.PageSize - 1) / paging.PageSize
	}
	httpjson.Write(w, http.StatusOK, resp)
}

// HandleListByActivity returns every enrollment of one activity.
func (h *Handler) HandleListByActivity(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}
	as, _, err := h.Assignments.List(r.Context(), assignmentstore.ListFilter{ActivityID: id}, 0, -1)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar las inscripciones.")
		return
	}
	httpjson.Write(w, http.StatusOK, h.enrich(r, as))
}

// HandleGetAssignment returns one enrollment by its (activity, user) pair.
func (h *Handler) HandleGetAssignment(w http.ResponseWriter, r *http.Request) {
	activityID, userID, err := assignmentIDs(r)
	if err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}
	a, err := h.Assignments.Get(r.Context(), userID, activityID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("El becado no se encuentra inscrito en la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar la inscripción.")
		return
	}
	httpjson.Write(w, http.StatusOK, a)
}

// enrich tags each enrollment with the user's promotion cohort. Best effort:
// a failed span lookup leaves the tag empty.
func (h *Handler) enrich(r *http.Request, as []models.Assignment) []assignmentEntry {
	out := make([]assignmentEntry, 0, len(as))
	span, err := h.Settings.PromotionSpan(r.Context())
	if err != nil {
		h.Log.Warn("promotion span lookup failed", zap.Error(err))
	}
	for _, a := range as {
		e := assignmentEntry{Assignment: a}
		if err == nil {
			e.PromotionGroup = promos.Group(a.User.Promotion, span)
		}
		out = append(out, e)
	}
	return out
}
