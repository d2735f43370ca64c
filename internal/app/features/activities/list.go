// internal/app/features/activities/list.go
package activities

import (
	"errors"
	"net/http"
	"time"

	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleList returns activities filtered by area, upper date bound, and name
// search. Non-admin callers only see activities of the areas they are
// responsible for; a failed area lookup narrows the result to nothing rather
// than failing the request.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)
	isAdmin := su.HasRole(authz.RoleAdmin)

	f := activitystore.ListFilter{
		Search:         query.Get(r, "search"),
		IncludeBlocked: isAdmin && query.Get(r, "includeBlocked") == "true",
	}
	if s := query.Get(r, "idAsigboArea"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
			return
		}
		f.AreaID = id
	}
	if s := query.Get(r, "upperDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("La fecha límite no es válida."), "")
			return
		}
		f.UpperDate = &t
	}

	as, err := h.Activities.List(ctx, f)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar las actividades.")
		return
	}
	if !isAdmin {
		as = h.narrowToResponsibleAreas(r, su, as)
	}
	httpjson.Write(w, http.StatusOK, as)
}

// narrowToResponsibleAreas keeps only activities in areas the user is
// responsible for. Errors degrade to an empty list.
func (h *Handler) narrowToResponsibleAreas(r *http.Request, su *auth.SessionUser, as []models.Activity) []models.Activity {
	areas, err := h.Areas.List(r.Context(), true)
	if err != nil {
		h.Log.Warn("responsible-area narrowing failed", zap.Error(err))
		return nil
	}
	mine := map[primitive.ObjectID]bool{}
	for i := range areas {
		if areas[i].IsResponsible(su.ID) {
			mine[areas[i].ID] = true
		}
	}
	out := as[:0]
	for _, a := range as {
		if mine[a.Area.ID] {
			out = append(out, a)
		}
	}
	return out
}

// HandleGet returns one activity by id.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}
	a, err := h.Activities.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar la actividad.")
		return
	}
	httpjson.Write(w, http.StatusOK, a)
}

// HandleListLogged returns the enrollments of the session user.
func (h *Handler) HandleListLogged(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	h.writeUserAssignments(w, r, su.ID)
}

// HandleListByUser returns the enrollments of one user (self or admin).
func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del usuario no es válido."), "")
		return
	}
	if id != su.ID && !su.HasRole(authz.RoleAdmin) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para consultar las actividades de este usuario."), "")
		return
	}
	h.writeUserAssignments(w, r, id)
}

func (h *Handler) writeUserAssignments(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) {
	as, _, err := h.Assignments.List(r.Context(), assignmentstore.ListFilter{UserID: userID}, 0, -1)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar las actividades del usuario.")
		return
	}
	httpjson.Write(w, http.StatusOK, as)
}
