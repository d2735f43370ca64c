// internal/app/features/activities/update.go
package activities

import (
	"context"
	"errors"
	"net/http"

	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleUpdate edits an activity. The area is fixed at creation; capacity is
// resized against the current enrollment count; a service-hours change
// re-credits every completed assignment; the responsible diff adjusts the
// activity-responsible role under the last-holder rule. All of it runs in one
// transaction with the snapshot cascade into assignments.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}

	var req createActivityRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos de la actividad inválidos."), "")
		return
	}
	if err := req.validate(); err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	current, err := h.Activities.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la actividad.")
		return
	}
	if current.Blocked {
		apierr.Write(w, h.Log, apierr.Conflict("La actividad se encuentra deshabilitada."), "")
		return
	}
	if !h.canManage(ctx, su, &current) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para editar esta actividad."), "")
		return
	}

	responsible, newIDs, err := h.resolveUsers(ctx, req.Responsible)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la actividad.")
		return
	}

	var touched []primitive.ObjectID
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		registered, err := h.Assignments.CountByActivity(ctx, id)
		if err != nil {
			return err
		}
		available := req.ParticipantsNumber - int(registered)
		if available < 0 {
			return apierr.BadRequest("El número de participantes es menor que los becados ya inscritos.")
		}

		name := normalize.Name(req.Name)
		prev, err := h.Activities.Update(ctx, id, bson.M{
			"name":                     name,
			"date":                     req.Date,
			"service_hours":            req.ServiceHours,
			"responsible":              responsible,
			"registration_start_date":  req.RegistrationStartDate,
			"registration_end_date":    req.RegistrationEndDate,
			"participating_promotions": req.ParticipatingPromotions,
			"available_spaces":         available,
		})
		if err != nil {
			return err
		}

		snap := models.ActivitySnapshot{
			ID:           id,
			Name:         name,
			Date:         req.Date,
			ServiceHours: req.ServiceHours,
			Area:         prev.Area,
			Blocked:      prev.Blocked,
		}
		if err := h.Assignments.SyncActivitySnapshot(ctx, snap); err != nil {
			return err
		}

		// Completed assignments already credited the old base hours; move
		// every affected ledger by the difference.
		if delta := req.ServiceHours - prev.ServiceHours; delta != 0 {
			done, err := h.Assignments.ListCompletedByActivity(ctx, id)
			if err != nil {
				return err
			}
			for i := range done {
				if err := h.Users.AdjustServiceHours(ctx, done[i].User.ID, prev.Area, delta); err != nil {
					return err
				}
			}
		}

		prevIDs := make([]primitive.ObjectID, 0, len(prev.Responsible))
		for _, u := range prev.Responsible {
			prevIDs = append(prevIDs, u.ID)
		}
		added, removed := authz.Diff(prevIDs, newIDs)
		if err := h.Users.AddRole(ctx, added, authz.RoleActivityResponsible); err != nil {
			return err
		}
		revoked, err := h.revokeOrphanedRole(ctx, removed, id)
		if err != nil {
			return err
		}
		touched = append(added, revoked...)
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if errors.Is(err, activitystore.ErrDuplicateActivityName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe una actividad con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la actividad.")
		return
	}

	h.forceLogout(ctx, touched)

	updated, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la actividad.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// canManage reports whether the session user may administer the activity:
// admins, the owning area's responsible users, and the activity's own
// responsible users.
func (h *Handler) canManage(ctx context.Context, su *auth.SessionUser, a *models.Activity) bool {
	if su.HasRole(authz.RoleAdmin) || a.IsResponsible(su.ID) {
		return true
	}
	area, err := h.Areas.GetByID(ctx, a.Area.ID)
	if err != nil {
		return false
	}
	return area.IsResponsible(su.ID)
}

// revokeOrphanedRole drops the activity-responsible role from the removed
// users that are not responsible for any other activity.
func (h *Handler) revokeOrphanedRole(ctx context.Context, removed []primitive.ObjectID, activityID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var revoke []primitive.ObjectID
	for _, uid := range removed {
		n, err := h.Activities.CountWhereResponsible(ctx, uid, activityID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			revoke = append(revoke, uid)
		}
	}
	if err := h.Users.RemoveRole(ctx, revoke, authz.RoleActivityResponsible); err != nil {
		return nil, err
	}
	return revoke, nil
}
