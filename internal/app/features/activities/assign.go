// internal/app/features/activities/assign.go
package activities

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type assignRequest struct {
	Completed bool `json:"completed"`
}

// HandleAssign enrolls one user in an activity. Admins and the activity's
// managers can enroll anyone; a scholarship holder can enroll themself while
// the registration window is open. Capacity, the promotion restriction, the
// space decrement, the optional payment charge, and the hour credit all
// resolve in one transaction.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	activityID, userID, err := assignmentIDs(r)
	if err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	var req assignRequest
	if r.ContentLength > 0 {
		if err := httpjson.Decode(r, &req); err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("Datos de la inscripción inválidos."), "")
			return
		}
	}

	activity, err := h.Activities.GetByID(ctx, activityID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir al becado.")
		return
	}
	if activity.Blocked {
		apierr.Write(w, h.Log, apierr.Conflict("La actividad se encuentra deshabilitada."), "")
		return
	}

	manager := h.canManage(ctx, su, &activity)
	if !manager {
		if userID != su.ID {
			apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para inscribir a este becado."), "")
			return
		}
		now := time.Now()
		if now.Before(activity.RegistrationStartDate) || now.After(activity.RegistrationEndDate) {
			apierr.Write(w, h.Log, apierr.BadRequest("La actividad no se encuentra en periodo de inscripción."), "")
			return
		}
		// Only managers mark an enrollment completed up front.
		req.Completed = false
	}

	user, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el usuario."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir al becado.")
		return
	}
	if user.Blocked {
		apierr.Write(w, h.Log, apierr.BadRequest("El usuario se encuentra deshabilitado."), "")
		return
	}

	if err := h.checkPromotionAllowed(ctx, &activity, user.Promotion); err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir al becado.")
		return
	}

	var created models.Assignment
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a := models.Assignment{
			User:      user.Snapshot(),
			Activity:  activity.Snapshot(),
			Completed: req.Completed,
		}
		if activity.Payment != nil {
			pa, err := h.PayAssigns.GetOrCreate(ctx, user.Snapshot(), *activity.Payment)
			if err != nil {
				return err
			}
			a.PaymentAssignmentID = &pa.ID
			a.PendingPayment = !pa.Confirmed
		}

		created, err = h.Assignments.Insert(ctx, a)
		if err != nil {
			return err
		}
		if err := h.Activities.AddAvailableSpaces(ctx, activityID, -1); err != nil {
			return err
		}
		if req.Completed {
			return h.Users.AdjustServiceHours(ctx, userID, activity.Area, activity.ServiceHours)
		}
		return nil
	})
	switch {
	case errors.Is(err, assignmentstore.ErrAlreadyAssigned):
		apierr.Write(w, h.Log, apierr.Conflict("El becado ya se encuentra inscrito en la actividad."), "")
		return
	case errors.Is(err, activitystore.ErrNoSpaces):
		apierr.Write(w, h.Log, apierr.Conflict("La actividad ya no tiene espacios disponibles."), "")
		return
	case err != nil:
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir al becado.")
		return
	}

	h.Log.Info("user assigned to activity",
		zap.String("activity", activity.Name), zap.Int("userCode", user.Code))
	httpjson.Write(w, http.StatusCreated, created)
}

type assignManyRequest struct {
	Activity string   `json:"idActivity"`
	Users    []string `json:"users"`
}

// HandleAssignMany enrolls a batch of users at once. The capacity guard runs
// a single conditional decrement for the whole batch.
func (h *Handler) HandleAssignMany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req assignManyRequest
	if err := httpjson.Decode(r, &req); err != nil || len(req.Users) == 0 {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe indicar los becados a inscribir."), "")
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.Activity)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}

	snaps, _, err := h.resolveUsers(ctx, req.Users)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir a los becados.")
		return
	}

	var created []models.Assignment
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		activity, err := h.Activities.GetByID(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Blocked {
			return apierr.Conflict("La actividad se encuentra deshabilitada.")
		}
		for _, u := range snaps {
			if err := h.checkPromotionAllowed(ctx, &activity, u.Promotion); err != nil {
				return err
			}
		}

		as := make([]models.Assignment, 0, len(snaps))
		for _, u := range snaps {
			a := models.Assignment{User: u, Activity: activity.Snapshot()}
			if activity.Payment != nil {
				pa, err := h.PayAssigns.GetOrCreate(ctx, u, *activity.Payment)
				if err != nil {
					return err
				}
				a.PaymentAssignmentID = &pa.ID
				a.PendingPayment = !pa.Confirmed
			}
			as = append(as, a)
		}

		created, err = h.Assignments.InsertMany(ctx, as)
		if err != nil {
			return err
		}
		return h.Activities.AddAvailableSpaces(ctx, activityID, -len(as))
	})
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	case errors.Is(err, assignmentstore.ErrAlreadyAssigned):
		apierr.Write(w, h.Log, apierr.Conflict("Alguno de los becados ya se encuentra inscrito en la actividad."), "")
		return
	case errors.Is(err, activitystore.ErrNoSpaces):
		apierr.Write(w, h.Log, apierr.Conflict("La actividad no tiene espacios suficientes para todos los becados."), "")
		return
	case err != nil:
		apierr.Write(w, h.Log, err, "Ocurrió un error al inscribir a los becados.")
		return
	}

	httpjson.Write(w, http.StatusCreated, created)
}

// checkPromotionAllowed enforces the activity's promotion restriction: each
// entry is either a promotion year or a cohort label.
func (h *Handler) checkPromotionAllowed(ctx context.Context, a *models.Activity, promotion int) error {
	if len(a.ParticipatingPromotions) == 0 {
		return nil
	}
	span, err := h.Settings.PromotionSpan(ctx)
	if err != nil {
		return err
	}
	group := promos.Group(promotion, span)
	year := strconv.Itoa(promotion)
	for _, p := range a.ParticipatingPromotions {
		if p == year || p == group {
			return nil
		}
	}
	return apierr.BadRequest("La promoción del becado no participa en esta actividad.")
}

func assignmentIDs(r *http.Request) (activityID, userID primitive.ObjectID, err error) {
	activityID, err = primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return activityID, userID, apierr.BadRequest("El id de la actividad no es válido.")
	}
	userID, err = primitive.ObjectIDFromHex(chi.URLParam(r, "idUser"))
	if err != nil {
		return activityID, userID, apierr.BadRequest("El id del usuario no es válido.")
	}
	return activityID, userID, nil
}
