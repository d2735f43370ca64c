// internal/app/features/activities/unassign.go
package activities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleUnassign removes an enrollment: the space is released, a completed
// enrollment's hours are debited, and an unpaid charge created by the
// enrollment is dropped. One transaction.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	activityID, userID, err := assignmentIDs(r)
	if err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	activity, err := h.Activities.GetByID(ctx, activityID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al retirar al becado.")
		return
	}
	if userID != su.ID && !h.canManage(ctx, su, &activity) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para retirar a este becado."), "")
		return
	}

	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a, err := h.Assignments.Delete(ctx, userID, activityID)
		if err != nil {
			return err
		}
		if err := h.Activities.AddAvailableSpaces(ctx, activityID, 1); err != nil {
			return err
		}
		if a.Completed {
			if err := h.Users.AdjustServiceHours(ctx, userID, a.Activity.Area, -a.CreditedHours()); err != nil {
				return err
			}
		}
		if a.PaymentAssignmentID != nil {
			// Drop the charge only while nothing has been paid against it.
			_, err := h.PayAssigns.DeleteUncompleted(ctx, *a.PaymentAssignmentID)
			if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("El becado no se encuentra inscrito en la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al retirar al becado.")
		return
	}
	httpjson.NoContent(w)
}
