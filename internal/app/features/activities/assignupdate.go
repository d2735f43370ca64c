// internal/app/features/activities/assignupdate.go
package activities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type updateAssignmentRequest struct {
	Completed              *bool `json:"completed"`
	AdditionalServiceHours *int  `json:"aditionalServiceHours"`
}

// HandleUpdateAssignment edits an enrollment's completion flag and additional
// hours, keeping the user's ledger in step:
//
//	stays completed      -> move by the change in additional hours
//	becomes completed    -> credit base + new additional
//	stops being completed -> debit base + previously credited additional
//	stays not completed  -> ledger untouched
func (h *Handler) HandleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	activityID, userID, err := assignmentIDs(r)
	if err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	var req updateAssignmentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos de la inscripción inválidos."), "")
		return
	}
	if req.Completed == nil && req.AdditionalServiceHours == nil {
		apierr.Write(w, h.Log, apierr.BadRequest("No hay cambios que aplicar."), "")
		return
	}

	activity, err := h.Activities.GetByID(ctx, activityID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la inscripción.")
		return
	}
	if !h.canManage(ctx, su, &activity) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para editar esta inscripción."), "")
		return
	}

	set := bson.M{}
	if req.Completed != nil {
		set["completed"] = *req.Completed
	}
	if req.AdditionalServiceHours != nil {
		set["aditional_service_hours"] = *req.AdditionalServiceHours
	}

	var updated models.Assignment
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		prev, err := h.Assignments.Update(ctx, userID, activityID, set, nil)
		if err != nil {
			return err
		}

		completed := prev.Completed
		if req.Completed != nil {
			completed = *req.Completed
		}
		additional := prev.AdditionalServiceHours
		if req.AdditionalServiceHours != nil {
			additional = *req.AdditionalServiceHours
		}

		var delta int
		switch {
		case prev.Completed && completed:
			delta = additional - prev.AdditionalServiceHours
		case !prev.Completed && completed:
			delta = prev.Activity.ServiceHours + additional
		case prev.Completed && !completed:
			delta = -prev.CreditedHours()
		}
		if delta != 0 {
			if err := h.Users.AdjustServiceHours(ctx, userID, prev.Activity.Area, delta); err != nil {
				return err
			}
		}

		updated, err = h.Assignments.Get(ctx, userID, activityID)
		return err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("El becado no se encuentra inscrito en la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la inscripción.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
