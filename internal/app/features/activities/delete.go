// internal/app/features/activities/delete.go
package activities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleDelete removes an activity with no enrollments. Responsible users
// lose the activity-responsible role unless another activity still lists them.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}

	n, err := h.Assignments.CountByActivity(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al eliminar la actividad.")
		return
	}
	if n > 0 {
		apierr.Write(w, h.Log, apierr.Conflict("No se puede eliminar la actividad porque tiene becados inscritos."), "")
		return
	}

	var touched []primitive.ObjectID
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a, err := h.Activities.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted, err := h.Activities.Delete(ctx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return mongo.ErrNoDocuments
		}

		ids := make([]primitive.ObjectID, 0, len(a.Responsible))
		for _, u := range a.Responsible {
			ids = append(ids, u.ID)
		}
		revoked, err := h.revokeOrphanedRole(ctx, ids, id)
		if err != nil {
			return err
		}
		touched = revoked
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al eliminar la actividad.")
		return
	}

	h.forceLogout(ctx, touched)
	httpjson.NoContent(w)
}
