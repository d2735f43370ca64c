// internal/app/features/areas/delete.go
package areas

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

// HandleDelete removes an area. Refused while activities still reference it;
// historical user ledger entries keep their last snapshot. Responsible users
// lose the role flag under the last-holder rule.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}

	n, err := h.Activities.CountByArea(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al eliminar el eje.")
		return
	}
	if n > 0 {
		apierr.Write(w, h.Log, apierr.Conflict("No se puede eliminar el eje porque tiene actividades asociadas."), "")
		return
	}

	var touched []primitive.ObjectID
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		area, err := h.Areas.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted, err := h.Areas.Delete(ctx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return mongo.ErrNoDocuments
		}

		removed := make([]primitive.ObjectID, 0, len(area.Responsible))
		for _, u := range area.Responsible {
			removed = append(removed, u.ID)
		}
		revoked, err := h.revokeOrphanedRole(ctx, removed, id)
		if err != nil {
			return err
		}
		touched = revoked
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el eje."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al eliminar el eje.")
		return
	}

	h.forceLogout(ctx, touched)
	httpjson.NoContent(w)
}
