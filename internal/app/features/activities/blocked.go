// internal/app/features/activities/blocked.go
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

func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

// setBlocked toggles the flag and pushes the refreshed snapshot into every
// assignment of the activity.
func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la actividad no es válido."), "")
		return
	}

	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a, err := h.Activities.SetBlocked(ctx, id, blocked)
		if err != nil {
			return err
		}
		return h.Assignments.SyncActivitySnapshot(ctx, a.Snapshot())
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la actividad."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar la actividad.")
		return
	}
	httpjson.NoContent(w)
}
