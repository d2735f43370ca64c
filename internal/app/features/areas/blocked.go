// internal/app/features/areas/blocked.go
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

// HandleDisable blocks the area and cascades the blocked snapshot.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// HandleEnable unblocks the area and cascades the snapshot.
func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}

	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a, err := h.Areas.SetBlocked(ctx, id, blocked)
		if err != nil {
			return err
		}
		return h.cascadeSnapshot(ctx, a.Snapshot())
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el eje."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el eje.")
		return
	}
	httpjson.NoContent(w)
}
