// internal/app/features/payments/delete.go
package payments

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

// HandleDelete removes a payment. Charges with evidence or a confirmation
// survive; the rest are dropped, and any activity snapshots or enrollment
// links pointing at them are cleared in the same transaction.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del pago no es válido."), "")
		return
	}

	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		deleted, err := h.Payments.Delete(ctx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return mongo.ErrNoDocuments
		}

		removed, err := h.PayAssigns.DeleteByPayment(ctx, id)
		if err != nil {
			return err
		}
		if err := h.Assignments.ClearPaymentRefs(ctx, removed); err != nil {
			return err
		}
		return h.Activities.SyncPaymentSnapshot(ctx, id, nil)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el pago."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al eliminar el pago.")
		return
	}
	httpjson.NoContent(w)
}
