// internal/app/features/payments/update.go
package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	paymentstore "github.com/dalemusser/servicehub/internal/app/store/payments"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleUpdate edits a payment and cascades the refreshed snapshot into the
// activities that sell it and every charge raised from it. Payments generated
// by an activity follow the activity and are not editable here.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del pago no es válido."), "")
		return
	}

	var req paymentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos del pago inválidos."), "")
		return
	}
	if err := req.validate(); err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}
	amount, err := req.parseAmount()
	if err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	treasurer, _, err := h.resolveUsers(ctx, req.Treasurer)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el pago.")
		return
	}

	current, err := h.Payments.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el pago."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el pago.")
		return
	}
	if current.ActivityPayment {
		apierr.Write(w, h.Log, apierr.Conflict("No se puede editar un pago generado por una actividad."), "")
		return
	}

	name := normalize.Name(req.Name)
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		_, err := h.Payments.Update(ctx, id, bson.M{
			"name":         name,
			"limit_date":   req.LimitDate,
			"amount":       amount,
			"description":  strings.TrimSpace(req.Description),
			"treasurer":    treasurer,
			"target_users": strings.TrimSpace(req.TargetUsers),
		})
		if err != nil {
			return err
		}

		snap := models.PaymentSnapshot{ID: id, Name: name, LimitDate: req.LimitDate, Amount: amount}
		if err := h.Activities.SyncPaymentSnapshot(ctx, id, &snap); err != nil {
			return err
		}
		return h.PayAssigns.SyncPaymentSnapshot(ctx, snap)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el pago."), "")
		return
	}
	if errors.Is(err, paymentstore.ErrDuplicatePaymentName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un pago con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el pago.")
		return
	}

	updated, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el pago.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
