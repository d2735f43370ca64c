// internal/app/features/payments/assign.go
package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type assignPaymentRequest struct {
	Users []string `json:"users"`
}

// HandleAssign raises the payment's charge against a batch of users. Users
// already charged keep their existing record; nothing is double-charged.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del pago no es válido."), "")
		return
	}
	var req assignPaymentRequest
	if err := httpjson.Decode(r, &req); err != nil || len(req.Users) == 0 {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe indicar los usuarios a asignar."), "")
		return
	}

	payment, err := h.Payments.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el pago."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al asignar el pago.")
		return
	}

	snaps, _, err := h.resolveUsers(ctx, req.Users)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al asignar el pago.")
		return
	}

	var charges []models.PaymentAssignment
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		charges = charges[:0]
		for _, u := range snaps {
			pa, err := h.PayAssigns.GetOrCreate(ctx, u, payment.Snapshot())
			if err != nil {
				return err
			}
			charges = append(charges, pa)
		}
		return nil
	})
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al asignar el pago.")
		return
	}
	httpjson.Write(w, http.StatusCreated, charges)
}
