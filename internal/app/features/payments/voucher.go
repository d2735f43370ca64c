// internal/app/features/payments/voucher.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/limits"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleComplete appends voucher evidence to a charge and marks it paid,
// pending the treasurer's confirmation. Vouchers arrive as multipart files
// and are stored under uuid-prefixed keys; resubmissions accumulate instead
// of replacing earlier files.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	pa, ok := h.loadCharge(w, r)
	if !ok {
		return
	}
	if su.ID != pa.User.ID && !h.canAdminister(ctx, su, pa.Payment.ID) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para completar este pago."), "")
		return
	}
	if pa.Confirmed {
		apierr.Write(w, h.Log, apierr.Conflict("El pago ya fue confirmado."), "")
		return
	}

	if err := r.ParseMultipartForm(limits.MaxVoucherUpload); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe adjuntar los comprobantes del pago."), "")
		return
	}
	files := r.MultipartForm.File["voucher"]
	if len(files) == 0 {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe adjuntar los comprobantes del pago."), "")
		return
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			apierr.Write(w, h.Log, err, "Ocurrió un error al guardar los comprobantes.")
			return
		}
		key := fmt.Sprintf("vouchers/%s-%s", uuid.New().String()[:8], filepath.Base(fh.Filename))
		err = h.Storage.Put(ctx, key, f, &storage.PutOptions{ContentType: fh.Header.Get("Content-Type")})
		f.Close()
		if err != nil {
			apierr.Write(w, h.Log, err, "Ocurrió un error al guardar los comprobantes.")
			return
		}
		keys = append(keys, key)
	}

	updated, err := h.PayAssigns.Complete(ctx, pa.ID, keys)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al completar el pago.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// HandleConfirm is the treasurer's sign-off: the charge settles and any
// enrollment waiting on it stops being payment-pending.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	pa, ok := h.loadCharge(w, r)
	if !ok {
		return
	}
	if !h.canAdminister(ctx, su, pa.Payment.ID) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para confirmar este pago."), "")
		return
	}

	var updated models.PaymentAssignment
	err := txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		var err error
		updated, err = h.PayAssigns.Confirm(ctx, pa.ID)
		if err != nil {
			return err
		}
		return h.Assignments.SetPendingPayment(ctx, pa.ID, false)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.Conflict("El pago aún no ha sido completado."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al confirmar el pago.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// HandleReset rejects the evidence: flags drop and the linked enrollment goes
// back to payment-pending. The voucher files stay put; a charge that once
// carried evidence is never deletable again.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	pa, ok := h.loadCharge(w, r)
	if !ok {
		return
	}
	if !h.canAdminister(ctx, su, pa.Payment.ID) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para rechazar este pago."), "")
		return
	}

	err := txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		if _, err := h.PayAssigns.Reset(ctx, pa.ID); err != nil {
			return err
		}
		return h.Assignments.SetPendingPayment(ctx, pa.ID, true)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la asignación del pago."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al rechazar el pago.")
		return
	}

	httpjson.NoContent(w)
}

func (h *Handler) loadCharge(w http.ResponseWriter, r *http.Request) (models.PaymentAssignment, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id de la asignación no es válido."), "")
		return models.PaymentAssignment{}, false
	}
	pa, err := h.PayAssigns.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró la asignación del pago."), "")
		return models.PaymentAssignment{}, false
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar la asignación del pago.")
		return models.PaymentAssignment{}, false
	}
	return pa, true
}

// canAdminister reports whether the session user is an admin or a treasurer
// of the payment. A failed payment lookup denies.
func (h *Handler) canAdminister(ctx context.Context, su *auth.SessionUser, paymentID primitive.ObjectID) bool {
	if su.HasRole(authz.RoleAdmin) {
		return true
	}
	p, err := h.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return false
	}
	for _, t := range p.Treasurer {
		if t.ID == su.ID {
			return true
		}
	}
	return false
}
