// internal/app/features/payments/get.go
package payments

import (
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleGet returns one payment with its charges.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del pago no es válido."), "")
		return
	}
	p, err := h.Payments.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el pago."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar el pago.")
		return
	}
	if !h.canAdminister(ctx, su, id) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para consultar este pago."), "")
		return
	}

	charges, err := h.PayAssigns.ListByPayment(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar el pago.")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"payment": p, "assignments": charges})
}

// HandleList returns payments. Admins see everything; treasurers see the
// payments they administer.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)

	treasurerID := su.ID
	if su.HasRole(authz.RoleAdmin) {
		treasurerID = primitive.NilObjectID
	}
	ps, err := h.Payments.List(r.Context(), treasurerID)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar los pagos.")
		return
	}
	httpjson.Write(w, http.StatusOK, ps)
}

// HandleListLogged returns the session user's own charges.
func (h *Handler) HandleListLogged(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	charges, err := h.PayAssigns.ListByUser(r.Context(), su.ID)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al consultar los pagos del usuario.")
		return
	}
	httpjson.Write(w, http.StatusOK, charges)
}
