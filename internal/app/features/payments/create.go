// internal/app/features/payments/create.go
package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	paymentstore "github.com/dalemusser/servicehub/internal/app/store/payments"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type paymentRequest struct {
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	LimitDate   time.Time `json:"limitDate"`
	Description string    `json:"description"`
	Treasurer   []string  `json:"treasurer"`
	TargetUsers string    `json:"targetUsers"`
}

func (req *paymentRequest) parseAmount() (primitive.Decimal128, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || amount.IsNegative() || amount.IsZero() {
		return primitive.Decimal128{}, apierr.BadRequest("El monto del pago no es válido.")
	}
	dec, err := primitive.ParseDecimal128(amount.String())
	if err != nil {
		return primitive.Decimal128{}, apierr.BadRequest("El monto del pago no es válido.")
	}
	return dec, nil
}

func (req *paymentRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return apierr.BadRequest("El nombre del pago es obligatorio.")
	}
	if req.LimitDate.IsZero() {
		return apierr.BadRequest("La fecha límite del pago es obligatoria.")
	}
	return nil
}

// HandleCreate registers a standalone payment with its treasurers.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el pago.")
		return
	}

	p, err := h.Payments.Create(ctx, models.Payment{
		Name:        normalize.Name(req.Name),
		LimitDate:   req.LimitDate,
		Amount:      amount,
		Description: strings.TrimSpace(req.Description),
		Treasurer:   treasurer,
		TargetUsers: strings.TrimSpace(req.TargetUsers),
	})
	if errors.Is(err, paymentstore.ErrDuplicatePaymentName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un pago con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el pago.")
		return
	}
	httpjson.Write(w, http.StatusCreated, p)
}

// resolveUsers parses and loads a list of users; all must exist and be
// unblocked.
func (h *Handler) resolveUsers(ctx context.Context, hexIDs []string) ([]models.UserSnapshot, []primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	seen := map[primitive.ObjectID]bool{}
	for _, s := range hexIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, nil, apierr.BadRequest("El id de un usuario no es válido.")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	us, err := h.Users.GetManyByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(us) != len(ids) {
		return nil, nil, apierr.BadRequest("Alguno de los usuarios no existe.")
	}
	for i := range us {
		if us[i].Blocked {
			return nil, nil, apierr.BadRequest("Alguno de los usuarios se encuentra deshabilitado.")
		}
	}
	return models.UserSnapshots(us), ids, nil
}
