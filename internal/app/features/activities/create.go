// internal/app/features/activities/create.go
package activities

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	activitystore "github.com/dalemusser/servicehub/internal/app/store/activities"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/promos"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createActivityRequest struct {
	Name                    string    `json:"name"`
	AreaID                  string    `json:"idAsigboArea"`
	Date                    time.Time `json:"date"`
	ServiceHours            int       `json:"serviceHours"`
	Responsible             []string  `json:"responsible"`
	RegistrationStartDate   time.Time `json:"registrationStartDate"`
	RegistrationEndDate     time.Time `json:"registrationEndDate"`
	ParticipatingPromotions []string  `json:"participatingPromotions"`
	ParticipantsNumber      int       `json:"participantsNumber"`
	PaymentAmount           string    `json:"paymentAmount"`
}

func (req *createActivityRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return apierr.BadRequest("El nombre de la actividad es obligatorio.")
	}
	if req.Date.IsZero() {
		return apierr.BadRequest("La fecha de la actividad es obligatoria.")
	}
	if req.ServiceHours < 0 {
		return apierr.BadRequest("Las horas de servicio no pueden ser negativas.")
	}
	if req.ParticipantsNumber <= 0 {
		return apierr.BadRequest("El número de participantes debe ser mayor a cero.")
	}
	if len(req.Responsible) == 0 {
		return apierr.BadRequest("Debe proporcionar al menos un encargado.")
	}
	if req.RegistrationEndDate.Before(req.RegistrationStartDate) {
		return apierr.BadRequest("El periodo de inscripción no es válido.")
	}
	for _, p := range req.ParticipatingPromotions {
		if promos.Known(p) {
			continue
		}
		if y, err := strconv.Atoi(p); err == nil && y >= 2000 && y <= 2100 {
			continue
		}
		return apierr.BadRequest("Alguna de las promociones participantes no es válida.")
	}
	return nil
}

// HandleCreate registers an activity inside an area. Callable by admins and
// by the area's own responsible users. A non-empty paymentAmount also creates
// the activity's payment, with the responsible users as treasurers.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	var req createActivityRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos de la actividad inválidos."), "")
		return
	}
	if err := req.validate(); err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	areaID, err := primitive.ObjectIDFromHex(req.AreaID)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}
	area, err := h.Areas.GetByID(ctx, areaID)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El eje de la actividad no existe."), "Ocurrió un error al crear la actividad.")
		return
	}
	if area.Blocked {
		apierr.Write(w, h.Log, apierr.BadRequest("El eje de la actividad se encuentra deshabilitado."), "")
		return
	}
	if !su.HasRole(authz.RoleAdmin) && !area.IsResponsible(su.ID) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para crear actividades en este eje."), "")
		return
	}

	responsible, ids, err := h.resolveUsers(ctx, req.Responsible)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear la actividad.")
		return
	}

	var paySnap *models.PaymentSnapshot
	if strings.TrimSpace(req.PaymentAmount) != "" {
		amount, err := decimal.NewFromString(req.PaymentAmount)
		if err != nil || amount.IsNegative() || amount.IsZero() {
			apierr.Write(w, h.Log, apierr.BadRequest("El monto del pago no es válido."), "")
			return
		}
		dec, err := primitive.ParseDecimal128(amount.String())
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("El monto del pago no es válido."), "")
			return
		}
		paySnap = &models.PaymentSnapshot{Amount: dec}
	}

	var activity models.Activity
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		if paySnap != nil {
			p, err := h.Payments.Create(ctx, models.Payment{
				Name:            normalize.Name(req.Name),
				LimitDate:       req.Date,
				Amount:          paySnap.Amount,
				Treasurer:       responsible,
				ActivityPayment: true,
			})
			if err != nil {
				return err
			}
			s := p.Snapshot()
			paySnap = &s
		}

		a, err := h.Activities.Create(ctx, models.Activity{
			Name:                    normalize.Name(req.Name),
			Date:                    req.Date,
			ServiceHours:            req.ServiceHours,
			Responsible:             responsible,
			Area:                    area.Snapshot(),
			Payment:                 paySnap,
			RegistrationStartDate:   req.RegistrationStartDate,
			RegistrationEndDate:     req.RegistrationEndDate,
			ParticipatingPromotions: req.ParticipatingPromotions,
			AvailableSpaces:         req.ParticipantsNumber,
		})
		if err != nil {
			return err
		}
		activity = a
		return h.Users.AddRole(ctx, ids, authz.RoleActivityResponsible)
	})
	if errors.Is(err, activitystore.ErrDuplicateActivityName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe una actividad con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear la actividad.")
		return
	}

	h.forceLogout(ctx, ids)
	httpjson.Write(w, http.StatusCreated, activity)
}

// resolveUsers parses and loads a list of users; all must exist and be
// unblocked.
func (h *Handler) resolveUsers(ctx context.Context, hexIDs []string) ([]models.UserSnapshot, []primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	seen := map[primitive.ObjectID]bool{}
	for _, s := range hexIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, nil, apierr.BadRequest("El id de un encargado no es válido.")
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
		return nil, nil, apierr.BadRequest("Alguno de los encargados no existe.")
	}
	for i := range us {
		if us[i].Blocked {
			return nil, nil, apierr.BadRequest("Alguno de los encargados se encuentra deshabilitado.")
		}
	}
	return models.UserSnapshots(us), ids, nil
}

func (h *Handler) forceLogout(ctx context.Context, ids []primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	if err := h.Sessions.DeleteByUsers(ctx, ids); err != nil {
		h.Log.Warn("forced logout failed", zap.Int("users", len(ids)), zap.Error(err))
	}
}
