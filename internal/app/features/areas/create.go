// internal/app/features/areas/create.go
package areas

import (
	"context"
	"errors"
	"net/http"
	"strings"

	areastore "github.com/dalemusser/servicehub/internal/app/store/areas"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createAreaRequest struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Responsible []string `json:"responsible"`
}

// HandleCreate registers an area. Every responsible user must exist; they are
// granted the area-responsible role and force-logged-out so their next token
// carries it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAreaRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos del eje inválidos."), "")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apierr.Write(w, h.Log, apierr.BadRequest("El nombre del eje es obligatorio."), "")
		return
	}

	responsible, ids, err := h.resolveResponsible(ctx, req.Responsible)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el eje.")
		return
	}

	var area models.Area
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		a, err := h.Areas.Create(ctx, models.Area{
			Name:        normalize.Name(req.Name),
			Color:       req.Color,
			Responsible: responsible,
		})
		if err != nil {
			return err
		}
		area = a
		return h.Users.AddRole(ctx, ids, authz.RoleAreaResponsible)
	})
	if errors.Is(err, areastore.ErrDuplicateAreaName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un eje con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el eje.")
		return
	}

	h.forceLogout(ctx, ids)
	httpjson.Write(w, http.StatusCreated, area)
}

// resolveResponsible parses and loads the responsible users. All of them must
// exist and be unblocked.
func (h *Handler) resolveResponsible(ctx context.Context, hexIDs []string) ([]models.UserSnapshot, []primitive.ObjectID, error) {
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

// forceLogout drops the sessions of users whose role set changed. Best
// effort: the grant is already committed and their next login picks it up.
func (h *Handler) forceLogout(ctx context.Context, ids []primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	if err := h.Sessions.DeleteByUsers(ctx, ids); err != nil {
		h.Log.Warn("forced logout failed", zap.Int("users", len(ids)), zap.Error(err))
	}
}
