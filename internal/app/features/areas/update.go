// internal/app/features/areas/update.go
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
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type updateAreaRequest struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Responsible []string `json:"responsible"`
}

// HandleUpdate edits an area. The new snapshot is cascaded into activities,
// assignment activity copies, and user ledgers in the same transaction; the
// responsible diff adjusts role flags under the last-holder rule.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}

	var req updateAreaRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos del eje inválidos."), "")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apierr.Write(w, h.Log, apierr.BadRequest("El nombre del eje es obligatorio."), "")
		return
	}

	responsible, newIDs, err := h.resolveResponsible(ctx, req.Responsible)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el eje.")
		return
	}

	var touched []primitive.ObjectID
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		prev, err := h.Areas.Update(ctx, id, normalize.Name(req.Name), req.Color, responsible)
		if err != nil {
			return err
		}

		snap := models.AreaSnapshot{ID: id, Name: normalize.Name(req.Name), Color: req.Color, Blocked: prev.Blocked}
		if err := h.cascadeSnapshot(ctx, snap); err != nil {
			return err
		}

		prevIDs := make([]primitive.ObjectID, 0, len(prev.Responsible))
		for _, u := range prev.Responsible {
			prevIDs = append(prevIDs, u.ID)
		}
		added, removed := authz.Diff(prevIDs, newIDs)
		if err := h.Users.AddRole(ctx, added, authz.RoleAreaResponsible); err != nil {
			return err
		}
		revoked, err := h.revokeOrphanedRole(ctx, removed, id)
		if err != nil {
			return err
		}
		touched = append(added, revoked...)
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el eje."), "")
		return
	}
	if errors.Is(err, areastore.ErrDuplicateAreaName) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un eje con ese nombre."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el eje.")
		return
	}

	h.forceLogout(ctx, touched)

	updated, err := h.Areas.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el eje.")
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// cascadeSnapshot pushes an updated area copy into the three collections that
// embed it.
func (h *Handler) cascadeSnapshot(ctx context.Context, snap models.AreaSnapshot) error {
	if err := h.Activities.SyncAreaSnapshot(ctx, snap); err != nil {
		return err
	}
	if err := h.Assignments.SyncAreaSnapshot(ctx, snap); err != nil {
		return err
	}
	return h.Users.SyncAreaSnapshot(ctx, snap)
}

// revokeOrphanedRole drops the area-responsible flag from removed users that
// are responsible for no other area. Returns the users actually revoked.
func (h *Handler) revokeOrphanedRole(ctx context.Context, removed []primitive.ObjectID, area primitive.ObjectID) ([]primitive.ObjectID, error) {
	var revoke []primitive.ObjectID
	for _, uid := range removed {
		n, err := h.Areas.CountWhereResponsible(ctx, uid, area)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			revoke = append(revoke, uid)
		}
	}
	if err := h.Users.RemoveRole(ctx, revoke, authz.RoleAreaResponsible); err != nil {
		return nil, err
	}
	return revoke, nil
}
