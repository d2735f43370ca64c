// internal/app/features/users/update.go
package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/app/system/txn"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type updateUserRequest struct {
	Name      *string `json:"name"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Promotion *int    `json:"promotion"`
	Sex       *string `json:"sex"`
	Password  *string `json:"password"`
}

// HandleUpdate edits a user's profile. Admins can edit anyone; other callers
// only themselves. The updated snapshot is cascaded into every collection
// that embeds a copy of the user, inside one transaction.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	su, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del usuario no es válido."), "")
		return
	}
	if id != su.ID && !su.HasRole(authz.RoleAdmin) {
		apierr.Write(w, h.Log, apierr.Forbidden("No tiene permisos para editar este usuario."), "")
		return
	}

	var req updateUserRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos del usuario inválidos."), "")
		return
	}

	set := bson.M{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		set["name"] = normalize.Name(*req.Name)
	}
	if req.Lastname != nil && strings.TrimSpace(*req.Lastname) != "" {
		set["lastname"] = normalize.Name(*req.Lastname)
	}
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			apierr.Write(w, h.Log, apierr.BadRequest("El correo electrónico no es válido."), "")
			return
		}
		set["email"] = normalize.Email(*req.Email)
	}
	if req.Promotion != nil {
		if *req.Promotion < 2000 || *req.Promotion > 2100 {
			apierr.Write(w, h.Log, apierr.BadRequest("La promoción debe ser un año entre 2000 y 2100."), "")
			return
		}
		set["promotion"] = *req.Promotion
	}
	if req.Sex != nil {
		if *req.Sex != "M" && *req.Sex != "F" {
			apierr.Write(w, h.Log, apierr.BadRequest("El sexo debe ser M o F."), "")
			return
		}
		set["sex"] = *req.Sex
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			apierr.Write(w, h.Log, apierr.BadRequest("La contraseña debe tener al menos 8 caracteres."), "")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el usuario.")
			return
		}
		set["password_hash"] = string(hash)
	}
	if len(set) == 0 {
		apierr.Write(w, h.Log, apierr.BadRequest("No se indicó ningún campo a actualizar."), "")
		return
	}

	var updated models.User
	err = txn.WithTransaction(ctx, h.DB.Client(), func(ctx context.Context) error {
		if err := h.Users.UpdateInfo(ctx, id, set); err != nil {
			return err
		}
		u, err := h.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated = u

		snap := u.Snapshot()
		if err := h.Areas.SyncUserSnapshot(ctx, snap); err != nil {
			return err
		}
		if err := h.Activities.SyncUserSnapshot(ctx, snap); err != nil {
			return err
		}
		if err := h.Assignments.SyncUserSnapshot(ctx, snap); err != nil {
			return err
		}
		if err := h.Payments.SyncUserSnapshot(ctx, snap); err != nil {
			return err
		}
		return h.PayAssigns.SyncUserSnapshot(ctx, snap)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el usuario."), "")
		return
	}
	if errors.Is(err, userstore.ErrDuplicateIdentity) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un usuario con ese código o correo."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el usuario.")
		return
	}

	httpjson.Write(w, http.StatusOK, updated)
}

// HandleDisable blocks the account and force-logs-out every session.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// HandleEnable unblocks the account.
func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del usuario no es válido."), "")
		return
	}

	if err := h.Users.SetBlocked(ctx, id, blocked); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apierr.Write(w, h.Log, apierr.NotFound("No se encontró el usuario."), "")
			return
		}
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el usuario.")
		return
	}

	if blocked {
		if err := h.Sessions.DeleteByUser(ctx, id); err != nil {
			h.Log.Warn("forced logout failed", zap.String("user_id", id.Hex()), zap.Error(err))
		}
	}
	httpjson.NoContent(w)
}

func userLogFields(u *models.User) []zap.Field {
	return []zap.Field{
		zap.String("user_id", u.ID.Hex()),
		zap.Int("code", u.Code),
		zap.String("email", u.Email),
	}
}
