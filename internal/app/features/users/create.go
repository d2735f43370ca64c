// internal/app/features/users/create.go
package users

import (
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"golang.org/x/crypto/bcrypt"
)

type createUserRequest struct {
	Code      int    `json:"code"`
	Name      string `json:"name"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Promotion int    `json:"promotion"`
	Sex       string `json:"sex"`
	Password  string `json:"password"`
}

func (req *createUserRequest) validate() error {
	switch {
	case req.Code <= 0:
		return apierr.BadRequest("El código del becado es obligatorio.")
	case strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Lastname) == "":
		return apierr.BadRequest("El nombre y apellido son obligatorios.")
	case strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@"):
		return apierr.BadRequest("El correo electrónico no es válido.")
	case req.Promotion < 2000 || req.Promotion > 2100:
		return apierr.BadRequest("La promoción debe ser un año entre 2000 y 2100.")
	case req.Sex != "M" && req.Sex != "F":
		return apierr.BadRequest("El sexo debe ser M o F.")
	case len(req.Password) < 8:
		return apierr.BadRequest("La contraseña debe tener al menos 8 caracteres.")
	}
	return nil
}

// HandleCreate registers a scholarship holder. Admin only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos del usuario inválidos."), "")
		return
	}
	if err := req.validate(); err != nil {
		apierr.Write(w, h.Log, err, "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el usuario.")
		return
	}

	u, err := h.Users.Create(ctx, models.User{
		Code:         req.Code,
		Name:         normalize.Name(req.Name),
		Lastname:     normalize.Name(req.Lastname),
		Email:        normalize.Email(req.Email),
		Promotion:    req.Promotion,
		Sex:          req.Sex,
		Role:         []string{authz.RoleScholarshipHolder},
		PasswordHash: string(hash),
	})
	if errors.Is(err, userstore.ErrDuplicateIdentity) {
		apierr.Write(w, h.Log, apierr.Conflict("Ya existe un usuario con ese código o correo."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al crear el usuario.")
		return
	}

	h.Log.Info("user created", userLogFields(&u)...)
	httpjson.Write(w, http.StatusCreated, u)
}
