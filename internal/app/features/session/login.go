// internal/app/features/session/login.go
package session

import (
	"errors"
	"net/http"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Email    string `json:"user"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HandleLogin exchanges email+password for an access/refresh token pair and
// records the session document the refresh grant lives in.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Datos de inicio de sesión inválidos."), "")
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.Write(w, h.Log, apierr.BadRequest("Usuario y contraseña son obligatorios."), "")
		return
	}
	if ok, _ := h.Limiter.Check(r, req.Email); !ok {
		apierr.Write(w, h.Log, apierr.New("Demasiados intentos de inicio de sesión. Intente de nuevo más tarde.", http.StatusTooManyRequests), "")
		return
	}

	u, err := h.Users.GetByEmail(ctx, normalize.Email(req.Email))
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.BadRequest("Usuario o contraseña incorrectos."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al iniciar sesión.")
		return
	}
	if u.Blocked {
		apierr.Write(w, h.Log, apierr.Forbidden("El usuario se encuentra deshabilitado."), "")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Usuario o contraseña incorrectos."), "")
		return
	}

	sess, err := h.Sessions.Create(ctx, u.ID, h.Auth.RefreshTTL())
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al iniciar sesión.")
		return
	}
	access, refresh, err := h.Auth.IssueTokens(&u, sess.ID)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al iniciar sesión.")
		return
	}

	h.Limiter.ResetEmail(req.Email)
	h.Log.Info("user logged in", loggedUserFields(u.ID.Hex(), u.Email)...)
	httpjson.Write(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh})
}
