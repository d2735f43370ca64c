// internal/app/features/session/refresh.go
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh exchanges a live refresh token for a fresh access token. The
// refresh grant stays bound to the original session document, so a forced
// logout (role change, block) invalidates it too.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := httpjson.Decode(r, &req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		apierr.Write(w, h.Log, apierr.BadRequest("Se requiere el token de actualización."), "")
		return
	}

	claims, err := h.Auth.Parse(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		apierr.Write(w, h.Log, apierr.New("La sesión ha expirado.", http.StatusUnauthorized), "")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(claims.SessionID)
	if err != nil {
		apierr.Write(w, h.Log, apierr.New("La sesión ha expirado.", http.StatusUnauthorized), "")
		return
	}

	live, err := h.Sessions.Exists(ctx, sessionID)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al renovar la sesión.")
		return
	}
	if !live {
		apierr.Write(w, h.Log, apierr.New("La sesión ha expirado.", http.StatusUnauthorized), "")
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		apierr.Write(w, h.Log, apierr.New("La sesión ha expirado.", http.StatusUnauthorized), "")
		return
	}

	// Claims are re-read from the user document so a renamed or re-roled user
	// gets a token matching current state.
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.New("La sesión ha expirado.", http.StatusUnauthorized), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al renovar la sesión.")
		return
	}
	if u.Blocked {
		apierr.Write(w, h.Log, apierr.Forbidden("El usuario se encuentra deshabilitado."), "")
		return
	}

	access, _, err := h.Auth.IssueTokens(&u, sessionID)
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al renovar la sesión.")
		return
	}
	httpjson.Write(w, http.StatusOK, tokenResponse{AccessToken: access})
}

func loggedUserFields(id, email string) []zap.Field {
	return []zap.Field{zap.String("user_id", id), zap.String("email", email)}
}
