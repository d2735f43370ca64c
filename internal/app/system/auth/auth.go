// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Token types carried in the "type" claim.
const (
	TokenAccess  = "ACCESS"
	TokenRefresh = "REFRESH"
)

// SessionUser is the authenticated identity injected into r.Context().
type SessionUser struct {
	ID        primitive.ObjectID
	Code      int
	Name      string
	Lastname  string
	Email     string
	Promotion int
	Roles     []string
	SessionID primitive.ObjectID
}

// HasRole reports whether the user carries the given role flag.
func (u *SessionUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the given flags.
func (u *SessionUser) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Code      int      `json:"code"`
	Name      string   `json:"name"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Promotion int      `json:"promotion"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"type"`
	SessionID string   `json:"sessionId"`
}

// Manager issues and verifies bearer tokens and loads the request user.
// Tokens reference a session document; deleting the session invalidates every
// token that names it, so role changes and blocks take effect immediately.
type Manager struct {
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessions   *sessionstore.Store
	log        *zap.Logger
}

// NewManager builds a Manager. The signing key must not be empty.
func NewManager(signKey string, accessTTL, refreshTTL time.Duration, sessions *sessionstore.Store, logger *zap.Logger) (*Manager, error) {
	if strings.TrimSpace(signKey) == "" {
		return nil, errors.New("auth: empty JWT signing key")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{
		signKey:    []byte(signKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessions:   sessions,
		log:        logger,
	}, nil
}

// RefreshTTL exposes the refresh lifetime so login can size the session doc.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueTokens signs an access/refresh pair for the user bound to sessionID.
func (m *Manager) IssueTokens(u *models.User, sessionID primitive.ObjectID) (access, refresh string, err error) {
	access, err = m.sign(u, sessionID, TokenAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(u, sessionID, TokenRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) sign(u *models.User, sessionID primitive.ObjectID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Code:      u.Code,
		Name:      u.Name,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Promotion: u.Promotion,
		Roles:     u.Role,
		TokenType: tokenType,
		SessionID: sessionID.Hex(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
}

// Parse verifies the token signature and expiry and checks the token type.
func (m *Manager) Parse(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.TokenType != wantType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SessionUserFromClaims converts verified claims into the context identity.
func SessionUserFromClaims(c *Claims) (*SessionUser, error) {
	id, err := primitive.ObjectIDFromHex(c.Subject)
	if err != nil {
		return nil, err
	}
	sessionID, err := primitive.ObjectIDFromHex(c.SessionID)
	if err != nil {
		return nil, err
	}
	return &SessionUser{
		ID:        id,
		Code:      c.Code,
		Name:      c.Name,
		Lastname:  c.Lastname,
		Email:     c.Email,
		Promotion: c.Promotion,
		Roles:     c.Roles,
		SessionID: sessionID,
	}, nil
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the request user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a user into the request context. Test helper.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadUser parses the Authorization bearer token, verifies the session is
// still live, and injects the user into context. Requests without a valid
// token continue anonymously; role middleware decides what that means.
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.Parse(token, TokenAccess)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		u, err := SessionUserFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		// A deleted session means the user was force-logged-out (role change,
		// block): the token is no longer honored even though it verifies.
		live, err := m.sessions.Exists(r.Context(), u.SessionID)
		if err != nil {
			m.log.Warn("session lookup failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !live {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn rejects anonymous requests with the 401 envelope.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			apierr.Write(w, nil, apierr.New("No se ha autenticado el usuario.", http.StatusUnauthorized), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles allows only signed-in users carrying at least one of the given
// role flags. The message is the one the route advertises for 403s.
func RequireRoles(message string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				apierr.Write(w, nil, apierr.New("No se ha autenticado el usuario.", http.StatusUnauthorized), "")
				return
			}
			if !u.HasAnyRole(roles...) {
				apierr.Write(w, nil, apierr.Forbidden(message), "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
