package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/servicehub/internal/app/features/session"
	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/servicehub/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newHandler(t *testing.T) (*session.Handler, *auth.Manager, models.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	users := userstore.New(db)
	u, err := users.Create(ctx, models.User{
		Code:      1,
		Name:      "Ana",
		Lastname:  "Paredes",
		Email:     "ana@example.com",
		Promotion: 2023,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := users.SetPassword(ctx, u.ID, string(hash)); err != nil {
		t.Fatalf("set password: %v", err)
	}

	h := session.NewHandler(db, nil, zap.NewNop())
	mgr, err := auth.NewManager("test-key", time.Minute, time.Hour, h.Sessions, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.Auth = mgr
	return h, mgr, u
}

func TestHandleLogin(t *testing.T) {
	h, _, _ := newHandler(t)

	rec := httptest.NewRecorder()
	r := testutil.NewJSONRequest(t, http.MethodPost, "/api/session/login",
		map[string]string{"user": "Ana@Example.com", "password": "secret123"})
	h.HandleLogin(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", resp)
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	h, _, _ := newHandler(t)

	rec := httptest.NewRecorder()
	r := testutil.NewJSONRequest(t, http.MethodPost, "/api/session/login",
		map[string]string{"user": "ana@example.com", "password": "nope"})
	h.HandleLogin(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleLoginRateLimited(t *testing.T) {
	h, _, _ := newHandler(t)

	var last int
	for i := 0; i < 6; i++ {
		rec := httptest.NewRecorder()
		r := testutil.NewJSONRequest(t, http.MethodPost, "/api/session/login",
			map[string]string{"user": "ana@example.com", "password": "nope"})
		h.HandleLogin(rec, r)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after repeated failures = %d, want 429", last)
	}
}

func TestHandleLoginBlockedUser(t *testing.T) {
	h, _, u := newHandler(t)
	ctx := testutil.TestContext(t)
	if err := h.Users.SetBlocked(ctx, u.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	rec := httptest.NewRecorder()
	r := testutil.NewJSONRequest(t, http.MethodPost, "/api/session/login",
		map[string]string{"user": "ana@example.com", "password": "secret123"})
	h.HandleLogin(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleRefresh(t *testing.T) {
	h, _, _ := newHandler(t)

	rec := httptest.NewRecorder()
	r := testutil.NewJSONRequest(t, http.MethodPost, "/api/session/login",
		map[string]string{"user": "ana@example.com", "password": "secret123"})
	h.HandleLogin(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var login struct {
		RefreshToken string `json:"refreshToken"`
	}
	testutil.DecodeJSON(t, rec, &login)

	rec = httptest.NewRecorder()
	r = testutil.NewJSONRequest(t, http.MethodPost, "/api/session/accessToken",
		map[string]string{"refreshToken": login.RefreshToken})
	h.HandleRefresh(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var refreshed struct {
		AccessToken string `json:"accessToken"`
	}
	testutil.DecodeJSON(t, rec, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("no access token in refresh response")
	}

	// An access token is not accepted as a refresh token.
	rec = httptest.NewRecorder()
	r = testutil.NewJSONRequest(t, http.MethodPost, "/api/session/accessToken",
		map[string]string{"refreshToken": refreshed.AccessToken})
	h.HandleRefresh(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access-as-refresh status = %d, want 401", rec.Code)
	}
}

func TestHandleLogoutInvalidatesRefresh(t *testing.T) {
	h, mgr, u := newHandler(t)
	ctx := testutil.TestContext(t)

	sess, err := h.Sessions.Create(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	_, refresh, err := mgr.IssueTokens(&u, sess.ID)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	su := &auth.SessionUser{ID: u.ID, Roles: u.Role, SessionID: sess.ID}
	rec := httptest.NewRecorder()
	r := auth.WithTestUser(httptest.NewRequest(http.MethodPost, "/api/session/logout", nil), su)
	h.HandleLogout(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r = testutil.NewJSONRequest(t, http.MethodPost, "/api/session/accessToken",
		map[string]string{"refreshToken": refresh})
	h.HandleRefresh(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout = %d, want 401", rec.Code)
	}
}
