package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithUser adds a signed-in user to the request context for handler tests.
// This bypasses the token middleware and injects the identity directly.
func WithUser(r *http.Request, u models.User) *http.Request {
	su := &auth.SessionUser{
		ID:        u.ID,
		Code:      u.Code,
		Name:      u.Name,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Promotion: u.Promotion,
		Roles:     u.Role,
		SessionID: primitive.NewObjectID(),
	}
	return auth.WithTestUser(r, su)
}

// NewJSONRequest builds a request with the given body marshaled as JSON.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	r := httptest.NewRequest(method, target, bytes.NewReader(buf))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// DecodeJSON unmarshals the recorded response body into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
