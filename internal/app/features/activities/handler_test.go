package activities_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/servicehub/internal/app/features/activities"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/testutil"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func assignRequest(t *testing.T, u models.User, activityID, userID string, body map[string]any) *http.Request {
	t.Helper()
	r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/activity/x/assignment/y", body), u)
	r = testutil.WithChiURLParam(r, "id", activityID)
	return testutil.WithChiURLParam(r, "idUser", userID)
}

func TestHandleCreateWithPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	resp := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)

	rec := httptest.NewRecorder()
	r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/activity", map[string]any{
		"name":                  "Jornada médica",
		"idAsigboArea":          area.ID.Hex(),
		"date":                  "2026-10-20T08:00:00Z",
		"serviceHours":          6,
		"responsible":           []string{resp.ID.Hex()},
		"registrationStartDate": "2026-09-01T00:00:00Z",
		"registrationEndDate":   "2026-10-15T00:00:00Z",
		"participantsNumber":    25,
		"paymentAmount":         "75.50",
	}), admin)
	h.HandleCreate(rec, r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created models.Activity
	testutil.DecodeJSON(t, rec, &created)
	if created.AvailableSpaces != 25 {
		t.Errorf("availableSpaces = %d, want 25", created.AvailableSpaces)
	}
	if created.Payment == nil {
		t.Fatal("no payment snapshot on the activity")
	}
	p, err := h.Payments.GetByID(ctx, created.Payment.ID)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !p.ActivityPayment {
		t.Error("payment not flagged as activity payment")
	}
	if len(p.Treasurer) != 1 || p.Treasurer[0].ID != resp.ID {
		t.Errorf("treasurer = %+v", p.Treasurer)
	}

	got, err := h.Users.GetByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.HasRole(authz.RoleActivityResponsible) {
		t.Errorf("roles = %v, want activity responsible", got.Role)
	}
}

func TestHandleAssignLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 6, 10)

	rec := httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u.ID.Hex(), map[string]any{"completed": true}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("assign: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	gotAct, err := h.Activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if gotAct.AvailableSpaces != 9 {
		t.Errorf("availableSpaces = %d, want 9", gotAct.AvailableSpaces)
	}
	gotUser, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if gotUser.ServiceHours.Total != 6 {
		t.Errorf("total hours = %d, want 6", gotUser.ServiceHours.Total)
	}

	// Re-assigning the same pair is rejected.
	rec = httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u.ID.Hex(), nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate assign: status = %d, want 409", rec.Code)
	}

	// Unassigning releases the space and debits the hours.
	rec = httptest.NewRecorder()
	r := testutil.WithUser(httptest.NewRequest(http.MethodDelete, "/api/activity/x/assignment/y", nil), admin)
	r = testutil.WithChiURLParam(r, "id", act.ID.Hex())
	h.HandleUnassign(rec, testutil.WithChiURLParam(r, "idUser", u.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unassign: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	gotAct, _ = h.Activities.GetByID(ctx, act.ID)
	if gotAct.AvailableSpaces != 10 {
		t.Errorf("availableSpaces after unassign = %d, want 10", gotAct.AvailableSpaces)
	}
	gotUser, _ = h.Users.GetByID(ctx, u.ID)
	if gotUser.ServiceHours.Total != 0 {
		t.Errorf("total hours after unassign = %d, want 0", gotUser.ServiceHours.Total)
	}
}

func TestHandleAssignCapacity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u1 := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	u2 := f.CreateUser(ctx, 3, "Berta", "Gomez", "berta@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 4, 1)

	rec := httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u1.ID.Hex(), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first assign: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u2.ID.Hex(), nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("full activity: status = %d, want 409 (%s)", rec.Code, rec.Body.String())
	}
}

func TestHandleAssignPromotionRestriction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	if _, err := h.Activities.Update(ctx, act.ID, bson.M{"participating_promotions": []string{"2020"}}); err != nil {
		t.Fatalf("restrict: %v", err)
	}

	rec := httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u.ID.Hex(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("restricted promotion: status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}

	if _, err := h.Activities.Update(ctx, act.ID, bson.M{"participating_promotions": []string{"2024"}}); err != nil {
		t.Fatalf("restrict: %v", err)
	}
	rec = httptest.NewRecorder()
	h.HandleAssign(rec, assignRequest(t, admin, act.ID.Hex(), u.ID.Hex(), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("allowed promotion: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUpdateRecreditsHours(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 6, 10)
	f.CreateAssignment(ctx, u, act, true)
	if err := h.Users.AdjustServiceHours(ctx, u.ID, area.Snapshot(), 6); err != nil {
		t.Fatalf("seed hours: %v", err)
	}

	rec := httptest.NewRecorder()
	r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, "/api/activity/x", map[string]any{
		"name":                  "Jornada",
		"idAsigboArea":          area.ID.Hex(),
		"date":                  act.Date,
		"serviceHours":          10,
		"responsible":           []string{},
		"registrationStartDate": act.RegistrationStartDate,
		"registrationEndDate":   act.RegistrationEndDate,
		"participantsNumber":    10,
	}), admin)
	h.HandleUpdate(rec, testutil.WithChiURLParam(r, "id", act.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	gotUser, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if gotUser.ServiceHours.Total != 10 {
		t.Errorf("total hours = %d, want 10", gotUser.ServiceHours.Total)
	}
	gotAssign, err := h.Assignments.Get(ctx, u.ID, act.ID)
	if err != nil {
		t.Fatalf("assignment: %v", err)
	}
	if gotAssign.Activity.ServiceHours != 10 {
		t.Errorf("assignment activity copy hours = %d, want 10", gotAssign.Activity.ServiceHours)
	}

	// One enrollment exists, so the capacity floor is 1.
	got, err := h.Activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if got.AvailableSpaces != 9 {
		t.Errorf("availableSpaces = %d, want 9", got.AvailableSpaces)
	}
}

func TestHandleUpdateAssignmentHourBranches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 6, 10)
	f.CreateAssignment(ctx, u, act, false)

	patch := func(body map[string]any) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, "/api/activity/x/assignment/y", body), admin)
		r = testutil.WithChiURLParam(r, "id", act.ID.Hex())
		h.HandleUpdateAssignment(rec, testutil.WithChiURLParam(r, "idUser", u.ID.Hex()))
		return rec
	}
	total := func() int {
		got, err := h.Users.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("user: %v", err)
		}
		return got.ServiceHours.Total
	}

	// Not completed: additional hours alone move nothing.
	if rec := patch(map[string]any{"aditionalServiceHours": 2}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := total(); got != 0 {
		t.Fatalf("after additional while open: total = %d, want 0", got)
	}

	// Completing credits base + current additional.
	if rec := patch(map[string]any{"completed": true}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := total(); got != 8 {
		t.Fatalf("after completion: total = %d, want 8", got)
	}

	// Changing additional while completed moves the difference.
	if rec := patch(map[string]any{"aditionalServiceHours": 5}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := total(); got != 11 {
		t.Fatalf("after additional change: total = %d, want 11", got)
	}

	// Reopening debits everything previously credited.
	if rec := patch(map[string]any{"completed": false}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := total(); got != 0 {
		t.Fatalf("after reopening: total = %d, want 0", got)
	}
}

func TestHandleDeleteGuardedByAssignments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	f.CreateAssignment(ctx, u, act, false)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/activity/x", nil)
	h.HandleDelete(rec, testutil.WithChiURLParam(r, "id", act.ID.Hex()))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", rec.Code, rec.Body.String())
	}

	empty := f.CreateActivity(ctx, "Charla", area, 2, 5)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/api/activity/x", nil)
	h.HandleDelete(rec, testutil.WithChiURLParam(r, "id", empty.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleAssignManyBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	u1 := f.CreateUser(ctx, 2, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	u2 := f.CreateUser(ctx, 3, "Luis", "Monzón", "luis@example.com", 2023, authz.RoleScholarshipHolder)
	u3 := f.CreateUser(ctx, 4, "Marta", "Orellana", "marta@example.com", 2022, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", admin)
	act := f.CreateActivity(ctx, "Jornada médica", area, 4, 3)

	rec := httptest.NewRecorder()
	r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/activity/assignMany", map[string]any{
		"idActivity": act.ID.Hex(),
		"users":      []string{u1.ID.Hex(), u2.ID.Hex()},
	}), admin)
	h.HandleAssignMany(rec, r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created []models.Assignment
	testutil.DecodeJSON(t, rec, &created)
	if len(created) != 2 {
		t.Fatalf("created %d assignments, want 2", len(created))
	}

	after, err := h.Activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if after.AvailableSpaces != 1 {
		t.Errorf("availableSpaces = %d, want 1", after.AvailableSpaces)
	}

	// A batch larger than the remaining capacity is refused whole.
	rec = httptest.NewRecorder()
	r = testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/activity/assignMany", map[string]any{
		"idActivity": act.ID.Hex(),
		"users":      []string{u3.ID.Hex(), admin.ID.Hex()},
	}), admin)
	h.HandleAssignMany(rec, r)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", rec.Code, rec.Body.String())
	}
}

func TestHandleCreateRequiresResponsible(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := activities.NewHandler(db, zap.NewNop())

	admin := f.CreateUser(ctx, 1, "Root", "Admin", "admin@example.com", 2020, authz.RoleAdmin)
	area := f.CreateArea(ctx, "Salud", admin)

	rec := httptest.NewRecorder()
	r := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/activity", map[string]any{
		"name":                  "Jornada sin encargados",
		"idAsigboArea":          area.ID.Hex(),
		"date":                  "2026-10-20T08:00:00Z",
		"serviceHours":          4,
		"responsible":           []string{},
		"registrationStartDate": "2026-09-01T00:00:00Z",
		"registrationEndDate":   "2026-10-15T00:00:00Z",
		"participantsNumber":    10,
	}), admin)
	h.HandleCreate(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
}
