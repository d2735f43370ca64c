package payments_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/servicehub/internal/app/features/payments"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/testutil"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestHandleCreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	treasurer := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	outsider := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024, authz.RoleScholarshipHolder)

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/payment", map[string]any{
		"name":      "Cuota anual",
		"amount":    "150.50",
		"limitDate": "2026-12-01T00:00:00Z",
		"treasurer": []string{treasurer.ID.Hex()},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created models.Payment
	testutil.DecodeJSON(t, rec, &created)
	if created.ActivityPayment {
		t.Error("standalone payment flagged as activity payment")
	}

	// The amount must reject garbage and non-positive values.
	for _, amount := range []string{"", "abc", "0", "-5"} {
		rec := httptest.NewRecorder()
		h.HandleCreate(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/payment", map[string]any{
			"name": "Otro", "amount": amount, "limitDate": "2026-12-01T00:00:00Z",
		}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("amount %q: status = %d, want 400", amount, rec.Code)
		}
	}

	// Treasurers see their payments, others see none.
	var listed []models.Payment
	rec = httptest.NewRecorder()
	h.HandleList(rec, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/api/payment", nil), treasurer))
	testutil.DecodeJSON(t, rec, &listed)
	if len(listed) != 1 {
		t.Errorf("treasurer list = %d entries, want 1", len(listed))
	}
	listed = nil
	rec = httptest.NewRecorder()
	h.HandleList(rec, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/api/payment", nil), outsider))
	testutil.DecodeJSON(t, rec, &listed)
	if len(listed) != 0 {
		t.Errorf("outsider list = %d entries, want 0", len(listed))
	}
}

func TestHandleAssignIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	p := f.CreatePayment(ctx, "Cuota anual", "150.50")

	assign := func() []models.PaymentAssignment {
		rec := httptest.NewRecorder()
		r := testutil.NewJSONRequest(t, http.MethodPost, "/api/payment/x/assignment", map[string]any{
			"users": []string{u.ID.Hex()},
		})
		h.HandleAssign(rec, testutil.WithChiURLParam(r, "id", p.ID.Hex()))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var out []models.PaymentAssignment
		testutil.DecodeJSON(t, rec, &out)
		return out
	}

	first := assign()
	second := assign()
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("charges = %d then %d, want 1 and 1", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Error("re-assigning created a second charge for the same user")
	}

	charges, err := h.PayAssigns.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(charges) != 1 {
		t.Errorf("stored charges = %d, want 1", len(charges))
	}
}

func TestHandleConfirmRequiresCompletion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	treasurer := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	holder := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024, authz.RoleScholarshipHolder)
	p := f.CreatePayment(ctx, "Cuota anual", "150.50", treasurer)
	pa := f.CreatePaymentAssignment(ctx, holder, p)

	confirm := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := testutil.WithUser(httptest.NewRequest(http.MethodPost, "/api/payment/assignment/x/confirm", nil), treasurer)
		h.HandleConfirm(rec, testutil.WithChiURLParam(r, "id", pa.ID.Hex()))
		return rec
	}

	if rec := confirm(); rec.Code != http.StatusConflict {
		t.Fatalf("confirm before completion: status = %d, want 409 (%s)", rec.Code, rec.Body.String())
	}

	if _, err := h.PayAssigns.Complete(ctx, pa.ID, []string{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec := confirm(); rec.Code != http.StatusOK {
		t.Fatalf("confirm: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := h.PayAssigns.GetByID(ctx, pa.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Confirmed {
		t.Error("charge not confirmed")
	}

	// A non-treasurer cannot confirm.
	rec := httptest.NewRecorder()
	r := testutil.WithUser(httptest.NewRequest(http.MethodPost, "/api/payment/assignment/x/confirm", nil), holder)
	h.HandleConfirm(rec, testutil.WithChiURLParam(r, "id", pa.ID.Hex()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("holder confirm: status = %d, want 403", rec.Code)
	}
}

func TestHandleUpdateCascadesAndGuardsActivityPayments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	holder := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	p := f.CreatePayment(ctx, "Cuota anual", "150.50")
	pa := f.CreatePaymentAssignment(ctx, holder, p)

	rec := httptest.NewRecorder()
	r := testutil.NewJSONRequest(t, http.MethodPatch, "/api/payment/x", map[string]any{
		"name":      "Cuota anual 2027",
		"amount":    "175",
		"limitDate": "2027-01-15T00:00:00Z",
	})
	h.HandleUpdate(rec, testutil.WithChiURLParam(r, "id", p.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := h.PayAssigns.GetByID(ctx, pa.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Payment.Name != "Cuota anual 2027" {
		t.Errorf("charge payment copy = %q", got.Payment.Name)
	}

	// Payments generated by an activity are not editable here.
	if _, err := db.Collection("payments").UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{"activity_payment": true}}); err != nil {
		t.Fatalf("flag: %v", err)
	}
	rec = httptest.NewRecorder()
	r = testutil.NewJSONRequest(t, http.MethodPatch, "/api/payment/x", map[string]any{
		"name":      "Otra cuota",
		"amount":    "10",
		"limitDate": "2027-01-15T00:00:00Z",
	})
	h.HandleUpdate(rec, testutil.WithChiURLParam(r, "id", p.ID.Hex()))
	if rec.Code != http.StatusConflict {
		t.Fatalf("activity payment edit: status = %d, want 409 (%s)", rec.Code, rec.Body.String())
	}
}

func TestHandleDeleteClearsReferences(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	area := f.CreateArea(ctx, "Salud", u)
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	p := f.CreatePayment(ctx, "Jornada", "50")
	pa := f.CreatePaymentAssignment(ctx, u, p)
	f.CreateAssignment(ctx, u, act, false)

	snap := p.Snapshot()
	if _, err := h.Activities.Update(ctx, act.ID, bson.M{"payment": snap}); err != nil {
		t.Fatalf("link activity: %v", err)
	}
	if _, err := h.Assignments.Update(ctx, u.ID, act.ID, bson.M{"payment_assignment_id": pa.ID, "pending_payment": true}, nil); err != nil {
		t.Fatalf("link assignment: %v", err)
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/payment/x", nil)
	h.HandleDelete(rec, testutil.WithChiURLParam(r, "id", p.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if _, err := h.Payments.GetByID(ctx, p.ID); err == nil {
		t.Error("payment still present")
	}
	charges, err := h.PayAssigns.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(charges) != 0 {
		t.Errorf("charges left = %d, want 0", len(charges))
	}
	gotAct, err := h.Activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if gotAct.Payment != nil {
		t.Error("activity still references the deleted payment")
	}
	gotAssign, err := h.Assignments.Get(ctx, u.ID, act.ID)
	if err != nil {
		t.Fatalf("assignment: %v", err)
	}
	if gotAssign.PaymentAssignmentID != nil || gotAssign.PendingPayment {
		t.Errorf("assignment refs not cleared: %+v", gotAssign)
	}
}

func TestHandleResetKeepsVoucherEvidence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	h := payments.NewHandler(db, nil, zap.NewNop())

	treasurer := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2024, authz.RoleScholarshipHolder)
	holder := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024, authz.RoleScholarshipHolder)
	p := f.CreatePayment(ctx, "Cuota anual", "150.50", treasurer)
	pa := f.CreatePaymentAssignment(ctx, holder, p)

	if _, err := h.PayAssigns.Complete(ctx, pa.ID, []string{"vouchers/abc.jpg"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	rec := httptest.NewRecorder()
	r := testutil.WithUser(httptest.NewRequest(http.MethodPost, "/api/payment/assignment/x/reset", nil), treasurer)
	h.HandleReset(rec, testutil.WithChiURLParam(r, "id", pa.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := h.PayAssigns.GetByID(ctx, pa.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Completed || got.Confirmed {
		t.Errorf("after reset = %+v", got)
	}
	if len(got.VoucherKeys) != 1 {
		t.Errorf("after reset vouchers = %v, want the evidence kept", got.VoucherKeys)
	}

	// The retained evidence keeps protecting the charge from payment deletion.
	rec = httptest.NewRecorder()
	r = testutil.WithUser(httptest.NewRequest(http.MethodDelete, "/api/payment/x", nil), treasurer)
	h.HandleDelete(rec, testutil.WithChiURLParam(r, "id", p.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete payment: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := h.PayAssigns.GetByID(ctx, pa.ID); err != nil {
		t.Errorf("vouchered charge removed with the payment: %v", err)
	}
}
