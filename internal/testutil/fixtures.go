package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calls chain: each adds to the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given identity and roles.
func (f *Fixtures) CreateUser(ctx context.Context, code int, name, lastname, email string, promotion int, roles ...string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Code:      code,
		Name:      name,
		Lastname:  lastname,
		Email:     email,
		Promotion: promotion,
		Sex:       "F",
		Role:      roles,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateArea inserts an area with the given responsible users.
func (f *Fixtures) CreateArea(ctx context.Context, name string, responsible ...models.User) models.Area {
	f.t.Helper()

	now := time.Now().UTC()
	area := models.Area{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Color:       "#1f6f43",
		Responsible: models.UserSnapshots(responsible),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if area.Responsible == nil {
		area.Responsible = []models.UserSnapshot{}
	}

	if _, err := f.db.Collection("areas").InsertOne(ctx, area); err != nil {
		f.t.Fatalf("failed to create test area: %v", err)
	}
	return area
}

// CreateActivity inserts an activity under the given area with an open
// registration window.
func (f *Fixtures) CreateActivity(ctx context.Context, name string, area models.Area, serviceHours, spaces int) models.Activity {
	f.t.Helper()

	now := time.Now().UTC()
	activity := models.Activity{
		ID:                    primitive.NewObjectID(),
		Name:                  name,
		NameCI:                text.Fold(name),
		Date:                  now.AddDate(0, 0, 7),
		ServiceHours:          serviceHours,
		Responsible:           []models.UserSnapshot{},
		Area:                  area.Snapshot(),
		RegistrationStartDate: now.AddDate(0, 0, -1),
		RegistrationEndDate:   now.AddDate(0, 0, 14),
		AvailableSpaces:       spaces,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if _, err := f.db.Collection("activities").InsertOne(ctx, activity); err != nil {
		f.t.Fatalf("failed to create test activity: %v", err)
	}
	return activity
}

// CreateAssignment inserts an enrollment record linking user and activity.
func (f *Fixtures) CreateAssignment(ctx context.Context, user models.User, activity models.Activity, completed bool) models.Assignment {
	f.t.Helper()

	now := time.Now().UTC()
	assignment := models.Assignment{
		ID:        primitive.NewObjectID(),
		User:      user.Snapshot(),
		Activity:  activity.Snapshot(),
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("activity_assignments").InsertOne(ctx, assignment); err != nil {
		f.t.Fatalf("failed to create test assignment: %v", err)
	}
	return assignment
}

// CreatePayment inserts a payment with the given treasurers.
func (f *Fixtures) CreatePayment(ctx context.Context, name, amount string, treasurer ...models.User) models.Payment {
	f.t.Helper()

	dec, err := primitive.ParseDecimal128(amount)
	if err != nil {
		f.t.Fatalf("bad amount %q: %v", amount, err)
	}

	now := time.Now().UTC()
	payment := models.Payment{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		LimitDate: now.AddDate(0, 1, 0),
		Amount:    dec,
		Treasurer: models.UserSnapshots(treasurer),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if payment.Treasurer == nil {
		payment.Treasurer = []models.UserSnapshot{}
	}

	if _, err := f.db.Collection("payments").InsertOne(ctx, payment); err != nil {
		f.t.Fatalf("failed to create test payment: %v", err)
	}
	return payment
}

// CreatePaymentAssignment inserts a per-user charge for the payment.
func (f *Fixtures) CreatePaymentAssignment(ctx context.Context, user models.User, payment models.Payment) models.PaymentAssignment {
	f.t.Helper()

	now := time.Now().UTC()
	pa := models.PaymentAssignment{
		ID:          primitive.NewObjectID(),
		User:        user.Snapshot(),
		Payment:     payment.Snapshot(),
		VoucherKeys: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("payment_assignments").InsertOne(ctx, pa); err != nil {
		f.t.Fatalf("failed to create test payment assignment: %v", err)
	}
	return pa
}
