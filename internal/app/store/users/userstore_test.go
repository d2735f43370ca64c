package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/servicehub/internal/app/store/users"
	"github.com/dalemusser/servicehub/internal/app/system/authz"
	"github.com/dalemusser/servicehub/internal/app/system/indexes"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/servicehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := userstore.New(db)

	u, err := store.Create(ctx, models.User{
		Code:      20240001,
		Name:      "Ana",
		Lastname:  "Paredes",
		Email:     "ana@example.com",
		Promotion: 2023,
		Sex:       "F",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID.IsZero() {
		t.Fatal("Create did not assign an id")
	}
	if u.Role == nil || u.ServiceHours.Areas == nil {
		t.Error("Create must initialize role and ledger slices")
	}

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "ana@example.com" || got.Code != 20240001 {
		t.Errorf("GetByID = %+v", got)
	}

	byEmail, err := store.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetByEmail returned %v, want %v", byEmail.ID, u.ID)
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	base := models.User{Code: 1, Name: "Ana", Lastname: "Paredes", Email: "ana@example.com", Promotion: 2023}
	if _, err := store.Create(ctx, base); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dupEmail := base
	dupEmail.Code = 2
	if _, err := store.Create(ctx, dupEmail); !errors.Is(err, userstore.ErrDuplicateIdentity) {
		t.Errorf("duplicate email: err = %v, want ErrDuplicateIdentity", err)
	}

	dupCode := base
	dupCode.Email = "other@example.com"
	if _, err := store.Create(ctx, dupCode); !errors.Is(err, userstore.ErrDuplicateIdentity) {
		t.Errorf("duplicate code: err = %v, want ErrDuplicateIdentity", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := userstore.New(db)

	f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023, authz.RoleScholarshipHolder)
	f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024)
	blocked := f.CreateUser(ctx, 3, "Carla", "Ruiz", "carla@example.com", 2023)
	if err := store.SetBlocked(ctx, blocked.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	users, total, err := store.List(ctx, userstore.ListFilter{}, 0, -1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("List excluding blocked: total=%d len=%d, want 2/2", total, len(users))
	}
	// Sorted by lastname.
	if users[0].Lastname != "Gomez" || users[1].Lastname != "Paredes" {
		t.Errorf("sort order: %s, %s", users[0].Lastname, users[1].Lastname)
	}

	users, _, err = store.List(ctx, userstore.ListFilter{Promotion: 2024}, 0, -1)
	if err != nil {
		t.Fatalf("List by promotion: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Berta" {
		t.Errorf("promotion filter: %+v", users)
	}

	users, _, err = store.List(ctx, userstore.ListFilter{Role: authz.RoleScholarshipHolder}, 0, -1)
	if err != nil {
		t.Fatalf("List by role: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Ana" {
		t.Errorf("role filter: %+v", users)
	}

	users, _, err = store.List(ctx, userstore.ListFilter{Search: "pared"}, 0, -1)
	if err != nil {
		t.Fatalf("List by search: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Ana" {
		t.Errorf("search filter: %+v", users)
	}
}

func TestStore_Roles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := userstore.New(db)

	a := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	b := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024)

	ids := []primitive.ObjectID{a.ID, b.ID}
	if err := store.AddRole(ctx, ids, authz.RoleAreaResponsible); err != nil {
		t.Fatalf("AddRole: %v", err)
	}
	// Idempotent.
	if err := store.AddRole(ctx, []primitive.ObjectID{a.ID}, authz.RoleAreaResponsible); err != nil {
		t.Fatalf("AddRole again: %v", err)
	}

	got, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if n := len(got.Role); n != 1 {
		t.Fatalf("role count = %d, want 1 (addToSet)", n)
	}
	if !got.HasRole(authz.RoleAreaResponsible) {
		t.Error("role flag missing after AddRole")
	}

	if err := store.RemoveRole(ctx, []primitive.ObjectID{b.ID}, authz.RoleAreaResponsible); err != nil {
		t.Fatalf("RemoveRole: %v", err)
	}
	got, err = store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.HasRole(authz.RoleAreaResponsible) {
		t.Error("role flag still present after RemoveRole")
	}
}

func TestStore_AdjustServiceHours(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := userstore.New(db)

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	area := f.CreateArea(ctx, "Salud")
	snap := area.Snapshot()

	// First credit creates the ledger entry.
	if err := store.AdjustServiceHours(ctx, u.ID, snap, 5); err != nil {
		t.Fatalf("AdjustServiceHours: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.ServiceHours.Total != 5 || got.ServiceHours.AreaHoursFor(area.ID) != 5 {
		t.Fatalf("after first credit: total=%d area=%d", got.ServiceHours.Total, got.ServiceHours.AreaHoursFor(area.ID))
	}

	// Second credit increments in place.
	if err := store.AdjustServiceHours(ctx, u.ID, snap, 3); err != nil {
		t.Fatalf("AdjustServiceHours: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.ServiceHours.Total != 8 || got.ServiceHours.AreaHoursFor(area.ID) != 8 {
		t.Fatalf("after second credit: total=%d area=%d", got.ServiceHours.Total, got.ServiceHours.AreaHoursFor(area.ID))
	}
	if n := len(got.ServiceHours.Areas); n != 1 {
		t.Fatalf("ledger entries = %d, want 1", n)
	}

	// Debit on uncomplete.
	if err := store.AdjustServiceHours(ctx, u.ID, snap, -8); err != nil {
		t.Fatalf("AdjustServiceHours debit: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.ServiceHours.Total != 0 || got.ServiceHours.AreaHoursFor(area.ID) != 0 {
		t.Fatalf("after debit: total=%d area=%d", got.ServiceHours.Total, got.ServiceHours.AreaHoursFor(area.ID))
	}

	if err := store.AdjustServiceHours(ctx, primitive.NewObjectID(), snap, 1); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("unknown user: err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_SyncAreaSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := userstore.New(db)

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	area := f.CreateArea(ctx, "Salud")
	other := f.CreateArea(ctx, "Educación")

	if err := store.AdjustServiceHours(ctx, u.ID, area.Snapshot(), 5); err != nil {
		t.Fatalf("AdjustServiceHours: %v", err)
	}
	if err := store.AdjustServiceHours(ctx, u.ID, other.Snapshot(), 2); err != nil {
		t.Fatalf("AdjustServiceHours: %v", err)
	}

	renamed := area.Snapshot()
	renamed.Name = "Salud Comunitaria"
	if err := store.SyncAreaSnapshot(ctx, renamed); err != nil {
		t.Fatalf("SyncAreaSnapshot: %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	for _, e := range got.ServiceHours.Areas {
		switch e.Area.ID {
		case area.ID:
			if e.Area.Name != "Salud Comunitaria" {
				t.Errorf("renamed entry = %q", e.Area.Name)
			}
			if e.Hours != 5 {
				t.Errorf("hours changed by snapshot sync: %d", e.Hours)
			}
		case other.ID:
			if e.Area.Name != "Educación" {
				t.Errorf("unrelated entry touched: %q", e.Area.Name)
			}
		}
	}
}
