package assignmentstore_test

import (
	"errors"
	"testing"

	assignmentstore "github.com/dalemusser/servicehub/internal/app/store/assignments"
	"github.com/dalemusser/servicehub/internal/app/system/indexes"
	"github.com/dalemusser/servicehub/internal/domain/models"
	"github.com/dalemusser/servicehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_InsertUniquePerUserActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)

	a, err := store.Insert(ctx, models.Assignment{User: u.Snapshot(), Activity: act.Snapshot()})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if a.ID.IsZero() {
		t.Fatal("Insert did not assign an id")
	}

	if _, err := store.Insert(ctx, models.Assignment{User: u.Snapshot(), Activity: act.Snapshot()}); !errors.Is(err, assignmentstore.ErrAlreadyAssigned) {
		t.Errorf("second enroll: err = %v, want ErrAlreadyAssigned", err)
	}
}

func TestStore_InsertManyRejectsExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	u1 := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	u2 := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024)
	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)

	f.CreateAssignment(ctx, u1, act, false)

	_, err := store.InsertMany(ctx, []models.Assignment{
		{User: u1.Snapshot(), Activity: act.Snapshot()},
		{User: u2.Snapshot(), Activity: act.Snapshot()},
	})
	if !errors.Is(err, assignmentstore.ErrAlreadyAssigned) {
		t.Errorf("batch with existing member: err = %v, want ErrAlreadyAssigned", err)
	}
}

func TestStore_UpdateReturnsPrevious(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	f.CreateAssignment(ctx, u, act, false)

	prev, err := store.Update(ctx, u.ID, act.ID, bson.M{"completed": true, "aditional_service_hours": 2}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if prev.Completed || prev.AdditionalServiceHours != 0 {
		t.Errorf("previous = %+v", prev)
	}

	got, err := store.Get(ctx, u.ID, act.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Completed || got.AdditionalServiceHours != 2 {
		t.Errorf("updated = %+v", got)
	}
	if got.CreditedHours() != 6 {
		t.Errorf("CreditedHours = %d, want 6", got.CreditedHours())
	}
}

func TestStore_DeleteReturnsRemoved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	f.CreateAssignment(ctx, u, act, true)

	removed, err := store.Delete(ctx, u.ID, act.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed.Completed {
		t.Errorf("removed = %+v", removed)
	}

	if _, err := store.Get(ctx, u.ID, act.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("after delete: err = %v, want ErrNoDocuments", err)
	}
	if _, err := store.Delete(ctx, u.ID, act.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("double delete: err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListSortAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	u1 := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	u2 := f.CreateUser(ctx, 2, "Berta", "Gomez", "berta@example.com", 2024)
	u3 := f.CreateUser(ctx, 3, "Carla", "Ruiz", "carla@example.com", 2023)

	f.CreateAssignment(ctx, u1, act, false)
	f.CreateAssignment(ctx, u2, act, true)
	f.CreateAssignment(ctx, u3, act, true)

	rows, total, err := store.List(ctx, assignmentstore.ListFilter{ActivityID: act.ID}, 0, -1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(rows))
	}
	// Completed sort descending: completed rows first.
	if !rows[0].Completed || !rows[1].Completed || rows[2].Completed {
		t.Errorf("sort order: %v %v %v", rows[0].Completed, rows[1].Completed, rows[2].Completed)
	}

	page, total, err := store.List(ctx, assignmentstore.ListFilter{ActivityID: act.ID}, 0, 2)
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("paged: total=%d len=%d, want 3/2", total, len(page))
	}

	done := true
	completed, _, err := store.List(ctx, assignmentstore.ListFilter{ActivityID: act.ID, Completed: &done}, 0, -1)
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("completed = %d, want 2", len(completed))
	}

	byUser, _, err := store.List(ctx, assignmentstore.ListFilter{UserID: u1.ID}, 0, -1)
	if err != nil {
		t.Fatalf("List by user: %v", err)
	}
	if len(byUser) != 1 || byUser[0].User.ID != u1.ID {
		t.Errorf("by user = %+v", byUser)
	}
}

func TestStore_Cascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	store := assignmentstore.New(db)

	area := f.CreateArea(ctx, "Salud")
	act := f.CreateActivity(ctx, "Jornada", area, 4, 10)
	u := f.CreateUser(ctx, 1, "Ana", "Paredes", "ana@example.com", 2023)
	f.CreateAssignment(ctx, u, act, false)

	snap := act.Snapshot()
	snap.ServiceHours = 6
	if err := store.SyncActivitySnapshot(ctx, snap); err != nil {
		t.Fatalf("SyncActivitySnapshot: %v", err)
	}
	got, _ := store.Get(ctx, u.ID, act.ID)
	if got.Activity.ServiceHours != 6 {
		t.Errorf("activity copy hours = %d, want 6", got.Activity.ServiceHours)
	}

	areaSnap := area.Snapshot()
	areaSnap.Name = "Salud Comunitaria"
	if err := store.SyncAreaSnapshot(ctx, areaSnap); err != nil {
		t.Fatalf("SyncAreaSnapshot: %v", err)
	}
	got, _ = store.Get(ctx, u.ID, act.ID)
	if got.Activity.Area.Name != "Salud Comunitaria" {
		t.Errorf("nested area copy = %q", got.Activity.Area.Name)
	}

	userSnap := u.Snapshot()
	userSnap.Email = "ana.paredes@example.com"
	if err := store.SyncUserSnapshot(ctx, userSnap); err != nil {
		t.Fatalf("SyncUserSnapshot: %v", err)
	}
	got, _ = store.Get(ctx, u.ID, act.ID)
	if got.User.Email != "ana.paredes@example.com" {
		t.Errorf("user copy = %q", got.User.Email)
	}
}
