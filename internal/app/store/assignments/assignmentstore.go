// internal/app/store/assignments/assignmentstore.go
//
// Package assignmentstore persists enrollment records. Assignments embed
// snapshots of both the user and the activity; the Sync* methods are the
// cascade targets the user, activity, and area flows call inside their
// transactions.
package assignmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/servicehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrAlreadyAssigned = errors.New("the user is already assigned to this activity")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_assignments")}
}

func (s *Store) Insert(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Assignment{}, ErrAlreadyAssigned
		}
		return models.Assignment{}, err
	}
	return a, nil
}

// InsertMany inserts one assignment per user. The unique (user, activity)
// index rejects the whole batch when any user is already enrolled.
func (s *Store) InsertMany(ctx context.Context, as []models.Assignment) ([]models.Assignment, error) {
	if len(as) == 0 {
		return []models.Assignment{}, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(as))
	for i := range as {
		as[i].ID = primitive.NewObjectID()
		as[i].CreatedAt = now
		as[i].UpdatedAt = now
		docs = append(docs, as[i])
	}
	if _, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrAlreadyAssigned
		}
		return nil, err
	}
	return as, nil
}

func (s *Store) Get(ctx context.Context, userID, activityID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"user._id": userID, "activity._id": activityID}).Decode(&a)
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Delete removes the enrollment and returns the removed document so the
// caller can release capacity and, if it was completed, debit hours.
func (s *Store) Delete(ctx context.Context, userID, activityID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOneAndDelete(ctx, bson.M{"user._id": userID, "activity._id": activityID}).Decode(&a)
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Update applies set/unset to the enrollment and returns the document as it
// was before the write. The completion flows need the previous completed flag
// and additional hours to compute the ledger delta.
func (s *Store) Update(ctx context.Context, userID, activityID primitive.ObjectID, set, unset bson.M) (models.Assignment, error) {
	update := bson.M{}
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	update["$set"] = set
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var prev models.Assignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"user._id": userID, "activity._id": activityID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err != nil {
		return models.Assignment{}, err
	}
	return prev, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	ActivityID primitive.ObjectID
	UserID     primitive.ObjectID
	// Completed filters by completion when set.
	Completed *bool
	// Search matches the embedded activity name, case-insensitive substring.
	Search string
	// LowerDate / UpperDate bound the activity date, inclusive.
	LowerDate *time.Time
	UpperDate *time.Time
}

// List returns assignments grouped by activity, not-yet-completed first and
// paid-up before pending, with skip/limit paging. A negative limit disables
// paging.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.Assignment, int64, error) {
	filter := bson.M{}
	if !f.ActivityID.IsZero() {
		filter["activity._id"] = f.ActivityID
	}
	if !f.UserID.IsZero() {
		filter["user._id"] = f.UserID
	}
	if f.Completed != nil {
		filter["completed"] = *f.Completed
	}
	if f.Search != "" {
		filter["activity.name"] = primitive.Regex{Pattern: regexQuote(f.Search), Options: "i"}
	}
	if f.LowerDate != nil || f.UpperDate != nil {
		date := bson.M{}
		if f.LowerDate != nil {
			date["$gte"] = *f.LowerDate
		}
		if f.UpperDate != nil {
			date["$lte"] = *f.UpperDate
		}
		filter["activity.date"] = date
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "activity._id", Value: 1},
		{Key: "completed", Value: -1},
		{Key: "pending_payment", Value: 1},
	})
	if limit >= 0 {
		opts.SetSkip(skip).SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) CountByActivity(ctx context.Context, activityID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"activity._id": activityID})
}

// ListCompletedByActivity returns the completed enrollments of one activity.
// The activity update flow walks these to recompute credited hours.
func (s *Store) ListCompletedByActivity(ctx context.Context, activityID primitive.ObjectID) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"activity._id": activityID, "completed": true})
	if err != nil {
		return nil, err
	}
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncActivitySnapshot re-syncs the embedded activity copy on every
// enrollment of the activity.
func (s *Store) SyncActivitySnapshot(ctx context.Context, snap models.ActivitySnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"activity._id": snap.ID},
		bson.M{"$set": bson.M{"activity": snap, "updated_at": time.Now().UTC()}})
	return err
}

// SyncAreaSnapshot re-syncs the area copy nested inside the activity
// snapshot. Area update cascade.
func (s *Store) SyncAreaSnapshot(ctx context.Context, area models.AreaSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"activity.area._id": area.ID},
		bson.M{"$set": bson.M{"activity.area": area, "updated_at": time.Now().UTC()}})
	return err
}

// SyncUserSnapshot re-syncs the embedded user copy on every enrollment of the
// user.
func (s *Store) SyncUserSnapshot(ctx context.Context, u models.UserSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"user._id": u.ID},
		bson.M{"$set": bson.M{"user": u, "updated_at": time.Now().UTC()}})
	return err
}

// ClearPaymentRefs detaches assignments from deleted payment charges: the
// reference is dropped and the pending flag reset.
func (s *Store) ClearPaymentRefs(ctx context.Context, paymentAssignmentIDs []primitive.ObjectID) error {
	if len(paymentAssignmentIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"payment_assignment_id": bson.M{"$in": paymentAssignmentIDs}},
		bson.M{
			"$unset": bson.M{"payment_assignment_id": ""},
			"$set":   bson.M{"pending_payment": false, "updated_at": time.Now().UTC()},
		})
	return err
}

// SetPendingPayment flips the pending flag on one enrollment. Called when the
// linked charge is completed or reset.
func (s *Store) SetPendingPayment(ctx context.Context, paymentAssignmentID primitive.ObjectID, pending bool) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"payment_assignment_id": paymentAssignmentID},
		bson.M{"$set": bson.M{"pending_payment": pending, "updated_at": time.Now().UTC()}})
	return err
}

// regexQuote escapes regex metacharacters so user search input is literal.
func regexQuote(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(meta); j++ {
			if s[i] == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
