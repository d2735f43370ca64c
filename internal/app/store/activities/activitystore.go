// internal/app/store/activities/activitystore.go
package activitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/servicehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateActivityName = errors.New("an activity with this name already exists")

	// ErrNoSpaces is returned by AddAvailableSpaces when a decrement would
	// push the capacity below zero.
	ErrNoSpaces = errors.New("the activity has no available spaces left")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activities")}
}

func (s *Store) Create(ctx context.Context, a models.Activity) (models.Activity, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.NameCI = text.Fold(a.Name)
	if a.Responsible == nil {
		a.Responsible = []models.UserSnapshot{}
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Activity{}, ErrDuplicateActivityName
		}
		return models.Activity{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Activity, error) {
	var a models.Activity
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	AreaID         primitive.ObjectID
	ResponsibleID  primitive.ObjectID
	Search         string
	IncludeBlocked bool
	// RegistrationOpenAt keeps only activities whose registration window
	// contains the instant (scholarship-holder enrollment views).
	RegistrationOpenAt *time.Time
	// UpperDate keeps only activities dated at or before the instant.
	UpperDate *time.Time
}

// List returns activities newest-date-first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Activity, error) {
	filter := bson.M{}
	if !f.IncludeBlocked {
		filter["blocked"] = false
	}
	if !f.AreaID.IsZero() {
		filter["area._id"] = f.AreaID
	}
	if !f.ResponsibleID.IsZero() {
		filter["responsible._id"] = f.ResponsibleID
	}
	if f.Search != "" {
		filter["name_ci"] = primitive.Regex{Pattern: text.Fold(f.Search)}
	}
	if f.RegistrationOpenAt != nil {
		filter["registration_start_date"] = bson.M{"$lte": *f.RegistrationOpenAt}
		filter["registration_end_date"] = bson.M{"$gte": *f.RegistrationOpenAt}
	}
	if f.UpperDate != nil {
		filter["date"] = bson.M{"$lte": *f.UpperDate}
	}

	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the editable fields and returns the document as it was
// before the write, so the caller can diff responsible lists, recompute
// per-assignment hours, and resize capacity.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Activity, error) {
	if name, ok := set["name"].(string); ok {
		set["name_ci"] = text.Fold(name)
	}
	set["updated_at"] = time.Now().UTC()
	var prev models.Activity
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Activity{}, ErrDuplicateActivityName
		}
		return models.Activity{}, err
	}
	return prev, nil
}

func (s *Store) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) (models.Activity, error) {
	var a models.Activity
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"blocked": blocked, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AddAvailableSpaces adjusts capacity by delta. Decrements are guarded so the
// counter never goes negative; a failed guard reports ErrNoSpaces.
func (s *Store) AddAvailableSpaces(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["available_spaces"] = bson.M{"$gte": -delta}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"available_spaces": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if delta < 0 {
			// Either the activity is gone or the guard failed; disambiguate.
			n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id})
			if cerr != nil {
				return cerr
			}
			if n > 0 {
				return ErrNoSpaces
			}
		}
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountByArea reports how many activities an area owns. Used by the area
// delete guard.
func (s *Store) CountByArea(ctx context.Context, areaID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"area._id": areaID})
}

// CountWhereResponsible counts activities (other than exclude) where the user
// is in the responsible list.
func (s *Store) CountWhereResponsible(ctx context.Context, userID primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	filter := bson.M{"responsible._id": userID}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// SyncAreaSnapshot re-syncs the embedded area copy in every activity the area
// owns. Called from the area update cascade.
func (s *Store) SyncAreaSnapshot(ctx context.Context, area models.AreaSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"area._id": area.ID},
		bson.M{"$set": bson.M{"area": area, "updated_at": time.Now().UTC()}})
	return err
}

// SyncUserSnapshot re-syncs the embedded copy of a user in every responsible
// list that contains them.
func (s *Store) SyncUserSnapshot(ctx context.Context, u models.UserSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"responsible._id": u.ID},
		bson.M{"$set": bson.M{
			"responsible.$[e]": u,
			"updated_at":       time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"e._id": u.ID}},
		}))
	return err
}

// SyncPaymentSnapshot re-syncs the embedded payment copy on activities that
// reference it. Clearing (nil) detaches the payment from the activity.
func (s *Store) SyncPaymentSnapshot(ctx context.Context, paymentID primitive.ObjectID, snap *models.PaymentSnapshot) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if snap != nil {
		update["$set"].(bson.M)["payment"] = *snap
	} else {
		update["$unset"] = bson.M{"payment": ""}
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"payment._id": paymentID}, update)
	return err
}
