// internal/app/store/areas/areastore.go
package areastore

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

var ErrDuplicateAreaName = errors.New("an area with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("areas")}
}

func (s *Store) Create(ctx context.Context, a models.Area) (models.Area, error) {
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
			return models.Area{}, ErrDuplicateAreaName
		}
		return models.Area{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Area, error) {
	var a models.Area
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.Area{}, err
	}
	return a, nil
}

// List returns areas sorted by folded name. Blocked areas are included only
// when includeBlocked is set; scholarship-holder views hide them.
func (s *Store) List(ctx context.Context, includeBlocked bool) ([]models.Area, error) {
	filter := bson.M{}
	if !includeBlocked {
		filter["blocked"] = false
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Area
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites name, color, and the responsible list, returning the
// document as it was before the write so the caller can diff the responsible
// lists and drive the snapshot cascades.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, color string, responsible []models.UserSnapshot) (models.Area, error) {
	if responsible == nil {
		responsible = []models.UserSnapshot{}
	}
	var prev models.Area
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"name":        name,
			"name_ci":     text.Fold(name),
			"color":       color,
			"responsible": responsible,
			"updated_at":  time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Area{}, ErrDuplicateAreaName
		}
		return models.Area{}, err
	}
	return prev, nil
}

func (s *Store) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) (models.Area, error) {
	var a models.Area
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"blocked": blocked, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		return models.Area{}, err
	}
	return a, nil
}

// SetIcon replaces the stored icon object key and returns the document as it
// was before, so the caller can clean up the previous object.
func (s *Store) SetIcon(ctx context.Context, id primitive.ObjectID, key string) (models.Area, error) {
	var prev models.Area
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"icon_key": key, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err != nil {
		return models.Area{}, err
	}
	return prev, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountWhereResponsible counts areas (other than exclude) where the user is in
// the responsible list. Used to decide whether revoking the user's
// area-responsible role flag is safe.
func (s *Store) CountWhereResponsible(ctx context.Context, userID primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	filter := bson.M{"responsible._id": userID}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// SyncUserSnapshot re-syncs the embedded copy of a user in every responsible
// list that contains them. Called from the user update cascade.
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
