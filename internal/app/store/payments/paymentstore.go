// internal/app/store/payments/paymentstore.go
package paymentstore

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

var ErrDuplicatePaymentName = errors.New("a payment with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

func (s *Store) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	if p.Treasurer == nil {
		p.Treasurer = []models.UserSnapshot{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Payment{}, ErrDuplicatePaymentName
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// List returns payments newest limit date first. A zero treasurerID means no
// treasurer filter.
func (s *Store) List(ctx context.Context, treasurerID primitive.ObjectID) ([]models.Payment, error) {
	filter := bson.M{}
	if !treasurerID.IsZero() {
		filter["treasurer._id"] = treasurerID
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "limit_date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the editable fields and returns the document before the
// write, so the caller can diff treasurers and drive the snapshot cascades.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Payment, error) {
	if name, ok := set["name"].(string); ok {
		set["name_ci"] = text.Fold(name)
	}
	set["updated_at"] = time.Now().UTC()
	var prev models.Payment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Payment{}, ErrDuplicatePaymentName
		}
		return models.Payment{}, err
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

// CountWhereTreasurer counts payments (other than exclude) where the user is
// a treasurer. Drives the treasurer role revocation check.
func (s *Store) CountWhereTreasurer(ctx context.Context, userID primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	filter := bson.M{"treasurer._id": userID}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// SyncUserSnapshot re-syncs the embedded copy of a user in every treasurer
// list that contains them.
func (s *Store) SyncUserSnapshot(ctx context.Context, u models.UserSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"treasurer._id": u.ID},
		bson.M{"$set": bson.M{
			"treasurer.$[e]": u,
			"updated_at":     time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"e._id": u.ID}},
		}))
	return err
}
