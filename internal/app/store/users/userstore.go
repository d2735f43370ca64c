// internal/app/store/users/userstore.go
package userstore

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

// Code and email both carry unique indexes; IsDup cannot tell them apart, so
// callers that need the distinction look the other field up first.
var ErrDuplicateIdentity = errors.New("a user with this code or email already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	if u.Role == nil {
		u.Role = []string{}
	}
	if u.ServiceHours.Areas == nil {
		u.ServiceHours.Areas = []models.AreaHours{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateIdentity
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetManyByIDs fetches the users for the given ids. Missing ids are simply
// absent from the result; callers that need all of them compare lengths.
func (s *Store) GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	Promotion      int
	PromotionMin   int
	PromotionMax   int
	Search         string
	Role           string
	IncludeBlocked bool
}

// List returns users matching the filter, sorted by lastname then name,
// with skip/limit paging. A negative limit disables paging.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.User, int64, error) {
	filter := bson.M{}
	if !f.IncludeBlocked {
		filter["blocked"] = false
	}
	if f.Promotion != 0 {
		filter["promotion"] = f.Promotion
	} else if f.PromotionMin != 0 || f.PromotionMax != 0 {
		span := bson.M{}
		if f.PromotionMin != 0 {
			span["$gte"] = f.PromotionMin
		}
		if f.PromotionMax != 0 {
			span["$lte"] = f.PromotionMax
		}
		filter["promotion"] = span
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexQuote(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"lastname": rx},
			bson.M{"email": rx},
		}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastname", Value: 1}, {Key: "name", Value: 1}})
	if limit >= 0 {
		opts.SetSkip(skip).SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateInfo overwrites the editable profile fields.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"blocked":    blocked,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AddRole grants the role flag to every given user. Already-present flags are
// untouched ($addToSet).
func (s *Store) AddRole(ctx context.Context, ids []primitive.ObjectID, role string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{
		"$addToSet": bson.M{"role": role},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveRole revokes the role flag from every given user.
func (s *Store) RemoveRole(ctx context.Context, ids []primitive.ObjectID, role string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{
		"$pull": bson.M{"role": role},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AdjustServiceHours credits (or debits, negative delta) hours for one area,
// keeping the total in sync. The per-area entry is created on first credit.
func (s *Store) AdjustServiceHours(ctx context.Context, userID primitive.ObjectID, area models.AreaSnapshot, delta int) error {
	if delta == 0 {
		return nil
	}
	now := time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "service_hours.areas.area._id": area.ID},
		bson.M{
			"$inc": bson.M{
				"service_hours.areas.$.hours": delta,
				"service_hours.total":         delta,
			},
			"$set": bson.M{"updated_at": now},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// No ledger entry for this area yet.
	res, err = s.c.UpdateByID(ctx, userID, bson.M{
		"$push": bson.M{"service_hours.areas": models.AreaHours{Area: area, Hours: delta}},
		"$inc":  bson.M{"service_hours.total": delta},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SyncAreaSnapshot re-syncs the embedded area copy in every user's ledger.
// Called from the area update cascade.
func (s *Store) SyncAreaSnapshot(ctx context.Context, area models.AreaSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"service_hours.areas.area._id": area.ID},
		bson.M{"$set": bson.M{
			"service_hours.areas.$[e].area": area,
			"updated_at":                    time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"e.area._id": area.ID}},
		}))
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
