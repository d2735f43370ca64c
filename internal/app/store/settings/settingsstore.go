// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/servicehub/internal/app/system/promos"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the settings collection. A single document keyed
// by name holds the promotion span.
type Store struct {
	c *mongo.Collection
}

const promotionSpanKey = "promotion_span"

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("settings")}
}

type spanDoc struct {
	Key    string `bson:"key"`
	Oldest int    `bson:"oldest_promotion"`
	Newest int    `bson:"newest_promotion"`
}

// PromotionSpan returns the configured student window. When nothing has been
// saved yet a current-year default keeps the cohort math working.
func (s *Store) PromotionSpan(ctx context.Context) (promos.Span, error) {
	var doc spanDoc
	err := s.c.FindOne(ctx, bson.M{"key": promotionSpanKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		year := time.Now().UTC().Year()
		return promos.Span{Oldest: year - 5, Newest: year}, nil
	}
	if err != nil {
		return promos.Span{}, err
	}
	return promos.Span{Oldest: doc.Oldest, Newest: doc.Newest}, nil
}

// SavePromotionSpan upserts the student window.
func (s *Store) SavePromotionSpan(ctx context.Context, span promos.Span) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"key": promotionSpanKey},
		bson.M{
			"$set": bson.M{
				"oldest_promotion": span.Oldest,
				"newest_promotion": span.Newest,
				"updated_at":       time.Now().UTC(),
			},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true))
	return err
}
