// internal/app/store/paymentassign/payassignstore.go
//
// Package payassignstore persists per-user charges. Completion is two-phase:
// the user submits voucher evidence (completed), a treasurer confirms
// (confirmed) or resets it.
package payassignstore

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

var ErrAlreadyCharged = errors.New("the user already has this payment assigned")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payment_assignments")}
}

func (s *Store) Insert(ctx context.Context, pa models.PaymentAssignment) (models.PaymentAssignment, error) {
	now := time.Now().UTC()
	pa.ID = primitive.NewObjectID()
	if pa.VoucherKeys == nil {
		pa.VoucherKeys = []string{}
	}
	pa.CreatedAt = now
	pa.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, pa); err != nil {
		if wafflemongo.IsDup(err) {
			return models.PaymentAssignment{}, ErrAlreadyCharged
		}
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

// GetOrCreate returns the existing charge for (user, payment) or inserts a
// fresh one. Assigning a user twice to activities that share a payment must
// not double-charge them.
func (s *Store) GetOrCreate(ctx context.Context, user models.UserSnapshot, payment models.PaymentSnapshot) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	err := s.c.FindOne(ctx, bson.M{"user._id": user.ID, "payment._id": payment.ID}).Decode(&pa)
	if err == nil {
		return pa, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.PaymentAssignment{}, err
	}

	pa, err = s.Insert(ctx, models.PaymentAssignment{User: user, Payment: payment})
	if errors.Is(err, ErrAlreadyCharged) {
		// Lost a race with a concurrent assign; the winner's doc serves.
		var existing models.PaymentAssignment
		if ferr := s.c.FindOne(ctx, bson.M{"user._id": user.ID, "payment._id": payment.ID}).Decode(&existing); ferr != nil {
			return models.PaymentAssignment{}, ferr
		}
		return existing, nil
	}
	return pa, err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&pa); err != nil {
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

func (s *Store) ListByPayment(ctx context.Context, paymentID primitive.ObjectID) ([]models.PaymentAssignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"payment._id": paymentID},
		options.Find().SetSort(bson.D{{Key: "user.lastname", Value: 1}, {Key: "user.name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.PaymentAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PaymentAssignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"user._id": userID},
		options.Find().SetSort(bson.D{{Key: "payment.limit_date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.PaymentAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete appends the user's voucher evidence and marks the charge paid,
// pending treasurer confirmation. Vouchers accumulate across submissions.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, voucherKeys []string) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"voucher_keys": bson.M{"$each": voucherKeys}},
			"$set": bson.M{
				"completed":  true,
				"confirmed":  false,
				"updated_at": time.Now().UTC(),
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pa)
	if err != nil {
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

// Confirm is the treasurer's sign-off on a completed charge.
func (s *Store) Confirm(ctx context.Context, id primitive.ObjectID) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "completed": true},
		bson.M{"$set": bson.M{"confirmed": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pa)
	if err != nil {
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

// Reset rejects the evidence: both flags drop but the submitted vouchers are
// retained, so a once-vouchered charge keeps surviving the deletion guards.
func (s *Store) Reset(ctx context.Context, id primitive.ObjectID) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"completed":  false,
			"confirmed":  false,
			"updated_at": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pa)
	if err != nil {
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

// DeleteUncompleted removes the charge only while no evidence is attached.
// Returns the removed document; ErrNoDocuments when the charge is absent or
// already completed.
func (s *Store) DeleteUncompleted(ctx context.Context, id primitive.ObjectID) (models.PaymentAssignment, error) {
	var pa models.PaymentAssignment
	err := s.c.FindOneAndDelete(ctx,
		bson.M{"_id": id, "completed": false, "voucher_keys": bson.M{"$size": 0}},
	).Decode(&pa)
	if err != nil {
		return models.PaymentAssignment{}, err
	}
	return pa, nil
}

// DeleteByPayment removes the charges of a payment that are neither completed
// nor have vouchers attached; paid or in-flight charges survive the payment.
// Returns the removed ids so the assignment cascade can drop its references.
func (s *Store) DeleteByPayment(ctx context.Context, paymentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"payment._id": paymentID, "completed": false, "voucher_keys": bson.M{"$size": 0}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if len(ids) > 0 {
		if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// SyncPaymentSnapshot re-syncs the embedded payment copy on every charge.
func (s *Store) SyncPaymentSnapshot(ctx context.Context, snap models.PaymentSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"payment._id": snap.ID},
		bson.M{"$set": bson.M{"payment": snap, "updated_at": time.Now().UTC()}})
	return err
}

// SyncUserSnapshot re-syncs the embedded user copy on every charge of the
// user.
func (s *Store) SyncUserSnapshot(ctx context.Context, u models.UserSnapshot) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"user._id": u.ID},
		bson.M{"$set": bson.M{"user": u, "updated_at": time.Now().UTC()}})
	return err
}
