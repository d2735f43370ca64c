// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureAreas(ctx, db); err != nil {
		problems = append(problems, "areas: "+err.Error())
	}
	if err := ensureActivities(ctx, db); err != nil {
		problems = append(problems, "activities: "+err.Error())
	}
	if err := ensureActivityAssignments(ctx, db); err != nil {
		problems = append(problems, "activity_assignments: "+err.Error())
	}
	if err := ensurePayments(ctx, db); err != nil {
		problems = append(problems, "payments: "+err.Error())
	}
	if err := ensurePaymentAssignments(ctx, db); err != nil {
		problems = append(problems, "payment_assignments: "+err.Error())
	}
	if err := ensureSessions(ctx, db); err != nil {
		problems = append(problems, "sessions: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		// Load existing indexes so reruns against a live database neither
		// error out nor pile up near-duplicate definitions.
		existing := map[string]existingIndex{}
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
			cur.Close(ctx)
		}

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) {
				continue
			}
			// Options mismatch (e.g. upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Scholarship code and email are both login identifiers.
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_code"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Role-scoped lists (responsible pickers, scholarship rosters).
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "promotion", Value: 1}},
			Options: options.Index().SetName("idx_users_role_promotion"),
		},
	})
}

func ensureAreas(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("areas")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// No duplicate area names (case/diacritics folded via name_ci).
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_areas_nameci"),
		},
		{
			Keys:    bson.D{{Key: "responsible._id", Value: 1}},
			Options: options.Index().SetName("idx_areas_responsible"),
		},
	})
}

func ensureActivities(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("activities")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_activities_nameci"),
		},
		// Area dashboards list by area and date.
		{
			Keys:    bson.D{{Key: "area._id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_activities_area_date"),
		},
		{
			Keys:    bson.D{{Key: "responsible._id", Value: 1}},
			Options: options.Index().SetName("idx_activities_responsible"),
		},
		// Registration-window scans for open activities.
		{
			Keys:    bson.D{{Key: "registration_end_date", Value: 1}},
			Options: options.Index().SetName("idx_activities_regend"),
		},
	})
}

func ensureActivityAssignments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("activity_assignments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one assignment per (user, activity).
		{
			Keys:    bson.D{{Key: "user._id", Value: 1}, {Key: "activity._id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_assign_user_activity"),
		},
		// Paged roster: grouped by activity, uncompleted first, pending last.
		{
			Keys: bson.D{
				{Key: "activity._id", Value: 1},
				{Key: "completed", Value: -1},
				{Key: "pending_payment", Value: 1},
			},
			Options: options.Index().SetName("idx_assign_activity_completed_pending"),
		},
		{
			Keys:    bson.D{{Key: "user._id", Value: 1}},
			Options: options.Index().SetName("idx_assign_user"),
		},
	})
}

func ensurePayments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("payments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_payments_nameci"),
		},
		{
			Keys:    bson.D{{Key: "limit_date", Value: 1}},
			Options: options.Index().SetName("idx_payments_limitdate"),
		},
		{
			Keys:    bson.D{{Key: "treasurer._id", Value: 1}},
			Options: options.Index().SetName("idx_payments_treasurer"),
		},
	})
}

func ensurePaymentAssignments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("payment_assignments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one charge per (user, payment).
		{
			Keys:    bson.D{{Key: "user._id", Value: 1}, {Key: "payment._id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_payassign_user_payment"),
		},
		{
			Keys:    bson.D{{Key: "payment._id", Value: 1}, {Key: "completed", Value: 1}},
			Options: options.Index().SetName("idx_payassign_payment_completed"),
		},
	})
}

func ensureSessions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("sessions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Forced logout deletes by user.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
		// Expired refresh grants are pruned by Mongo itself.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_sessions_expires"),
		},
	})
}
