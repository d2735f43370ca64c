// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is a monetary obligation, optionally generated from an activity
// (ActivityPayment true). Amounts are stored as Decimal128; the API layer
// parses and validates them with shopspring/decimal before converting.
type Payment struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	NameCI          string               `bson:"name_ci" json:"-"`
	LimitDate       time.Time            `bson:"limit_date" json:"limitDate"`
	Amount          primitive.Decimal128 `bson:"amount" json:"amount"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Treasurer       []UserSnapshot       `bson:"treasurer" json:"treasurer"`
	TargetUsers     string               `bson:"target_users,omitempty" json:"targetUsers,omitempty"`
	ActivityPayment bool                 `bson:"activity_payment" json:"activityPayment"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// PaymentAssignment is the per-user obligation record tied to a payment.
// Completion is two-phase: the user submits voucher evidence (Completed),
// then a treasurer confirms it (Confirmed). A completed assignment, or one
// with vouchers attached, can no longer be deleted.
type PaymentAssignment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        UserSnapshot       `bson:"user" json:"user"`
	Payment     PaymentSnapshot    `bson:"payment" json:"payment"`
	Completed   bool               `bson:"completed" json:"completed"`
	Confirmed   bool               `bson:"confirmed" json:"confirmed"`
	VoucherKeys []string           `bson:"voucher_keys" json:"voucherKeys"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
