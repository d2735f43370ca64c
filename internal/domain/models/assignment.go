// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment is the enrollment record linking one user to one activity.
// Exactly one document per (user._id, activity._id), enforced by a unique
// index; deleting it must release one unit of the activity's available spaces
// in the same transaction.
//
// The wire name of the additional-hours field keeps the historical spelling
// ("aditionalServiceHours") used by existing clients.
type Assignment struct {
	ID                     primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User                   UserSnapshot        `bson:"user" json:"user"`
	Activity               ActivitySnapshot    `bson:"activity" json:"activity"`
	PaymentAssignmentID    *primitive.ObjectID `bson:"payment_assignment_id,omitempty" json:"paymentAssignment,omitempty"`
	Completed              bool                `bson:"completed" json:"completed"`
	AdditionalServiceHours int                 `bson:"aditional_service_hours" json:"aditionalServiceHours"`
	PendingPayment         bool                `bson:"pending_payment" json:"pendingPayment"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// CreditedHours is the total a completed assignment contributes to the user's
// ledger: the activity's base hours plus the signed additional adjustment.
func (a *Assignment) CreditedHours() int {
	return a.Activity.ServiceHours + a.AdditionalServiceHours
}
