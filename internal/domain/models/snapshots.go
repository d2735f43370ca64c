// internal/domain/models/snapshots.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The store keeps no referential integrity between collections: documents embed
// snapshots of the entities they reference, and every write to a referenced
// entity must explicitly re-sync the copies (see the cascade helpers on each
// store). These are the snapshot shapes shared across collections.

// UserSnapshot is the denormalized copy of a user embedded in areas,
// activities, assignments, and payments.
type UserSnapshot struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Code      int                `bson:"code" json:"code"`
	Name      string             `bson:"name" json:"name"`
	Lastname  string             `bson:"lastname" json:"lastname"`
	Email     string             `bson:"email" json:"email"`
	Promotion int                `bson:"promotion" json:"promotion"`
	Sex       string             `bson:"sex" json:"sex"`
}

// AreaSnapshot is the denormalized copy of an area embedded in activities,
// assignment activity copies, and per-user service-hour entries.
type AreaSnapshot struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Color   string             `bson:"color,omitempty" json:"color,omitempty"`
	Blocked bool               `bson:"blocked" json:"blocked"`
}

// ActivitySnapshot is the denormalized copy of an activity embedded in
// assignments. It carries the fields the assignment flows read back:
// the granted hours and the owning area.
type ActivitySnapshot struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Date         time.Time          `bson:"date" json:"date"`
	ServiceHours int                `bson:"service_hours" json:"serviceHours"`
	Area         AreaSnapshot       `bson:"area" json:"asigboArea"`
	Blocked      bool               `bson:"blocked" json:"blocked"`
}

// PaymentSnapshot is the denormalized copy of a payment embedded in
// activities and payment assignments.
type PaymentSnapshot struct {
	ID              primitive.ObjectID   `bson:"_id" json:"id"`
	Name            string               `bson:"name" json:"name"`
	LimitDate       time.Time            `bson:"limit_date" json:"limitDate"`
	Amount          primitive.Decimal128 `bson:"amount" json:"amount"`
	ActivityPayment bool                 `bson:"activity_payment" json:"activityPayment"`
}

// Snapshot builds the embeddable copy of a user.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		Code:      u.Code,
		Name:      u.Name,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Promotion: u.Promotion,
		Sex:       u.Sex,
	}
}

// Snapshot builds the embeddable copy of an area.
func (a *Area) Snapshot() AreaSnapshot {
	return AreaSnapshot{ID: a.ID, Name: a.Name, Color: a.Color, Blocked: a.Blocked}
}

// Snapshot builds the embeddable copy of an activity.
func (a *Activity) Snapshot() ActivitySnapshot {
	return ActivitySnapshot{
		ID:           a.ID,
		Name:         a.Name,
		Date:         a.Date,
		ServiceHours: a.ServiceHours,
		Area:         a.Area,
		Blocked:      a.Blocked,
	}
}

// Snapshot builds the embeddable copy of a payment.
func (p *Payment) Snapshot() PaymentSnapshot {
	return PaymentSnapshot{
		ID:              p.ID,
		Name:            p.Name,
		LimitDate:       p.LimitDate,
		Amount:          p.Amount,
		ActivityPayment: p.ActivityPayment,
	}
}

// UserSnapshots maps a slice of users to their embeddable copies.
func UserSnapshots(users []User) []UserSnapshot {
	out := make([]UserSnapshot, 0, len(users))
	for i := range users {
		out = append(out, users[i].Snapshot())
	}
	return out
}
