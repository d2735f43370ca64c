// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a scholarship holder or staff account.
//
// ServiceHours is a denormalized ledger: each entry mirrors the hours credited
// for one area, and Total must always equal the sum of the per-area hours.
// The only mutation paths are the assignment flows, which adjust both inside
// the same transaction as the assignment write.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code         int                `bson:"code" json:"code"`
	Name         string             `bson:"name" json:"name"`
	Lastname     string             `bson:"lastname" json:"lastname"`
	Email        string             `bson:"email" json:"email,omitempty"`
	Promotion    int                `bson:"promotion" json:"promotion"`
	Sex          string             `bson:"sex" json:"sex"`
	Role         []string           `bson:"role" json:"role,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	ServiceHours ServiceHours       `bson:"service_hours" json:"serviceHours"`
	Blocked      bool               `bson:"blocked" json:"blocked"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// ServiceHours is the accumulated service-hour ledger of one user.
type ServiceHours struct {
	Areas []AreaHours `bson:"areas" json:"areas"`
	Total int         `bson:"total" json:"total"`
}

// AreaHours is one per-area entry of the ledger. The area is a snapshot and is
// re-synced whenever the area document changes.
type AreaHours struct {
	Area  AreaSnapshot `bson:"area" json:"asigboArea"`
	Hours int          `bson:"hours" json:"hours"`
}

// HasRole reports whether the user carries the given role flag.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Role {
		if r == role {
			return true
		}
	}
	return false
}

// AreaHoursFor returns the hours credited for one area (0 if no entry exists).
func (s ServiceHours) AreaHoursFor(areaID primitive.ObjectID) int {
	for _, e := range s.Areas {
		if e.Area.ID == areaID {
			return e.Hours
		}
	}
	return 0
}
