// internal/domain/models/area.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Area is an organizational unit ("eje") that owns activities and tracks
// accumulated service hours per user.
//
// Responsible holds user snapshots; activities, assignments, and user ledgers
// embed a snapshot of the area, so every update must cascade (see
// areastore and the dependent stores' cascade methods).
type Area struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Color       string             `bson:"color,omitempty" json:"color,omitempty"`
	IconKey     string             `bson:"icon_key,omitempty" json:"-"`
	Responsible []UserSnapshot     `bson:"responsible" json:"responsible"`
	Blocked     bool               `bson:"blocked" json:"blocked"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// IsResponsible reports whether the user appears in the responsible list.
func (a *Area) IsResponsible(userID primitive.ObjectID) bool {
	for _, u := range a.Responsible {
		if u.ID == userID {
			return true
		}
	}
	return false
}
