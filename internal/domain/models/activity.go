// internal/domain/models/activity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is a scheduled volunteer event with a capacity, owned by one area.
//
// AvailableSpaces must never go negative. The invariant the assignment flows
// maintain is: AvailableSpaces + live assignment count == the participant
// number the activity was created (or last resized) with.
//
// ParticipatingPromotions restricts enrollment: nil means unrestricted,
// otherwise each entry is either a promotion year ("2000".."2100") or a
// promotion group name (chick | student | graduate).
type Activity struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                    string             `bson:"name" json:"name"`
	NameCI                  string             `bson:"name_ci" json:"-"`
	Date                    time.Time          `bson:"date" json:"date"`
	ServiceHours            int                `bson:"service_hours" json:"serviceHours"`
	Responsible             []UserSnapshot     `bson:"responsible" json:"responsible,omitempty"`
	Area                    AreaSnapshot       `bson:"area" json:"asigboArea"`
	Payment                 *PaymentSnapshot   `bson:"payment,omitempty" json:"payment,omitempty"`
	RegistrationStartDate   time.Time          `bson:"registration_start_date" json:"registrationStartDate"`
	RegistrationEndDate     time.Time          `bson:"registration_end_date" json:"registrationEndDate"`
	ParticipatingPromotions []string           `bson:"participating_promotions,omitempty" json:"participatingPromotions,omitempty"`
	AvailableSpaces         int                `bson:"available_spaces" json:"availableSpaces"`
	Blocked                 bool               `bson:"blocked" json:"blocked"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// IsResponsible reports whether the user appears in the responsible list.
func (a *Activity) IsResponsible(userID primitive.ObjectID) bool {
	for _, u := range a.Responsible {
		if u.ID == userID {
			return true
		}
	}
	return false
}
