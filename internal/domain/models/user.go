package models

import "time"

// User is the profile document for a volunteer. The _id matches the
// credential id issued by the identity service at sign-up.
//
// NOTE:
//   - ActiveMissions is the user-side half of participation. The mission-side
//     half lives in Mission.Participants; the participation coordinator keeps
//     the two in step.
type User struct {
	ID                string   `bson:"_id" json:"id"`
	Name              string   `bson:"name" json:"name"`
	NameCI            string   `bson:"name_ci" json:"-"` // folded for case-insensitive lookups
	Email             string   `bson:"email" json:"email"`
	Bio               string   `bson:"bio" json:"bio"`
	ProfileImageURL   string   `bson:"profile_image_url,omitempty" json:"profile_image_url,omitempty"`
	Points            int64    `bson:"points" json:"points"`
	CompletedMissions int64    `bson:"completed_missions" json:"completed_missions"`
	ActiveMissions    []string `bson:"active_missions" json:"active_missions"`

	JoinedAt  time.Time `bson:"joined_at" json:"joined_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
