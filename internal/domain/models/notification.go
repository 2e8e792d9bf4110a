package models

import "time"

// NotificationItem is one entry of a user's feed. Items are written by an
// external process; this service only reads them.
type NotificationItem struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Type      string    `bson:"type" json:"type"` // chat | mission_update | ...
	MissionID *string   `bson:"mission_id,omitempty" json:"mission_id,omitempty"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Read      bool      `bson:"read" json:"read"`
}
