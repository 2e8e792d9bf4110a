package models

import "time"

// Mission statuses.
const (
	MissionPending   = "pending"
	MissionCompleted = "completed"
	MissionCanceled  = "canceled"
)

// MissionStatuses lists the statuses a mission may carry.
var MissionStatuses = []string{MissionPending, MissionCompleted, MissionCanceled}

// IsMissionStatus reports whether s is a known mission status.
func IsMissionStatus(s string) bool {
	for _, v := range MissionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Mission is a volunteer task users can join.
//
// Participants is the mission-side half of participation membership and
// ParticipantsCount mirrors len(Participants). MaxParticipants of zero means
// no limit.
type Mission struct {
	ID                string    `bson:"_id" json:"id"`
	Title             string    `bson:"title" json:"title"`
	TitleCI           string    `bson:"title_ci" json:"-"`
	Description       string    `bson:"description" json:"description"`
	DescriptionCI     string    `bson:"description_ci" json:"-"`
	Category          string    `bson:"category" json:"category"`
	Status            string    `bson:"status" json:"status"` // pending | completed | canceled
	Location          string    `bson:"location" json:"location"`
	Date              time.Time `bson:"date" json:"date"`
	ImageURL          string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedBy         string    `bson:"created_by" json:"created_by"`
	Participants      []string  `bson:"participants" json:"participants"`
	ParticipantsCount int       `bson:"participants_count" json:"participants_count"`
	MaxParticipants   int       `bson:"max_participants" json:"max_participants"`

	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	LastUpdatedAt time.Time `bson:"last_updated_at" json:"last_updated_at"`
}

// HasParticipant reports whether userID is listed on the mission.
func (m Mission) HasParticipant(userID string) bool {
	for _, p := range m.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
