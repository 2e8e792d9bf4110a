package models

import "time"

// Auth providers a credential can come from.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Credential is the identity-service record for one account. Its ID is the
// user id shared with the users collection.
type Credential struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"` // normalized, unique
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	DisplayName  string    `bson:"display_name" json:"display_name"`
	Provider     string    `bson:"provider" json:"provider"`
	ProviderID   string    `bson:"provider_id,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
