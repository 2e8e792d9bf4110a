package models

import "time"

// Chat is a conversation thread between users.
type Chat struct {
	ID        string    `bson:"_id" json:"id"`
	Users     []string  `bson:"users" json:"users"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Message belongs to a chat thread and is never modified after insert.
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	Content    string    `bson:"content" json:"content"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}
