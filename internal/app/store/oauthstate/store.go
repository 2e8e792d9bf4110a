// Package oauthstate keeps the one-time state tokens of the Google sign-in
// round trip.
package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Clients a sign-in can start from. A mobile client gets the bearer token in
// the callback response; a web client gets the session cookie and a redirect.
const (
	ClientWeb    = "web"
	ClientMobile = "mobile"
)

// Entry is a state token waiting for its callback.
type Entry struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"`
	Client    string    `bson:"client"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// Save records a state token.
func (s *Store) Save(ctx context.Context, e Entry) error {
	if e.Client == "" {
		e.Client = ClientWeb
	}
	e.CreatedAt = time.Now().UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume looks up an unexpired token and deletes it, so each token works
// once. ok is false for unknown or expired tokens.
func (s *Store) Consume(ctx context.Context, state string) (e Entry, ok bool, err error) {
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("consume oauth state: %w", err)
	}
	return e, true, nil
}

// CleanupExpired removes expired tokens. The TTL index normally does this;
// the sweep covers the gap before the TTL monitor runs.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Indexes returns the index models for the collection.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_expires"),
		},
	}
}
