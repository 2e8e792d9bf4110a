// Package audit stores account events: sign-ups, sign-ins, sign-outs and
// account deletions.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is where events are kept.
const Collection = "audit_events"

// DefaultLimit caps how many events a read returns.
const DefaultLimit = 100

// Event types.
const (
	EventSignup          = "signup"
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventLoginRateLimit  = "login_rate_limited"
	EventGoogleLogin     = "google_login"
	EventGoogleRejected  = "google_rejected"
	EventLogout          = "logout"
	EventAccountDeleted  = "account_deleted"
	EventPasswordChanged = "password_changed"
)

// Event is one audit record. UserID is blank when no account was resolved,
// as with a failed sign-in for an unknown email.
type Event struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	EventType     string             `bson:"event_type" json:"event_type"`
	UserID        string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	IP            string             `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent     string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Success       bool               `bson:"success" json:"success"`
	FailureReason string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	Details       map[string]string  `bson:"details,omitempty" json:"details,omitempty"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Indexes are installed by the schema step at startup.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		{
			Keys:    bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_type_ts"),
		},
	}
}

// Log records e, filling in the id and timestamp when unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Filter narrows Query. Zero fields match everything.
type Filter struct {
	UserID    string
	EventType string
	Since     time.Time
	Limit     int64
}

// Query returns matching events, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Event, error) {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if !f.Since.IsZero() {
		q["timestamp"] = bson.M{"$gte": f.Since}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	out := []Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return out, nil
}

// ListForUser returns userID's most recent events.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int64) ([]Event, error) {
	return s.Query(ctx, Filter{UserID: userID, Limit: limit})
}

// DeleteBefore removes events older than cutoff and returns how many went.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return res.DeletedCount, nil
}
