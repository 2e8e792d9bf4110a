package notificationstore

import (
	"context"
	"fmt"

	"github.com/civicapp/civichub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit caps how many items a feed read returns.
const DefaultLimit = 200

// Store reads the notification feed. Items are written by another process,
// so there are no write methods here.
type Store struct {
	c     *mongo.Collection
	limit int64
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications"), limit: DefaultLimit}
}

// ListForUser returns userID's notifications, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.NotificationItem, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// List returns every notification, newest first.
func (s *Store) List(ctx context.Context) ([]models.NotificationItem, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.NotificationItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(s.limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.NotificationItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}
