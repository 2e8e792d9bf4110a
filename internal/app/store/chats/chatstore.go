package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/htmlsanitize"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPollInterval is how often Watch re-reads a thread when the
// deployment has no change streams.
const DefaultPollInterval = 2 * time.Second

var (
	// ErrNotFound is returned when no chat has the requested id.
	ErrNotFound = apperr.NotFound("chat")

	errUsersRequired   = apperr.Validation("both users are required")
	errSameUser        = apperr.Validation("a chat needs two different users")
	errContentRequired = apperr.Validation("message content is required")
	errSenderRequired  = apperr.Validation("chat id and sender are required")
)

type Store struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	poll     time.Duration

	afterInitialList func()
}

func New(db *mongo.Database) *Store {
	return &Store{
		chats:    db.Collection("chats"),
		messages: db.Collection("chat_messages"),
		poll:     DefaultPollInterval,
	}
}

// SetPollInterval changes the Watch polling fallback interval.
func (s *Store) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.poll = d
	}
}

// Create opens a new thread between two users and returns its id.
func (s *Store) Create(ctx context.Context, user1, user2 string) (string, error) {
	if user1 == "" || user2 == "" {
		return "", errUsersRequired
	}
	if user1 == user2 {
		return "", errSameUser
	}
	c := models.Chat{
		ID:        primitive.NewObjectID().Hex(),
		Users:     []string{user1, user2},
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.chats.InsertOne(ctx, c); err != nil {
		return "", fmt.Errorf("insert chat: %w", err)
	}
	return c.ID, nil
}

// GetByID loads a chat. Returns ErrNotFound if there is none.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var c models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}
	return &c, nil
}

// ListForUser returns the threads userID takes part in, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.chats.Find(ctx, bson.M{"users": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find chats: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return out, nil
}

// SendMessage appends msg to its thread. ID and Timestamp are assigned when
// empty; content is reduced to plain text.
func (s *Store) SendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ChatID == "" || msg.SenderID == "" {
		return models.Message{}, errSenderRequired
	}
	msg.Content = htmlsanitize.Text(msg.Content)
	if msg.Content == "" {
		return models.Message{}, errContentRequired
	}
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the thread's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return out, nil
}
