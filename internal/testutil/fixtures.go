package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test documents straight into the collections.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given id. An empty id gets a fresh one.
func (f *Fixtures) CreateUser(ctx context.Context, id, name, email string) models.User {
	f.t.Helper()

	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	u := models.User{
		ID:             id,
		Name:           name,
		NameCI:         text.Fold(name),
		Email:          email,
		ActiveMissions: []string{},
		JoinedAt:       now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// MissionOpts holds optional fields for CreateMission.
type MissionOpts struct {
	ID              string
	Description     string
	Category        string
	Status          string
	CreatedBy       string
	MaxParticipants int
	Participants    []string
}

// CreateMission inserts a mission with the given title.
func (f *Fixtures) CreateMission(ctx context.Context, title string, opts MissionOpts) models.Mission {
	f.t.Helper()

	id := opts.ID
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	status := opts.Status
	if status == "" {
		status = models.MissionPending
	}
	participants := opts.Participants
	if participants == nil {
		participants = []string{}
	}
	now := time.Now().UTC()
	m := models.Mission{
		ID:                id,
		Title:             title,
		TitleCI:           text.Fold(title),
		Description:       opts.Description,
		DescriptionCI:     text.Fold(opts.Description),
		Category:          opts.Category,
		Status:            status,
		Location:          "Town Hall",
		Date:              now.Add(48 * time.Hour),
		CreatedBy:         opts.CreatedBy,
		Participants:      participants,
		ParticipantsCount: len(participants),
		MaxParticipants:   opts.MaxParticipants,
		CreatedAt:         now,
		LastUpdatedAt:     now,
	}
	if _, err := f.db.Collection("missions").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test mission: %v", err)
	}
	return m
}

// CreateChat inserts a chat between the given users.
func (f *Fixtures) CreateChat(ctx context.Context, users ...string) models.Chat {
	f.t.Helper()

	c := models.Chat{
		ID:        primitive.NewObjectID().Hex(),
		Users:     users,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("chats").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test chat: %v", err)
	}
	return c
}

// CreateNotification inserts a notification for userID created at the given time.
func (f *Fixtures) CreateNotification(ctx context.Context, userID, kind, message string, createdAt time.Time) models.NotificationItem {
	f.t.Helper()

	n := models.NotificationItem{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		Type:      kind,
		Message:   message,
		CreatedAt: createdAt.UTC(),
	}
	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}
