package missionstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/htmlsanitize"
	"github.com/civicapp/civichub/internal/app/system/normalize"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CategoryAll is the filter value that matches every mission.
const CategoryAll = "all"

var (
	// ErrNotFound is returned when no mission has the requested id.
	ErrNotFound = apperr.NotFound("mission")
	// ErrNotCreator is returned when someone other than the creator changes a mission's status.
	ErrNotCreator = apperr.New(apperr.KindPermission, "only the mission creator can change its status")
	// ErrFull is returned by AddParticipant when capacity is enforced and no seats are left.
	ErrFull = apperr.New(apperr.KindConflict, "mission is full")
	// ErrCompleted is returned when a completed mission is moved to another status.
	ErrCompleted = apperr.New(apperr.KindConflict, "a completed mission cannot change status")

	errTitleRequired = apperr.Validation("title is required")
	errIDRequired    = apperr.Validation("mission id and user id are required")
	errBadStatus     = apperr.Validation(`status must be "pending"|"completed"|"canceled"`)
	errBadCapacity   = apperr.Validation("max_participants cannot be negative")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("missions")}
}

func listOpts() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
}

// GetByID loads a mission. Returns ErrNotFound if there is none.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	var m models.Mission
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mission %s: %w", id, err)
	}
	return &m, nil
}

// List returns every mission ordered by date.
func (s *Store) List(ctx context.Context) ([]models.Mission, error) {
	return s.find(ctx, bson.M{})
}

// ListByCategory returns missions whose category equals category exactly.
// An empty category or CategoryAll returns the full list.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]models.Mission, error) {
	category = normalize.Category(category)
	if category == "" || category == CategoryAll {
		return s.List(ctx)
	}
	return s.find(ctx, bson.M{"category": category})
}

// Search returns missions whose title or description contains query,
// ignoring case. An empty query returns the full list.
func (s *Store) Search(ctx context.Context, query string) ([]models.Mission, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return s.List(ctx)
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(q))}
	return s.find(ctx, bson.M{"$or": []bson.M{
		{"title_ci": pattern},
		{"description_ci": pattern},
	}})
}

// ListByParticipant returns the missions userID has joined.
func (s *Store) ListByParticipant(ctx context.Context, userID string) ([]models.Mission, error) {
	return s.find(ctx, bson.M{"participants": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Mission, error) {
	cur, err := s.c.Find(ctx, filter, listOpts())
	if err != nil {
		return nil, fmt.Errorf("find missions: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Mission{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode missions: %w", err)
	}
	return out, nil
}

// Create inserts a new mission. ID, status, participant fields and
// timestamps are assigned here; the caller supplies the content and CreatedBy.
func (s *Store) Create(ctx context.Context, m models.Mission) (models.Mission, error) {
	m.Title = normalize.Name(m.Title)
	if m.Title == "" {
		return models.Mission{}, errTitleRequired
	}
	if m.MaxParticipants < 0 {
		return models.Mission{}, errBadCapacity
	}
	m.ID = primitive.NewObjectID().Hex()
	m.TitleCI = text.Fold(m.Title)
	m.Description = strings.TrimSpace(htmlsanitize.Sanitize(m.Description))
	m.DescriptionCI = text.Fold(htmlsanitize.Text(m.Description))
	m.Category = normalize.Category(m.Category)
	m.Location = strings.TrimSpace(m.Location)
	m.Status = models.MissionPending
	m.Participants = []string{}
	m.ParticipantsCount = 0

	now := time.Now().UTC()
	m.CreatedAt = now
	m.LastUpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	return m, nil
}

// AddParticipant lists userID on the mission. A user already listed is left
// as is, so participants_count is never bumped twice; added reports whether
// this call made the change. With enforceCapacity set, a mission whose
// max_participants is reached rejects with ErrFull.
func (s *Store) AddParticipant(ctx context.Context, missionID, userID string, enforceCapacity bool) (added bool, err error) {
	if missionID == "" || userID == "" {
		return false, errIDRequired
	}

	filter := bson.M{"_id": missionID, "participants": bson.M{"$ne": userID}}
	if enforceCapacity {
		filter["$or"] = []bson.M{
			{"max_participants": bson.M{"$lte": 0}},
			{"$expr": bson.M{"$lt": bson.A{"$participants_count", "$max_participants"}}},
		}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"participants": userID},
		"$inc":  bson.M{"participants_count": 1},
		"$set":  bson.M{"last_updated_at": time.Now().UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("add participant to %s: %w", missionID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	m, err := s.GetByID(ctx, missionID)
	if err != nil {
		return false, err
	}
	if m.HasParticipant(userID) {
		return false, nil
	}
	return false, ErrFull
}

// RemoveParticipant takes userID off the mission. Removing a user who is not
// listed is a no-op; removed reports whether this call made the change.
func (s *Store) RemoveParticipant(ctx context.Context, missionID, userID string) (removed bool, err error) {
	if missionID == "" || userID == "" {
		return false, errIDRequired
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": missionID, "participants": userID},
		bson.M{
			"$pull": bson.M{"participants": userID},
			"$inc":  bson.M{"participants_count": -1},
			"$set":  bson.M{"last_updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, fmt.Errorf("remove participant from %s: %w", missionID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := s.GetByID(ctx, missionID); err != nil {
		return false, err
	}
	return false, nil
}

// UpdateStatus sets the mission's status. Only the creator may do this.
// changed is false when the mission already had that status. Completed is
// final: any other status afterwards returns ErrCompleted.
func (s *Store) UpdateStatus(ctx context.Context, missionID, creatorID, status string) (changed bool, err error) {
	status = normalize.Status(status)
	if !models.IsMissionStatus(status) {
		return false, errBadStatus
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":        missionID,
			"created_by": creatorID,
			"status":     bson.M{"$nin": bson.A{status, models.MissionCompleted}},
		},
		bson.M{"$set": bson.M{"status": status, "last_updated_at": time.Now().UTC()}})
	if err != nil {
		return false, fmt.Errorf("update mission %s status: %w", missionID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	m, err := s.GetByID(ctx, missionID)
	if err != nil {
		return false, err
	}
	if m.CreatedBy != creatorID {
		return false, ErrNotCreator
	}
	if m.Status == models.MissionCompleted && status != models.MissionCompleted {
		return false, ErrCompleted
	}
	return false, nil
}
