package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/htmlsanitize"
	"github.com/civicapp/civichub/internal/app/system/normalize"
	"github.com/civicapp/civichub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user document has the requested id.
	ErrNotFound = apperr.NotFound("user")
	// ErrDuplicateEmail is returned when another user already has the email.
	ErrDuplicateEmail = apperr.New(apperr.KindConflict, "a user with this email already exists")
	errNameRequired   = apperr.Validation("name is required")
	errIDRequired     = apperr.Validation("user id is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user. Returns ErrNotFound if there is none.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// ListByIDs loads the users with the given ids, ordered by name. Unknown ids
// are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	out := []models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

// Create inserts a user document. The id is normally the credential id from
// sign-up; an empty id gets a fresh UUID.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Name = normalize.Name(u.Name)
	if u.Name == "" {
		return models.User{}, errNameRequired
	}
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Bio = htmlsanitize.Text(u.Bio)
	if u.ActiveMissions == nil {
		u.ActiveMissions = []string{}
	}

	now := time.Now().UTC()
	u.JoinedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// ProfileUpdate holds the editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	Name            *string
	Email           *string
	Bio             *string
	ProfileImageURL *string
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Bio == nil && p.ProfileImageURL == nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	if upd.Empty() {
		return nil
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return errNameRequired
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Bio != nil {
		set["bio"] = htmlsanitize.Text(*upd.Bio)
	}
	if upd.ProfileImageURL != nil {
		set["profile_image_url"] = *upd.ProfileImageURL
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddActiveMission adds missionID to the user's active missions. Adding a
// mission that is already listed is a no-op.
func (s *Store) AddActiveMission(ctx context.Context, userID, missionID string) error {
	return s.updateExisting(ctx, userID, bson.M{
		"$addToSet": bson.M{"active_missions": missionID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveActiveMission removes missionID from the user's active missions.
// Removing a mission that is not listed is a no-op.
func (s *Store) RemoveActiveMission(ctx context.Context, userID, missionID string) error {
	return s.updateExisting(ctx, userID, bson.M{
		"$pull": bson.M{"active_missions": missionID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// IncrementPoints adds delta (which may be negative) to the user's points.
func (s *Store) IncrementPoints(ctx context.Context, userID string, delta int64) error {
	return s.updateExisting(ctx, userID, bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

// IncrementCompleted bumps the user's completed mission count by one.
func (s *Store) IncrementCompleted(ctx context.Context, userID string) error {
	return s.updateExisting(ctx, userID, bson.M{
		"$inc": bson.M{"completed_missions": int64(1)},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

// Delete removes the user document. Deleting a missing user returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errIDRequired
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) updateExisting(ctx context.Context, id string, update bson.M) error {
	if id == "" {
		return errIDRequired
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
