package credentialstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/normalize"
	"github.com/civicapp/civichub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no credential matches.
	ErrNotFound = apperr.NotFound("account")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = apperr.New(apperr.KindConflict, "an account with this email already exists")
)

// Store holds sign-in credentials. It is the identity side of an account;
// the profile lives in the users collection under the same id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("credentials")}
}

// Create inserts cred. The caller sets ID and PasswordHash.
func (s *Store) Create(ctx context.Context, cred models.Credential) (models.Credential, error) {
	cred.Email = normalize.Email(cred.Email)
	cred.DisplayName = normalize.Name(cred.DisplayName)
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, cred); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Credential{}, ErrDuplicateEmail
		}
		return models.Credential{}, fmt.Errorf("insert credential: %w", err)
	}
	return cred, nil
}

// GetByID loads a credential by account id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail loads a credential by (normalized) email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByProvider loads the credential linked to an external provider account.
func (s *Store) GetByProvider(ctx context.Context, provider, providerID string) (*models.Credential, error) {
	return s.findOne(ctx, bson.M{"provider": provider, "provider_id": providerID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Credential, error) {
	var c models.Credential
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

// Update holds credential changes. Nil fields are left alone.
type Update struct {
	Email        *string
	PasswordHash *string
	DisplayName  *string
	ProviderID   *string
}

// Update applies the non-nil fields of upd to the credential with id.
func (s *Store) Update(ctx context.Context, id string, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.DisplayName != nil {
		set["display_name"] = normalize.Name(*upd.DisplayName)
	}
	if upd.ProviderID != nil {
		set["provider_id"] = *upd.ProviderID
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update credential %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the credential.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete credential %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
