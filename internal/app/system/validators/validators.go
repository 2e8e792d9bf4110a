package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/civicapp/civichub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("credentials", credentialsSchema())
	ensure("missions", missionsSchema())
	ensure("chats", chatsSchema())
	ensure("chat_messages", chatMessagesSchema())
	ensure("audit_events", auditEventsSchema())

	// Written by other processes or short-lived; no validator.
	ensure("notifications", nil)
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists uses ListCollectionNames so "created collection" is only
// logged when we actually created it.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email"},
			"properties": bson.M{
				"name":               nonBlank,
				"name_ci":            bson.M{"bsonType": "string"},
				"email":              nonBlank,
				"bio":                bson.M{"bsonType": "string"},
				"points":             bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"completed_missions": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"active_missions":    bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func credentialsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "provider"},
			"properties": bson.M{
				"email":         nonBlank,
				"provider":      bson.M{"enum": bson.A{models.ProviderPassword, models.ProviderGoogle}},
				"password_hash": bson.M{"bsonType": "string"},
				"provider_id":   bson.M{"bsonType": "string"},
			},
		},
	}
}

func missionsSchema() bson.M {
	statusEnum := bson.A{}
	for _, s := range models.MissionStatuses {
		statusEnum = append(statusEnum, s)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "status", "date", "participants"},
			"properties": bson.M{
				"title":              nonBlank,
				"title_ci":           bson.M{"bsonType": "string"},
				"description":        bson.M{"bsonType": "string"},
				"category":           bson.M{"bsonType": "string"},
				"status":             bson.M{"enum": statusEnum},
				"date":               bson.M{"bsonType": "date"},
				"created_by":         bson.M{"bsonType": "string"},
				"participants":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"participants_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"max_participants":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func chatsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"users", "created_at"},
			"properties": bson.M{
				"users":      bson.M{"bsonType": "array", "minItems": 2, "items": bson.M{"bsonType": "string"}},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func chatMessagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"chat_id", "sender_id", "content", "timestamp"},
			"properties": bson.M{
				"chat_id":     nonBlank,
				"sender_id":   nonBlank,
				"sender_name": bson.M{"bsonType": "string"},
				"content":     nonBlank,
				"timestamp":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func auditEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"event_type", "timestamp", "success"},
			"properties": bson.M{
				"event_type": nonBlank,
				"timestamp":  bson.M{"bsonType": "date"},
				"success":    bson.M{"bsonType": "bool"},
				"user_id":    bson.M{"bsonType": "string"},
				"details":    bson.M{"bsonType": "object"},
			},
		},
	}
}
