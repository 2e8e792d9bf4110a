package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicapp/civichub/internal/app/store/audit"
	"github.com/civicapp/civichub/internal/app/store/oauthstate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection set is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func desired() []indexSet {
	return []indexSet{
		{"users", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
			},
			// participant name lookups on the mission detail screen
			{
				Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_users_nameci__id"),
			},
		}},
		{"credentials", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_credentials_email"),
			},
			// password accounts carry no provider_id
			{
				Keys: bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_credentials_provider_id").
					SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$exists": true}}),
			},
		}},
		{"missions", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_missions_date__id"),
			},
			{
				Keys:    bson.D{{Key: "category", Value: 1}, {Key: "date", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_missions_category_date__id"),
			},
			{
				Keys:    bson.D{{Key: "participants", Value: 1}},
				Options: options.Index().SetName("idx_missions_participants"),
			},
			{
				Keys:    bson.D{{Key: "created_by", Value: 1}},
				Options: options.Index().SetName("idx_missions_created_by"),
			},
		}},
		{"chats", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "users", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_chats_users_created"),
			},
		}},
		{"chat_messages", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_chat_messages_chat_ts__id"),
			},
		}},
		{"notifications", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_notifications_user_created"),
			},
		}},
		{"oauth_states", oauthstate.Indexes()},
		{audit.Collection, audit.Indexes()},
	}
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate detector that works across vendors.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB returns IndexOptionsConflict when an index with the same keys
// already exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// ensureIndexSet reconciles the desired indexes of one collection. An index
// whose keys already exist is reused when its uniqueness matches, renamed
// when only the name differs, and dropped and recreated otherwise.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))
		unique := desiredUnique != nil && *desiredUnique

		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))

		ex, ok := listExisting(ctx, coll)[desiredSig]
		if !ok {
			_, err := coll.Indexes().CreateOne(ctx, m)
			if err == nil {
				log.Info("index ensured", zap.Duration("took", time.Since(start)))
				continue
			}
			if !isOptionsConflictErr(err) {
				log.Warn("index ensure failed", zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}
			// Raced with another instance or the server matched keys we did not see.
			if ex, ok = listExisting(ctx, coll)[desiredSig]; !ok {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
			log.Info("reusing existing index", zap.Duration("took", time.Since(start)))
			continue
		}

		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
			continue
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), desiredName, desiredSig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}
		log.Info("index dropped and recreated", zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
