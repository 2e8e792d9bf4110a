package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/civicapp/civichub/internal/app/store/audit"
	oauthstate "github.com/civicapp/civichub/internal/app/store/oauthstate"
	"github.com/civicapp/civichub/internal/app/system/indexes"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/validators"
	"github.com/civicapp/civichub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and verifies the connection with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("civichub").
		SetServerSelectionTimeout(timeouts.Medium())
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), logger, "mongo ping")
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	cleanup := workers.NewStateCleanup(oauthstate.New(db), logger, appCfg.OAuthStateSweep)
	if keep := appCfg.AuditRetention; keep > 0 {
		events := audit.New(db)
		cleanup.Also("audit retention", func(ctx context.Context) (int64, error) {
			return events.DeleteBefore(ctx, time.Now().Add(-keep))
		})
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		StateCleanup:  cleanup,
	}, nil
}

// EnsureSchema installs collection validators and then indexes. Both steps
// are idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure schema")
	defer cancel()

	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("schema ensured", zap.String("database", deps.MongoDatabase.Name()))
	return nil
}
