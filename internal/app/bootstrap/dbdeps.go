package bootstrap

import (
	"github.com/civicapp/civichub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// StateCleanup is built in ConnectDB, started in Startup and stopped in Shutdown.
	StateCleanup *workers.StateCleanup
}
