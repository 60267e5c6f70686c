package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	redisdriver "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/redisclient"
)

// TestContainers holds references to test containers
type TestContainers struct {
	MongoContainer *mongodb.MongoDBContainer
	RedisContainer *redis.RedisContainer
	MongoDB        *mongo.Database
	Cleanup        func()
}

// SetupTestContainers starts MongoDB and Redis containers for testing
func SetupTestContainers(t *testing.T) *TestContainers {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx,
		"mongo:7.0",
		mongodb.WithUsername("root"),
		mongodb.WithPassword("password"),
	)
	require.NoError(t, err, "Failed to start MongoDB container")

	// Start Redis container
	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err, "Failed to start Redis container")

	// Get MongoDB connection string
	mongoURI, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MongoDB connection string")

	// Get Redis endpoint
	redisEndpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err, "Failed to get Redis endpoint")

	// Connect to MongoDB
	clientOptions := options.Client().ApplyURI(mongoURI)
	mongoClient, err := mongo.Connect(ctx, clientOptions)
	require.NoError(t, err, "Failed to connect to MongoDB")

	// Ping MongoDB
	err = mongoClient.Ping(ctx, nil)
	require.NoError(t, err, "Failed to ping MongoDB")

	// Get test database
	database := mongoClient.Database("municipe_test")

	// Initialize config for tests
	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}

	// Set test configuration
	config.AppConfig.MongoURI = mongoURI
	config.AppConfig.MongoDatabase = "municipe_test"
	config.AppConfig.RedisAddr = redisEndpoint
	config.AppConfig.RedisDB = 0
	config.AppConfig.RedisPassword = ""
	config.AppConfig.RedisTTL = 60 * time.Minute
	config.AppConfig.CitizenCollection = "citizens"
	config.AppConfig.AddressCollection = "citizen_addresses"
	config.AppConfig.MunicipalityCollection = "municipalities"
	config.AppConfig.ServiceCollection = "services"
	config.AppConfig.ServiceRequestCollection = "service_requests"
	config.AppConfig.CommunicationCollection = "communications"
	config.AppConfig.CommunicationLinkCollection = "communication_links"
	config.AppConfig.CommunicationReadCollection = "communication_reads"
	config.AppConfig.IdentityCollection = "auth_identities"
	config.AppConfig.CompensationLogCollection = "compensation_log"
	config.AppConfig.CounterCollection = "counters"
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.SessionTTL = 24 * time.Hour
	config.AppConfig.IndexMaintenanceInterval = 1 * time.Hour

	// Set global MongoDB and Redis references
	config.MongoDB = database
	config.Redis = redisclient.NewClient(redisdriver.NewClient(&redisdriver.Options{
		Addr: redisEndpoint,
	}))

	cleanup := func() {
		// Disconnect MongoDB
		if mongoClient != nil {
			ctx := context.Background()
			mongoClient.Disconnect(ctx)
		}

		// Terminate containers
		if mongoContainer != nil {
			mongoContainer.Terminate(ctx)
		}
		if redisContainer != nil {
			redisContainer.Terminate(ctx)
		}
	}

	return &TestContainers{
		MongoContainer: mongoContainer,
		RedisContainer: redisContainer,
		MongoDB:        database,
		Cleanup:        cleanup,
	}
}

// CleanupDatabase drops all collections in the test database
func CleanupDatabase(t *testing.T, db *mongo.Database) {
	ctx := context.Background()
	collections, err := db.ListCollectionNames(ctx, map[string]interface{}{})
	require.NoError(t, err, "Failed to list collections")

	for _, collection := range collections {
		err := db.Collection(collection).Drop(ctx)
		require.NoError(t, err, fmt.Sprintf("Failed to drop collection %s", collection))
	}
}
