package config

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

var (
	// MongoDB client
	MongoDB *mongo.Database
	// Redis client
	Redis *redisclient.Client
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(AppConfig.MongoURI).
		SetMonitor(otelmongo.NewMonitor()).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}

	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		log.Fatal(err)
	}

	MongoDB = client.Database(AppConfig.MongoDatabase)

	if err := EnsureIndexes(); err != nil {
		logging.Logger.Error("failed to ensure indexes on startup", zap.Error(err))
	}
	startIndexMaintenance()

	logging.Logger.Info("connected to MongoDB",
		zap.String("uri", maskMongoURI(AppConfig.MongoURI)),
		zap.String("database", AppConfig.MongoDatabase),
	)
}

// InitRedis initializes the Redis connection
func InitRedis() {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         AppConfig.RedisAddr,
		Password:     AppConfig.RedisPassword,
		DB:           AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	Redis = redisclient.NewClient(redisClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis.Ping(ctx).Err(); err != nil {
		logging.Logger.Error("failed to connect to Redis",
			zap.String("addr", AppConfig.RedisAddr),
			zap.Error(err))
		return
	}

	logging.Logger.Info("connected to Redis",
		zap.String("addr", AppConfig.RedisAddr))
}

// maskMongoURI masks credentials in a MongoDB URI
func maskMongoURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at < 0 {
		return uri
	}
	return "mongodb://****:****@" + uri[at+1:]
}

// indexSpec couples a collection name with the indexes it requires.
type indexSpec struct {
	collection string
	models     []mongo.IndexModel
}

// requiredIndexes lists every index the service depends on.
func requiredIndexes() []indexSpec {
	return []indexSpec{
		{AppConfig.CitizenCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "cpf", Value: 1}}, Options: options.Index().SetName("cpf_1").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "active", Value: 1}}, Options: options.Index().SetName("email_1_active_1")},
		}},
		{AppConfig.AddressCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "citizen_id", Value: 1}, {Key: "active", Value: 1}}, Options: options.Index().SetName("citizen_id_1_active_1")},
		}},
		{AppConfig.MunicipalityCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "city", Value: 1}}, Options: options.Index().SetName("state_1_city_1").SetUnique(true)},
		}},
		{AppConfig.ServiceRequestCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "citizen_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("citizen_id_1_created_at_-1")},
			{Keys: bson.D{{Key: "protocol", Value: 1}}, Options: options.Index().SetName("protocol_1").SetUnique(true)},
		}},
		{AppConfig.CommunicationCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "municipality_id", Value: 1}, {Key: "published_at", Value: -1}}, Options: options.Index().SetName("municipality_id_1_published_at_-1")},
		}},
		{AppConfig.CommunicationReadCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "communication_id", Value: 1}, {Key: "citizen_id", Value: 1}}, Options: options.Index().SetName("communication_id_1_citizen_id_1").SetUnique(true)},
		}},
		{AppConfig.IdentityCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_1").SetUnique(true)},
		}},
		{AppConfig.CompensationLogCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("status_1_created_at_-1")},
		}},
	}
}

// EnsureIndexes creates required indexes if they don't exist
func EnsureIndexes() error {
	logger := zap.L().Named("database")
	logger.Info("ensuring required indexes exist")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, spec := range requiredIndexes() {
		if err := ensureCollectionIndexes(ctx, logger, spec); err != nil {
			return err
		}
	}

	logger.Info("all required indexes verified")
	return nil
}

// ensureCollectionIndexes creates the missing indexes for one collection.
func ensureCollectionIndexes(ctx context.Context, logger *zap.Logger, spec indexSpec) error {
	collection := MongoDB.Collection(spec.collection)

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		logger.Error("failed to list indexes", zap.String("collection", spec.collection), zap.Error(err))
		return err
	}
	defer cursor.Close(ctx)

	existing := make(map[string]bool)
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			continue
		}
		if name, ok := index["name"].(string); ok {
			existing[name] = true
		}
	}

	created := 0
	for _, model := range spec.models {
		name := ""
		if model.Options != nil && model.Options.Name != nil {
			name = *model.Options.Name
		}
		if existing[name] {
			continue
		}

		if _, err := collection.Indexes().CreateOne(ctx, model); err != nil {
			// Another instance may have created it concurrently.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			logger.Error("failed to create index",
				zap.String("collection", spec.collection),
				zap.String("index", name),
				zap.Error(err))
			return err
		}
		created++
	}

	if created > 0 {
		logger.Info("created collection indexes",
			zap.String("collection", spec.collection),
			zap.Int("count", created))
	} else {
		logger.Debug("collection indexes already exist",
			zap.String("collection", spec.collection))
	}

	return nil
}

// startIndexMaintenance starts a goroutine that periodically ensures indexes exist
func startIndexMaintenance() {
	logger := zap.L().Named("database")

	go func() {
		ticker := time.NewTicker(AppConfig.IndexMaintenanceInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := EnsureIndexes(); err != nil {
				logger.Error("periodic index check failed", zap.Error(err))
			}
		}
	}()

	logger.Info("started index maintenance routine",
		zap.Duration("interval", AppConfig.IndexMaintenanceInterval))
}
