package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// CommunicationService serves the municipal announcement feed and the
// per-citizen read tracking join rows.
type CommunicationService struct {
	database *mongo.Database
	logger   *zap.Logger
}

// NewCommunicationService creates a new CommunicationService instance
func NewCommunicationService(database *mongo.Database, logger *zap.Logger) *CommunicationService {
	return &CommunicationService{
		database: database,
		logger:   logger,
	}
}

// FeedFilters narrows the communication feed.
type FeedFilters struct {
	Type     models.CommunicationType
	Featured *bool
}

// publishedWindow matches communications currently visible: published
// and either without expiry or not yet expired.
func publishedWindow(now time.Time) bson.M {
	return bson.M{
		"published_at": bson.M{"$lte": now},
		"$or": []bson.M{
			{"expires_at": bson.M{"$exists": false}},
			{"expires_at": nil},
			{"expires_at": bson.M{"$gt": now}},
		},
	}
}

// ListFeed returns the visible communications for a municipality,
// featured first then newest first. When citizenID is non-empty each
// entry carries its read flag.
func (s *CommunicationService) ListFeed(ctx context.Context, municipalityID, citizenID string, filters FeedFilters) ([]models.Communication, error) {
	cacheKey := fmt.Sprintf("communications:feed:%s", municipalityID)
	useCache := citizenID == "" && filters.Type == "" && filters.Featured == nil

	if useCache {
		ctx2, span := utils.TraceCacheGet(ctx, cacheKey)
		cached, err := config.Redis.Get(ctx2, cacheKey).Result()
		span.End()
		if err == nil {
			observability.CacheHits.WithLabelValues("communication_feed").Inc()
			var feed []models.Communication
			if err := json.Unmarshal([]byte(cached), &feed); err == nil {
				return feed, nil
			}
		}
	}

	ctx, dbSpan := utils.TraceDatabaseFind(ctx, config.AppConfig.CommunicationCollection, "municipality_id")
	defer dbSpan.End()

	filter := publishedWindow(time.Now().UTC())
	filter["municipality_id"] = municipalityID
	if filters.Type != "" {
		if !filters.Type.IsValid() {
			return nil, models.ErrInvalidCommunication
		}
		filter["type"] = filters.Type
	}
	if filters.Featured != nil {
		filter["featured"] = *filters.Featured
	}

	collection := s.database.Collection(config.AppConfig.CommunicationCollection)
	cursor, err := collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{
			{Key: "featured", Value: -1},
			{Key: "published_at", Value: -1},
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	defer cursor.Close(ctx)

	feed := []models.Communication{}
	if err := cursor.All(ctx, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode communications: %w", err)
	}

	if citizenID != "" {
		if err := s.fillReadStatus(ctx, citizenID, feed); err != nil {
			// Read flags are best-effort decoration on the feed.
			s.logger.Warn("failed to load read status",
				zap.String("citizen_id", citizenID),
				zap.Error(err))
		}
	}

	if useCache {
		if data, err := json.Marshal(feed); err == nil {
			config.Redis.Set(ctx, cacheKey, data, config.AppConfig.RedisTTL)
		}
	}

	return feed, nil
}

// GetCommunication returns one visible communication with its related
// links attached.
func (s *CommunicationService) GetCommunication(ctx context.Context, id string) (*models.Communication, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.CommunicationCollection, "_id")
	defer span.End()

	filter := publishedWindow(time.Now().UTC())
	filter["_id"] = id

	collection := s.database.Collection(config.AppConfig.CommunicationCollection)
	var communication models.Communication
	if err := collection.FindOne(ctx, filter).Decode(&communication); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}

	linkCollection := s.database.Collection(config.AppConfig.CommunicationLinkCollection)
	cursor, err := linkCollection.Find(ctx, bson.M{"communication_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to load communication links: %w", err)
	}
	defer cursor.Close(ctx)

	links := []models.CommunicationLink{}
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode communication links: %w", err)
	}
	communication.Links = links

	return &communication, nil
}

// MarkRead upserts the read join row for (communication, citizen).
// Marking twice is a no-op.
func (s *CommunicationService) MarkRead(ctx context.Context, communicationID, citizenID string) error {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.CommunicationReadCollection, "communication_citizen", true)
	defer span.End()

	collection := s.database.Collection(config.AppConfig.CommunicationReadCollection)
	_, err := collection.UpdateOne(ctx,
		bson.M{"communication_id": communicationID, "citizen_id": citizenID},
		bson.M{"$setOnInsert": bson.M{
			"communication_id": communicationID,
			"citizen_id":       citizenID,
			"read_at":          time.Now().UTC(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to mark communication read: %w", err)
	}
	return nil
}

// UnreadCount counts the visible communications of a municipality the
// citizen has not read yet.
func (s *CommunicationService) UnreadCount(ctx context.Context, municipalityID, citizenID string) (int64, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.CommunicationCollection, "unread")
	defer span.End()

	filter := publishedWindow(time.Now().UTC())
	filter["municipality_id"] = municipalityID

	collection := s.database.Collection(config.AppConfig.CommunicationCollection)
	cursor, err := collection.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to list communications: %w", err)
	}
	defer cursor.Close(ctx)

	var visible []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &visible); err != nil {
		return 0, fmt.Errorf("failed to decode communications: %w", err)
	}
	if len(visible) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(visible))
	for _, v := range visible {
		ids = append(ids, v.ID)
	}

	readCollection := s.database.Collection(config.AppConfig.CommunicationReadCollection)
	read, err := readCollection.CountDocuments(ctx, bson.M{
		"citizen_id":       citizenID,
		"communication_id": bson.M{"$in": ids},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count read communications: %w", err)
	}

	return int64(len(ids)) - read, nil
}

// fillReadStatus decorates the feed with per-citizen read flags.
func (s *CommunicationService) fillReadStatus(ctx context.Context, citizenID string, feed []models.Communication) error {
	if len(feed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(feed))
	for _, c := range feed {
		ids = append(ids, c.ID)
	}

	collection := s.database.Collection(config.AppConfig.CommunicationReadCollection)
	cursor, err := collection.Find(ctx, bson.M{
		"citizen_id":       citizenID,
		"communication_id": bson.M{"$in": ids},
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var reads []models.CommunicationRead
	if err := cursor.All(ctx, &reads); err != nil {
		return err
	}

	readSet := make(map[string]bool, len(reads))
	for _, r := range reads {
		readSet[r.CommunicationID] = true
	}

	for i := range feed {
		read := readSet[feed[i].ID]
		feed[i].Read = &read
	}
	return nil
}
