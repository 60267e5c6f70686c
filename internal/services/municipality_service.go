package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// MunicipalityService provides read-only lookups over the (state, city)
// reference table used to scope addresses and communications.
type MunicipalityService struct {
	database *mongo.Database
	logger   *zap.Logger
}

// NewMunicipalityService creates a new MunicipalityService instance
func NewMunicipalityService(database *mongo.Database, logger *zap.Logger) *MunicipalityService {
	return &MunicipalityService{
		database: database,
		logger:   logger,
	}
}

// ListStates returns the distinct states that have at least one active
// municipality, sorted alphabetically.
func (s *MunicipalityService) ListStates(ctx context.Context) ([]string, error) {
	ctx, span := utils.TraceCacheGet(ctx, "municipality:states")
	defer span.End()

	cacheKey := "municipality:states"
	if cached, err := config.Redis.Get(ctx, cacheKey).Result(); err == nil {
		observability.CacheHits.WithLabelValues("municipality_states").Inc()
		var states []string
		if err := json.Unmarshal([]byte(cached), &states); err == nil {
			return states, nil
		}
	}

	ctx, dbSpan := utils.TraceDatabaseFind(ctx, config.AppConfig.MunicipalityCollection, "active")
	defer dbSpan.End()

	collection := s.database.Collection(config.AppConfig.MunicipalityCollection)
	raw, err := collection.Distinct(ctx, "state", bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	states := make([]string, 0, len(raw))
	for _, v := range raw {
		if state, ok := v.(string); ok {
			states = append(states, state)
		}
	}
	sort.Strings(states)

	if data, err := json.Marshal(states); err == nil {
		config.Redis.Set(ctx, cacheKey, data, config.AppConfig.RedisTTL)
	}

	return states, nil
}

// ListCities returns the active cities of a state, sorted alphabetically.
func (s *MunicipalityService) ListCities(ctx context.Context, state string) ([]models.Municipality, error) {
	state = strings.ToUpper(strings.TrimSpace(state))

	cacheKey := fmt.Sprintf("municipality:cities:%s", state)
	ctx, span := utils.TraceCacheGet(ctx, cacheKey)
	defer span.End()

	if cached, err := config.Redis.Get(ctx, cacheKey).Result(); err == nil {
		observability.CacheHits.WithLabelValues("municipality_cities").Inc()
		var cities []models.Municipality
		if err := json.Unmarshal([]byte(cached), &cities); err == nil {
			return cities, nil
		}
	}

	ctx, dbSpan := utils.TraceDatabaseFind(ctx, config.AppConfig.MunicipalityCollection, "state")
	defer dbSpan.End()

	collection := s.database.Collection(config.AppConfig.MunicipalityCollection)
	cursor, err := collection.Find(ctx,
		bson.M{"state": state, "active": true},
		options.Find().SetSort(bson.D{{Key: "city", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer cursor.Close(ctx)

	var cities []models.Municipality
	if err := cursor.All(ctx, &cities); err != nil {
		return nil, fmt.Errorf("failed to decode cities: %w", err)
	}

	if data, err := json.Marshal(cities); err == nil {
		config.Redis.Set(ctx, cacheKey, data, config.AppConfig.RedisTTL)
	}

	return cities, nil
}

// Resolve finds the active municipality for an exact (state, city)
// pair. A miss returns models.ErrMunicipalityNotFound.
func (s *MunicipalityService) Resolve(ctx context.Context, state, city string) (*models.Municipality, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.MunicipalityCollection, "state_city")
	defer span.End()

	state = strings.ToUpper(strings.TrimSpace(state))
	city = strings.TrimSpace(city)

	collection := s.database.Collection(config.AppConfig.MunicipalityCollection)
	var municipality models.Municipality
	err := collection.FindOne(ctx, bson.M{
		"state":  state,
		"city":   city,
		"active": true,
	}).Decode(&municipality)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			s.logger.Debug("municipality not found",
				zap.String("state", state),
				zap.String("city", city))
			return nil, models.ErrMunicipalityNotFound
		}
		return nil, fmt.Errorf("failed to resolve municipality: %w", err)
	}

	return &municipality, nil
}
