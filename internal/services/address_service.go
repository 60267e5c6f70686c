package services

import (
	"context"
	"fmt"
	"strings"
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

// AddressService owns the citizen_addresses collection. The "at most
// one primary address per citizen" invariant is enforced here, not left
// to the client: marking an address primary demotes any other primary
// first.
type AddressService struct {
	database       *mongo.Database
	logger         *zap.Logger
	municipalities *MunicipalityService
}

// NewAddressService creates a new AddressService instance
func NewAddressService(database *mongo.Database, logger *zap.Logger, municipalities *MunicipalityService) *AddressService {
	return &AddressService{
		database:       database,
		logger:         logger,
		municipalities: municipalities,
	}
}

// ListAddresses returns a citizen's active addresses, primary first.
func (s *AddressService) ListAddresses(ctx context.Context, citizenID string) ([]models.CitizenAddress, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.AddressCollection, "citizen_id")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.AddressCollection)
	cursor, err := collection.Find(ctx,
		bson.M{"citizen_id": citizenID, "active": true},
		options.Find().SetSort(bson.D{
			{Key: "is_primary", Value: -1},
			{Key: "created_at", Value: 1},
		}))
	if err != nil {
		observability.DatabaseOperations.WithLabelValues("find", "error").Inc()
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer cursor.Close(ctx)

	addresses := []models.CitizenAddress{}
	if err := cursor.All(ctx, &addresses); err != nil {
		return nil, fmt.Errorf("failed to decode addresses: %w", err)
	}

	observability.DatabaseOperations.WithLabelValues("find", "success").Inc()
	return addresses, nil
}

// AddAddress inserts a new address for a citizen. The (state, city)
// pair must resolve to an active municipality.
func (s *AddressService) AddAddress(ctx context.Context, citizenID string, input models.AddressInput) (*models.CitizenAddress, error) {
	ctx, span := utils.TraceDatabaseInsert(ctx, config.AppConfig.AddressCollection)
	defer span.End()

	municipality, err := s.municipalities.Resolve(ctx, input.State, input.City)
	if err != nil {
		return nil, err
	}

	if input.IsPrimary {
		if err := s.demotePrimary(ctx, citizenID, ""); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	address := &models.CitizenAddress{
		ID:             utils.NewID(),
		CitizenID:      citizenID,
		MunicipalityID: municipality.ID,
		Street:         strings.TrimSpace(input.Street),
		Number:         strings.TrimSpace(input.Number),
		Complement:     input.Complement,
		Neighborhood:   strings.TrimSpace(input.Neighborhood),
		PostalCode:     utils.NormalizeDigits(input.PostalCode),
		IsPrimary:      input.IsPrimary,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	collection := s.database.Collection(config.AppConfig.AddressCollection)
	if _, err := collection.InsertOne(ctx, address); err != nil {
		observability.DatabaseOperations.WithLabelValues("insert", "error").Inc()
		return nil, fmt.Errorf("failed to insert address: %w", err)
	}

	observability.DatabaseOperations.WithLabelValues("insert", "success").Inc()
	return address, nil
}

// UpdateAddress edits an active address owned by the citizen.
func (s *AddressService) UpdateAddress(ctx context.Context, citizenID, addressID string, input models.AddressInput) (*models.CitizenAddress, error) {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.AddressCollection, "_id", false)
	defer span.End()

	municipality, err := s.municipalities.Resolve(ctx, input.State, input.City)
	if err != nil {
		return nil, err
	}

	if input.IsPrimary {
		if err := s.demotePrimary(ctx, citizenID, addressID); err != nil {
			return nil, err
		}
	}

	set := bson.M{
		"municipality_id": municipality.ID,
		"street":          strings.TrimSpace(input.Street),
		"number":          strings.TrimSpace(input.Number),
		"complement":      input.Complement,
		"neighborhood":    strings.TrimSpace(input.Neighborhood),
		"postal_code":     utils.NormalizeDigits(input.PostalCode),
		"is_primary":      input.IsPrimary,
		"updated_at":      time.Now().UTC(),
	}

	collection := s.database.Collection(config.AppConfig.AddressCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": addressID, "citizen_id": citizenID, "active": true},
		bson.M{"$set": set})
	if err != nil {
		observability.DatabaseOperations.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, models.ErrAddressNotFound
	}

	observability.DatabaseOperations.WithLabelValues("update", "success").Inc()

	var address models.CitizenAddress
	if err := collection.FindOne(ctx, bson.M{"_id": addressID}).Decode(&address); err != nil {
		return nil, fmt.Errorf("failed to reload address: %w", err)
	}
	return &address, nil
}

// DeleteAddress soft-deletes an address via active=false.
func (s *AddressService) DeleteAddress(ctx context.Context, citizenID, addressID string) error {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.AddressCollection, "_id", false)
	defer span.End()

	collection := s.database.Collection(config.AppConfig.AddressCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": addressID, "citizen_id": citizenID, "active": true},
		bson.M{"$set": bson.M{"active": false, "is_primary": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrAddressNotFound
	}

	s.logger.Info("address soft-deleted",
		zap.String("citizen_id", citizenID),
		zap.String("address_id", addressID))
	return nil
}

// demotePrimary clears is_primary on every other active address of the
// citizen. exceptID is skipped so an update does not demote itself.
func (s *AddressService) demotePrimary(ctx context.Context, citizenID, exceptID string) error {
	filter := bson.M{"citizen_id": citizenID, "is_primary": true, "active": true}
	if exceptID != "" {
		filter["_id"] = bson.M{"$ne": exceptID}
	}

	collection := s.database.Collection(config.AppConfig.AddressCollection)
	_, err := collection.UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"is_primary": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to demote primary address: %w", err)
	}
	return nil
}
