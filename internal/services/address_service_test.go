package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/models"
)

// setupAddressServiceTest initializes MongoDB for testing
func setupAddressServiceTest(t *testing.T) (*AddressService, *mongo.Database, func()) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping address service tests: MONGODB_URI not set")
	}

	logging.InitLogger()

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}
	config.AppConfig.AddressCollection = "test_addresses"
	config.AppConfig.MunicipalityCollection = "test_municipalities"

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "Failed to ping MongoDB")

	database := client.Database("municipe_test")
	config.MongoDB = database

	logger := zap.NewNop()
	service := NewAddressService(database, logger, NewMunicipalityService(database, logger))

	cleanup := func() {
		database.Collection(config.AppConfig.AddressCollection).Drop(ctx)
		database.Collection(config.AppConfig.MunicipalityCollection).Drop(ctx)
		client.Disconnect(ctx)
	}

	return service, database, cleanup
}

func addressInput(primary bool) models.AddressInput {
	return models.AddressInput{
		Street:       "Rua das Flores",
		Number:       "100",
		Neighborhood: "Centro",
		PostalCode:   "01000-000",
		State:        "SP",
		City:         "São Paulo",
		IsPrimary:    primary,
	}
}

func countPrimaries(t *testing.T, database *mongo.Database, citizenID string) int64 {
	count, err := database.Collection(config.AppConfig.AddressCollection).CountDocuments(
		context.Background(),
		bson.M{"citizen_id": citizenID, "is_primary": true, "active": true})
	require.NoError(t, err)
	return count
}

func TestAddAddress_SinglePrimary(t *testing.T) {
	service, database, cleanup := setupAddressServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")
	citizenID := "citizen-1"

	first, err := service.AddAddress(ctx, citizenID, addressInput(true))
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)
	assert.EqualValues(t, 1, countPrimaries(t, database, citizenID))

	// A second primary demotes the first.
	second, err := service.AddAddress(ctx, citizenID, addressInput(true))
	require.NoError(t, err)
	assert.True(t, second.IsPrimary)
	assert.EqualValues(t, 1, countPrimaries(t, database, citizenID))

	addresses, err := service.ListAddresses(ctx, citizenID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, second.ID, addresses[0].ID, "primary address comes first")
	assert.False(t, addresses[1].IsPrimary)
}

func TestAddAddress_UnknownMunicipality(t *testing.T) {
	service, _, cleanup := setupAddressServiceTest(t)
	defer cleanup()

	input := addressInput(false)
	input.City = "Cidade Inexistente"
	_, err := service.AddAddress(context.Background(), "citizen-1", input)
	assert.ErrorIs(t, err, models.ErrMunicipalityNotFound)
}

func TestUpdateAddress_PromoteKeepsSinglePrimary(t *testing.T) {
	service, database, cleanup := setupAddressServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")
	citizenID := "citizen-2"

	first, err := service.AddAddress(ctx, citizenID, addressInput(true))
	require.NoError(t, err)
	second, err := service.AddAddress(ctx, citizenID, addressInput(false))
	require.NoError(t, err)

	// Promoting the second demotes the first, but never the address
	// being updated itself.
	updated, err := service.UpdateAddress(ctx, citizenID, second.ID, addressInput(true))
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)
	assert.EqualValues(t, 1, countPrimaries(t, database, citizenID))

	var demoted models.CitizenAddress
	require.NoError(t, database.Collection(config.AppConfig.AddressCollection).
		FindOne(ctx, bson.M{"_id": first.ID}).Decode(&demoted))
	assert.False(t, demoted.IsPrimary)
}

func TestUpdateAddress_OwnershipEnforced(t *testing.T) {
	service, database, cleanup := setupAddressServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")

	address, err := service.AddAddress(ctx, "owner", addressInput(false))
	require.NoError(t, err)

	_, err = service.UpdateAddress(ctx, "someone-else", address.ID, addressInput(false))
	assert.ErrorIs(t, err, models.ErrAddressNotFound)

	assert.ErrorIs(t, service.DeleteAddress(ctx, "someone-else", address.ID), models.ErrAddressNotFound)
}

func TestDeleteAddress_SoftDelete(t *testing.T) {
	service, database, cleanup := setupAddressServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")
	citizenID := "citizen-3"

	address, err := service.AddAddress(ctx, citizenID, addressInput(true))
	require.NoError(t, err)

	require.NoError(t, service.DeleteAddress(ctx, citizenID, address.ID))

	addresses, err := service.ListAddresses(ctx, citizenID)
	require.NoError(t, err)
	assert.Empty(t, addresses)

	// Row preserved, flags cleared.
	var stored models.CitizenAddress
	require.NoError(t, database.Collection(config.AppConfig.AddressCollection).
		FindOne(ctx, bson.M{"_id": address.ID}).Decode(&stored))
	assert.False(t, stored.Active)
	assert.False(t, stored.IsPrimary)
	assert.WithinDuration(t, time.Now().UTC(), stored.UpdatedAt, time.Minute)

	assert.ErrorIs(t, service.DeleteAddress(ctx, citizenID, address.ID), models.ErrAddressNotFound)
}
