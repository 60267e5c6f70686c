package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/redisclient"
)

// setupCitizenServiceTest initializes MongoDB and Redis for testing
func setupCitizenServiceTest(t *testing.T) (*CitizenService, *mongo.Database, func()) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping citizen service tests: MONGODB_URI not set")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	logging.InitLogger()

	// Initialize config
	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}
	config.AppConfig.CitizenCollection = "test_citizens"
	config.AppConfig.AddressCollection = "test_citizen_addresses"
	config.AppConfig.MunicipalityCollection = "test_municipalities"
	config.AppConfig.IdentityCollection = "test_auth_identities"
	config.AppConfig.CompensationLogCollection = "test_compensation_log"
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.SessionTTL = time.Hour
	config.AppConfig.RedisTTL = 5 * time.Minute

	// MongoDB setup
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "Failed to ping MongoDB")

	database := client.Database("municipe_test")
	config.MongoDB = database

	// Redis setup
	config.Redis = redisclient.NewClient(redis.NewClient(&redis.Options{
		Addr: redisAddr,
	}))

	logger := zap.NewNop()
	compensator := NewCompensator(database, logger)
	identities := NewIdentityService(database, logger)
	municipalities := NewMunicipalityService(database, logger)
	service := NewCitizenService(database, logger, identities, municipalities, compensator)

	cleanup := func() {
		for _, name := range []string{
			config.AppConfig.CitizenCollection,
			config.AppConfig.AddressCollection,
			config.AppConfig.MunicipalityCollection,
			config.AppConfig.IdentityCollection,
			config.AppConfig.CompensationLogCollection,
		} {
			database.Collection(name).Drop(ctx)
		}
		client.Disconnect(ctx)
	}

	return service, database, cleanup
}

func seedMunicipality(t *testing.T, database *mongo.Database, state, city string) string {
	municipality := models.Municipality{
		ID:     "mun-" + state + "-" + city,
		State:  state,
		City:   city,
		Active: true,
	}
	_, err := database.Collection(config.AppConfig.MunicipalityCollection).InsertOne(context.Background(), municipality)
	require.NoError(t, err, "Failed to seed municipality")
	return municipality.ID
}

func registrationInput(email, cpf string) models.RegistrationInput {
	return models.RegistrationInput{
		Name:         "Maria da Silva",
		Email:        email,
		Password:     "str0ngpassword",
		CPF:          cpf,
		BirthDate:    "15/03/1990",
		Phone:        "(11) 91234-5678",
		Street:       "Rua das Flores",
		Number:       "100",
		Neighborhood: "Centro",
		PostalCode:   "01000-000",
		State:        "SP",
		City:         "São Paulo",
	}
}

func TestRegisterCitizen_Success(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	municipalityID := seedMunicipality(t, database, "SP", "São Paulo")

	result, err := service.RegisterCitizen(ctx, registrationInput("maria@example.com", "529.982.247-25"))
	require.NoError(t, err)
	require.NotNil(t, result.Citizen)
	require.NotNil(t, result.Address)

	// Stored values are normalized.
	assert.Equal(t, "52998224725", result.Citizen.CPF)
	assert.Equal(t, "11912345678", result.Citizen.Phone)
	assert.Equal(t, "maria@example.com", result.Citizen.Email)
	assert.True(t, result.Citizen.Active)

	assert.Equal(t, municipalityID, result.Address.MunicipalityID)
	assert.True(t, result.Address.IsPrimary)

	// Visible through the read paths.
	found, err := service.GetCitizenByCPF(ctx, "52998224725")
	require.NoError(t, err)
	assert.Equal(t, result.Citizen.ID, found.ID)

	found, err = service.GetCitizenByEmail(ctx, "Maria@Example.com")
	require.NoError(t, err)
	assert.Equal(t, result.Citizen.ID, found.ID)
}

func TestRegisterCitizen_InvalidInput(t *testing.T) {
	service, _, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("Invalid CPF", func(t *testing.T) {
		input := registrationInput("cpf@example.com", "12345678900")
		_, err := service.RegisterCitizen(ctx, input)
		assert.ErrorIs(t, err, models.ErrInvalidCPF)
	})

	t.Run("Invalid birth date", func(t *testing.T) {
		input := registrationInput("date@example.com", "52998224725")
		input.BirthDate = "1990-03-15"
		_, err := service.RegisterCitizen(ctx, input)
		assert.ErrorIs(t, err, models.ErrInvalidBirthDate)
	})

	// Input validation fails before any write.
	count, err := config.MongoDB.Collection(config.AppConfig.IdentityCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegisterCitizen_UnknownMunicipalityLeavesNoRows(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	// No municipality seeded: the lookup after the citizen insert fails
	// and the compensating delete must remove the citizen row.

	_, err := service.RegisterCitizen(ctx, registrationInput("orphan@example.com", "11144477735"))
	assert.ErrorIs(t, err, models.ErrMunicipalityNotFound)

	citizens, err := database.Collection(config.AppConfig.CitizenCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, citizens, "compensating delete should leave no citizen rows")

	addresses, err := database.Collection(config.AppConfig.AddressCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, addresses)

	// The undo is recorded, not silent: one done entry for the citizen
	// row, one abandoned entry for the identity row that cannot be
	// deleted from here.
	var entries []models.CompensationEntry
	cursor, err := database.Collection(config.AppConfig.CompensationLogCollection).Find(ctx, bson.M{})
	require.NoError(t, err)
	require.NoError(t, cursor.All(ctx, &entries))
	require.Len(t, entries, 2)

	statuses := map[string]models.CompensationStatus{}
	for _, entry := range entries {
		statuses[entry.Collection] = entry.Status
	}
	assert.Equal(t, models.CompensationDone, statuses[config.AppConfig.CitizenCollection])
	assert.Equal(t, models.CompensationAbandoned, statuses[config.AppConfig.IdentityCollection])
}

func TestRegisterCitizen_AddressFailureLeavesNoRows(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")

	// Force the address insert to fail: a unique index on postal_code
	// plus a pre-seeded row with the same normalized value makes the
	// insert hit a duplicate-key error after the citizen is committed.
	addresses := database.Collection(config.AppConfig.AddressCollection)
	_, err := addresses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "postal_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)
	_, err = addresses.InsertOne(ctx, bson.M{"_id": "blocker", "postal_code": "01000000"})
	require.NoError(t, err)

	_, err = service.RegisterCitizen(ctx, registrationInput("late-failure@example.com", "52998224725"))
	require.Error(t, err)

	citizens, err := database.Collection(config.AppConfig.CitizenCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, citizens, "compensating delete should leave no citizen rows")

	count, err := addresses.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "only the pre-seeded blocker row should remain")

	var entries []models.CompensationEntry
	cursor, err := database.Collection(config.AppConfig.CompensationLogCollection).Find(ctx, bson.M{})
	require.NoError(t, err)
	require.NoError(t, cursor.All(ctx, &entries))
	require.Len(t, entries, 2)

	statuses := map[string]models.CompensationStatus{}
	for _, entry := range entries {
		statuses[entry.Collection] = entry.Status
	}
	assert.Equal(t, models.CompensationDone, statuses[config.AppConfig.CitizenCollection])
	assert.Equal(t, models.CompensationAbandoned, statuses[config.AppConfig.IdentityCollection])
}

func TestRegisterCitizen_DuplicateEmail(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")

	// Unique email index, as created at startup.
	_, err := database.Collection(config.AppConfig.IdentityCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)

	_, err = service.RegisterCitizen(ctx, registrationInput("dup@example.com", "52998224725"))
	require.NoError(t, err)

	_, err = service.RegisterCitizen(ctx, registrationInput("dup@example.com", "11144477735"))
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	// The first registration is untouched.
	citizens, err := database.Collection(config.AppConfig.CitizenCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, citizens)
}

func TestUpdateCitizen(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")

	result, err := service.RegisterCitizen(ctx, registrationInput("update@example.com", "52998224725"))
	require.NoError(t, err)

	name := "Maria de Souza"
	phone := "+55 21 99876-5432"
	updated, err := service.UpdateCitizen(ctx, result.Citizen.ID, models.CitizenUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Maria de Souza", updated.Name)
	assert.Equal(t, "21998765432", updated.Phone)

	// Immutable fields are untouched.
	assert.Equal(t, result.Citizen.CPF, updated.CPF)
	assert.Equal(t, result.Citizen.Email, updated.Email)

	_, err = service.UpdateCitizen(ctx, "missing-id", models.CitizenUpdate{Name: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Attempts to change the locked fields are rejected outright, and
	// nothing in the payload is applied.
	email := "other@example.com"
	otherName := "Maria Trocada"
	_, err = service.UpdateCitizen(ctx, result.Citizen.ID,
		models.CitizenUpdate{Name: &otherName, Email: &email})
	assert.ErrorIs(t, err, models.ErrImmutableField)

	cpf := "11144477735"
	_, err = service.UpdateCitizen(ctx, result.Citizen.ID, models.CitizenUpdate{CPF: &cpf})
	assert.ErrorIs(t, err, models.ErrImmutableField)

	current, err := service.GetCitizenByID(ctx, result.Citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria de Souza", current.Name)
	assert.Equal(t, result.Citizen.Email, current.Email)
	assert.Equal(t, result.Citizen.CPF, current.CPF)
}

func TestDisableCitizen(t *testing.T) {
	service, database, cleanup := setupCitizenServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedMunicipality(t, database, "SP", "São Paulo")

	result, err := service.RegisterCitizen(ctx, registrationInput("disable@example.com", "52998224725"))
	require.NoError(t, err)

	require.NoError(t, service.DisableCitizen(ctx, result.Citizen.ID))

	// Soft-disabled citizens disappear from every read path.
	_, err = service.GetCitizenByCPF(ctx, result.Citizen.CPF)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = service.GetCitizenByEmail(ctx, result.Citizen.Email)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The row itself is preserved.
	count, err := database.Collection(config.AppConfig.CitizenCollection).CountDocuments(ctx, bson.M{"_id": result.Citizen.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, service.DisableCitizen(ctx, result.Citizen.ID), models.ErrNotFound)
}
