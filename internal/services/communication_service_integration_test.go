package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/redisclient"
)

// setupCommunicationServiceTest initializes MongoDB and Redis for testing
func setupCommunicationServiceTest(t *testing.T) (*CommunicationService, *mongo.Database, func()) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping communication service tests: MONGODB_URI not set")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	logging.InitLogger()

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}
	config.AppConfig.CommunicationCollection = "test_communications"
	config.AppConfig.CommunicationLinkCollection = "test_communication_links"
	config.AppConfig.CommunicationReadCollection = "test_communication_reads"
	config.AppConfig.RedisTTL = 5 * time.Minute

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "Failed to ping MongoDB")

	database := client.Database("municipe_test")
	config.MongoDB = database

	config.Redis = redisclient.NewClient(redis.NewClient(&redis.Options{
		Addr: redisAddr,
	}))

	service := NewCommunicationService(database, zap.NewNop())

	cleanup := func() {
		database.Collection(config.AppConfig.CommunicationCollection).Drop(ctx)
		database.Collection(config.AppConfig.CommunicationLinkCollection).Drop(ctx)
		database.Collection(config.AppConfig.CommunicationReadCollection).Drop(ctx)
		client.Disconnect(ctx)
	}

	return service, database, cleanup
}

func seedCommunication(t *testing.T, database *mongo.Database, communication models.Communication) {
	_, err := database.Collection(config.AppConfig.CommunicationCollection).InsertOne(context.Background(), communication)
	require.NoError(t, err, "Failed to seed communication")
}

func TestListFeed(t *testing.T) {
	service, database, cleanup := setupCommunicationServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	municipalityID := "mun-feed"

	// Drop any feed cached by a previous run.
	config.Redis.Del(ctx, "communications:feed:"+municipalityID)

	seedCommunication(t, database, models.Communication{
		ID: "old-news", MunicipalityID: municipalityID, Type: models.CommunicationNews,
		Title: "Notícia antiga", PublishedAt: now.Add(-48 * time.Hour),
	})
	seedCommunication(t, database, models.Communication{
		ID: "fresh-alert", MunicipalityID: municipalityID, Type: models.CommunicationAlert,
		Title: "Alerta de chuva", PublishedAt: now.Add(-time.Hour),
	})
	seedCommunication(t, database, models.Communication{
		ID: "featured-event", MunicipalityID: municipalityID, Type: models.CommunicationEvent,
		Title: "Festival", PublishedAt: now.Add(-24 * time.Hour), Featured: true,
	})
	// Invisible: expired, future, other municipality.
	seedCommunication(t, database, models.Communication{
		ID: "expired", MunicipalityID: municipalityID, Type: models.CommunicationNews,
		Title: "Expirado", PublishedAt: now.Add(-48 * time.Hour), ExpiresAt: &expired,
	})
	seedCommunication(t, database, models.Communication{
		ID: "scheduled", MunicipalityID: municipalityID, Type: models.CommunicationNews,
		Title: "Agendado", PublishedAt: now.Add(time.Hour),
	})
	seedCommunication(t, database, models.Communication{
		ID: "elsewhere", MunicipalityID: "mun-other", Type: models.CommunicationNews,
		Title: "Outro município", PublishedAt: now.Add(-time.Hour),
	})

	feed, err := service.ListFeed(ctx, municipalityID, "", FeedFilters{})
	require.NoError(t, err)
	require.Len(t, feed, 3)

	// Featured first, then newest first.
	assert.Equal(t, "featured-event", feed[0].ID)
	assert.Equal(t, "fresh-alert", feed[1].ID)
	assert.Equal(t, "old-news", feed[2].ID)

	t.Run("Type filter", func(t *testing.T) {
		alerts, err := service.ListFeed(ctx, municipalityID, "", FeedFilters{Type: models.CommunicationAlert})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "fresh-alert", alerts[0].ID)
	})

	t.Run("Invalid type filter", func(t *testing.T) {
		_, err := service.ListFeed(ctx, municipalityID, "", FeedFilters{Type: "gossip"})
		assert.ErrorIs(t, err, models.ErrInvalidCommunication)
	})

	t.Run("Read flags for an authenticated citizen", func(t *testing.T) {
		require.NoError(t, service.MarkRead(ctx, "fresh-alert", "citizen-1"))

		feed, err := service.ListFeed(ctx, municipalityID, "citizen-1", FeedFilters{})
		require.NoError(t, err)
		require.Len(t, feed, 3)
		for _, communication := range feed {
			require.NotNil(t, communication.Read)
			assert.Equal(t, communication.ID == "fresh-alert", *communication.Read)
		}
	})
}

func TestMarkRead_Idempotent(t *testing.T) {
	service, database, cleanup := setupCommunicationServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, service.MarkRead(ctx, "comm-1", "citizen-1"))
	require.NoError(t, service.MarkRead(ctx, "comm-1", "citizen-1"))

	count, err := database.Collection(config.AppConfig.CommunicationReadCollection).
		CountDocuments(ctx, map[string]interface{}{"communication_id": "comm-1", "citizen_id": "citizen-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUnreadCount(t *testing.T) {
	service, database, cleanup := setupCommunicationServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	municipalityID := "mun-unread"

	for _, id := range []string{"c1", "c2", "c3"} {
		seedCommunication(t, database, models.Communication{
			ID: id, MunicipalityID: municipalityID, Type: models.CommunicationNews,
			Title: id, PublishedAt: now.Add(-time.Hour),
		})
	}
	// Reads against another municipality must not count.
	seedCommunication(t, database, models.Communication{
		ID: "other", MunicipalityID: "mun-other", Type: models.CommunicationNews,
		Title: "other", PublishedAt: now.Add(-time.Hour),
	})
	require.NoError(t, service.MarkRead(ctx, "other", "citizen-1"))

	count, err := service.UnreadCount(ctx, municipalityID, "citizen-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, service.MarkRead(ctx, "c1", "citizen-1"))
	require.NoError(t, service.MarkRead(ctx, "c2", "citizen-1"))

	count, err = service.UnreadCount(ctx, municipalityID, "citizen-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGetCommunication_WithLinks(t *testing.T) {
	service, database, cleanup := setupCommunicationServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	seedCommunication(t, database, models.Communication{
		ID: "with-links", MunicipalityID: "mun-1", Type: models.CommunicationInformation,
		Title: "Inscrições abertas", PublishedAt: now.Add(-time.Hour),
	})
	_, err := database.Collection(config.AppConfig.CommunicationLinkCollection).InsertOne(ctx, models.CommunicationLink{
		ID: "link-1", CommunicationID: "with-links", Label: "Edital", URL: "https://example.gov.br/edital",
	})
	require.NoError(t, err)

	communication, err := service.GetCommunication(ctx, "with-links")
	require.NoError(t, err)
	require.Len(t, communication.Links, 1)
	assert.Equal(t, "Edital", communication.Links[0].Label)

	t.Run("Expired communication is invisible", func(t *testing.T) {
		expired := now.Add(-time.Minute)
		seedCommunication(t, database, models.Communication{
			ID: "gone", MunicipalityID: "mun-1", Type: models.CommunicationNews,
			Title: "Expirado", PublishedAt: now.Add(-time.Hour), ExpiresAt: &expired,
		})
		_, err := service.GetCommunication(ctx, "gone")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
