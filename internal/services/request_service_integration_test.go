package services

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/models"
)

// setupRequestServiceTest initializes MongoDB for testing
func setupRequestServiceTest(t *testing.T) (*RequestService, *mongo.Database, func()) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping request service tests: MONGODB_URI not set")
	}

	logging.InitLogger()

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}
	config.AppConfig.ServiceCollection = "test_services"
	config.AppConfig.ServiceRequestCollection = "test_service_requests"
	config.AppConfig.CounterCollection = "test_counters"

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "Failed to ping MongoDB")

	database := client.Database("municipe_test")
	config.MongoDB = database

	service := NewRequestService(database, zap.NewNop())

	cleanup := func() {
		database.Collection(config.AppConfig.ServiceCollection).Drop(ctx)
		database.Collection(config.AppConfig.ServiceRequestCollection).Drop(ctx)
		database.Collection(config.AppConfig.CounterCollection).Drop(ctx)
		client.Disconnect(ctx)
	}

	return service, database, cleanup
}

func seedService(t *testing.T, database *mongo.Database, id, name string) {
	_, err := database.Collection(config.AppConfig.ServiceCollection).InsertOne(context.Background(), models.Service{
		ID:       id,
		Name:     name,
		Category: "documentos",
		Active:   true,
	})
	require.NoError(t, err, "Failed to seed service")
}

func TestCreateRequest(t *testing.T) {
	service, database, cleanup := setupRequestServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedService(t, database, "svc-iptu", "Segunda via de IPTU")

	request, err := service.CreateRequest(ctx, "citizen-1", models.RequestInput{
		ServiceID:   "svc-iptu",
		RequestType: models.RequestTypeDocumento,
		Description: "Preciso da segunda via",
	})
	require.NoError(t, err)

	protocolFormat := regexp.MustCompile(`^\d{4}-\d{7}$`)
	assert.Regexp(t, protocolFormat, request.Protocol)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, models.PriorityMedia, request.Priority, "priority defaults to média")
	assert.Equal(t, "Segunda via de IPTU", request.ServiceName)

	// Opening timeline entry, already terminal.
	require.Len(t, request.Timeline, 1)
	assert.Equal(t, "Pendente", request.Timeline[0].Status)
	assert.True(t, request.Timeline[0].Terminal)

	t.Run("Protocols are sequential within the year", func(t *testing.T) {
		second, err := service.CreateRequest(ctx, "citizen-1", models.RequestInput{
			ServiceID:   "svc-iptu",
			RequestType: models.RequestTypeDocumento,
		})
		require.NoError(t, err)
		assert.NotEqual(t, request.Protocol, second.Protocol)

		year := time.Now().UTC().Year()
		assert.Equal(t, fmt.Sprintf("%d-%07d", year, 1), request.Protocol)
		assert.Equal(t, fmt.Sprintf("%d-%07d", year, 2), second.Protocol)
	})

	t.Run("Unknown service", func(t *testing.T) {
		_, err := service.CreateRequest(ctx, "citizen-1", models.RequestInput{
			ServiceID:   "svc-missing",
			RequestType: models.RequestTypeDocumento,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Invalid type and priority", func(t *testing.T) {
		_, err := service.CreateRequest(ctx, "citizen-1", models.RequestInput{
			ServiceID:   "svc-iptu",
			RequestType: "pedido",
		})
		assert.ErrorIs(t, err, models.ErrInvalidRequestType)

		_, err = service.CreateRequest(ctx, "citizen-1", models.RequestInput{
			ServiceID:   "svc-iptu",
			RequestType: models.RequestTypeDocumento,
			Priority:    "critical",
		})
		assert.ErrorIs(t, err, models.ErrInvalidPriority)
	})
}

func TestUpdateStatus_AppendsTimeline(t *testing.T) {
	service, database, cleanup := setupRequestServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedService(t, database, "svc-poda", "Poda de árvore")

	request, err := service.CreateRequest(ctx, "citizen-2", models.RequestInput{
		ServiceID:   "svc-poda",
		RequestType: models.RequestTypeServico,
	})
	require.NoError(t, err)

	responsible := "Secretaria de Meio Ambiente"
	updated, err := service.UpdateStatus(ctx, request.ID, models.StatusUpdateInput{
		Status:      models.StatusInProgress,
		Description: "Equipe designada",
		Responsible: &responsible,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.Len(t, updated.Timeline, 2, "the opening entry is never rewritten")
	assert.Equal(t, "Pendente", updated.Timeline[0].Status)
	assert.Equal(t, "Em Análise", updated.Timeline[1].Status)
	assert.Equal(t, &responsible, updated.Timeline[1].Responsible)
	assert.False(t, updated.Timeline[0].Terminal)
	assert.True(t, updated.Timeline[1].Terminal)

	t.Run("Invalid status", func(t *testing.T) {
		_, err := service.UpdateStatus(ctx, request.ID, models.StatusUpdateInput{Status: "done"})
		assert.ErrorIs(t, err, models.ErrInvalidRequestStatus)
	})

	t.Run("Unknown request", func(t *testing.T) {
		_, err := service.UpdateStatus(ctx, "missing", models.StatusUpdateInput{Status: models.StatusCompleted})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestListRequests_JoinsServiceName(t *testing.T) {
	service, database, cleanup := setupRequestServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedService(t, database, "svc-luz", "Iluminação pública")

	created, err := service.CreateRequest(ctx, "citizen-3", models.RequestInput{
		ServiceID:   "svc-luz",
		RequestType: models.RequestTypeServico,
	})
	require.NoError(t, err)

	// A legacy row without the denormalized name falls back to the join.
	legacy := models.ServiceRequest{
		ID:          "legacy-1",
		CitizenID:   "citizen-3",
		ServiceID:   "svc-luz",
		RequestType: models.RequestTypeServico,
		Status:      models.StatusPending,
		Protocol:    "2020-0000001",
		Priority:    models.PriorityBaixa,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	_, err = database.Collection(config.AppConfig.ServiceRequestCollection).InsertOne(ctx, legacy)
	require.NoError(t, err)

	requests, err := service.ListRequests(ctx, "citizen-3")
	require.NoError(t, err)
	require.Len(t, requests, 2)

	// Newest first.
	assert.Equal(t, created.ID, requests[0].ID)
	assert.Equal(t, "legacy-1", requests[1].ID)
	assert.Equal(t, "Iluminação pública", requests[0].ServiceName)
	assert.Equal(t, "Iluminação pública", requests[1].ServiceName)
}

func TestGetRequestByProtocol(t *testing.T) {
	service, database, cleanup := setupRequestServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	seedService(t, database, "svc-iptu", "Segunda via de IPTU")

	created, err := service.CreateRequest(ctx, "citizen-4", models.RequestInput{
		ServiceID:   "svc-iptu",
		RequestType: models.RequestTypeDocumento,
	})
	require.NoError(t, err)

	found, err := service.GetRequestByProtocol(ctx, created.Protocol)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.GetRequestByProtocol(ctx, "1999-0000001")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Ownership applies to the id lookup, not the protocol lookup.
	_, err = service.GetRequest(ctx, "someone-else", created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
