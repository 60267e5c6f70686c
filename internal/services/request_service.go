package services

import (
	"context"
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

// Status and priority display tables. An unmapped value comes back
// unchanged so stale clients keep rendering something.
var statusLabels = map[models.RequestStatus]string{
	models.StatusPending:    "Pendente",
	models.StatusInProgress: "Em Análise",
	models.StatusCompleted:  "Concluída",
	models.StatusCancelled:  "Cancelada",
}

var statusColors = map[models.RequestStatus]string{
	models.StatusPending:    "#F59E0B",
	models.StatusInProgress: "#3B82F6",
	models.StatusCompleted:  "#10B981",
	models.StatusCancelled:  "#EF4444",
}

var priorityLabels = map[models.RequestPriority]string{
	models.PriorityBaixa:   "Baixa",
	models.PriorityMedia:   "Média",
	models.PriorityAlta:    "Alta",
	models.PriorityUrgente: "Urgente",
}

var priorityColors = map[models.RequestPriority]string{
	models.PriorityBaixa:   "#10B981",
	models.PriorityMedia:   "#F59E0B",
	models.PriorityAlta:    "#F97316",
	models.PriorityUrgente: "#EF4444",
}

// StatusLabel returns the display label for a request status.
func StatusLabel(status models.RequestStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// StatusColor returns the display color for a request status.
func StatusColor(status models.RequestStatus) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return string(status)
}

// PriorityLabel returns the display label for a request priority.
func PriorityLabel(priority models.RequestPriority) string {
	if label, ok := priorityLabels[priority]; ok {
		return label
	}
	return string(priority)
}

// PriorityColor returns the display color for a request priority.
func PriorityColor(priority models.RequestPriority) string {
	if color, ok := priorityColors[priority]; ok {
		return color
	}
	return string(priority)
}

// RequestService owns the service-request catalog: opening requests,
// their append-only status timelines, and the display derivations.
type RequestService struct {
	database *mongo.Database
	logger   *zap.Logger
}

// NewRequestService creates a new RequestService instance
func NewRequestService(database *mongo.Database, logger *zap.Logger) *RequestService {
	return &RequestService{
		database: database,
		logger:   logger,
	}
}

// ListServices returns the active catalog of municipal services.
func (s *RequestService) ListServices(ctx context.Context) ([]models.Service, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.ServiceCollection, "active")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.ServiceCollection)
	cursor, err := collection.Find(ctx,
		bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []models.Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

// CreateRequest opens a service request with a generated protocol and a
// single opening timeline entry.
func (s *RequestService) CreateRequest(ctx context.Context, citizenID string, input models.RequestInput) (*models.ServiceRequest, error) {
	ctx, span := utils.TraceBusinessLogic(ctx, "create_service_request")
	defer span.End()

	if !input.RequestType.IsValid() {
		return nil, models.ErrInvalidRequestType
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedia
	}
	if !priority.IsValid() {
		return nil, models.ErrInvalidPriority
	}

	var service models.Service
	err := s.database.Collection(config.AppConfig.ServiceCollection).
		FindOne(ctx, bson.M{"_id": input.ServiceID, "active": true}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up service: %w", err)
	}

	protocol, err := s.nextProtocol(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.ServiceRequest{
		ID:          utils.NewID(),
		CitizenID:   citizenID,
		ServiceID:   service.ID,
		ServiceName: service.Name,
		RequestType: input.RequestType,
		Status:      models.StatusPending,
		Protocol:    protocol,
		Priority:    priority,
		Address:     input.Address,
		Description: input.Description,
		Timeline: []models.TimelineEvent{{
			Date:        now,
			Status:      StatusLabel(models.StatusPending),
			Description: "Solicitação registrada",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	collection := s.database.Collection(config.AppConfig.ServiceRequestCollection)
	if _, err := collection.InsertOne(ctx, request); err != nil {
		observability.DatabaseOperations.WithLabelValues("insert", "error").Inc()
		return nil, fmt.Errorf("failed to create service request: %w", err)
	}

	observability.DatabaseOperations.WithLabelValues("insert", "success").Inc()
	s.logger.Info("service request created",
		zap.String("request_id", request.ID),
		zap.String("protocol", protocol),
		zap.String("citizen_id", citizenID))

	markTerminal(request)
	return request, nil
}

// GetRequest returns one request owned by the citizen.
func (s *RequestService) GetRequest(ctx context.Context, citizenID, requestID string) (*models.ServiceRequest, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.ServiceRequestCollection, "_id")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.ServiceRequestCollection)
	var request models.ServiceRequest
	err := collection.FindOne(ctx, bson.M{"_id": requestID, "citizen_id": citizenID}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service request: %w", err)
	}

	markTerminal(&request)
	return &request, nil
}

// GetRequestByProtocol returns one request by its human-facing protocol.
func (s *RequestService) GetRequestByProtocol(ctx context.Context, protocol string) (*models.ServiceRequest, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.ServiceRequestCollection, "protocol")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.ServiceRequestCollection)
	var request models.ServiceRequest
	err := collection.FindOne(ctx, bson.M{"protocol": protocol}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service request: %w", err)
	}

	markTerminal(&request)
	return &request, nil
}

// ListRequests returns a citizen's requests, newest first. The service
// display name is joined from the services catalog when the request
// predates the denormalized field.
func (s *RequestService) ListRequests(ctx context.Context, citizenID string) ([]models.ServiceRequest, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.ServiceRequestCollection, "citizen_id")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.ServiceRequestCollection)
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"citizen_id": citizenID}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         config.AppConfig.ServiceCollection,
			"localField":   "service_id",
			"foreignField": "_id",
			"as":           "service_doc",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"service_name": bson.M{"$ifNull": bson.A{
				"$service_name",
				bson.M{"$first": "$service_doc.name"},
			}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{"service_doc": 0}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list service requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.ServiceRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode service requests: %w", err)
	}

	for i := range requests {
		markTerminal(&requests[i])
	}
	return requests, nil
}

// UpdateStatus moves a request to a new status and appends the matching
// timeline event in the same write, so the timeline never disagrees
// with the status field.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID string, input models.StatusUpdateInput) (*models.ServiceRequest, error) {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.ServiceRequestCollection, "_id", false)
	defer span.End()

	if !input.Status.IsValid() {
		return nil, models.ErrInvalidRequestStatus
	}

	now := time.Now().UTC()
	event := models.TimelineEvent{
		Date:        now,
		Status:      StatusLabel(input.Status),
		Description: input.Description,
		Responsible: input.Responsible,
		Notes:       input.Notes,
	}

	collection := s.database.Collection(config.AppConfig.ServiceRequestCollection)
	result := collection.FindOneAndUpdate(ctx,
		bson.M{"_id": requestID},
		bson.M{
			"$set":  bson.M{"status": input.Status, "updated_at": now},
			"$push": bson.M{"timeline": event},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var request models.ServiceRequest
	if err := result.Decode(&request); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	s.logger.Info("service request status updated",
		zap.String("request_id", requestID),
		zap.String("status", string(input.Status)))

	markTerminal(&request)
	return &request, nil
}

// nextProtocol draws the next value from the yearly counter and formats
// the human-facing protocol, e.g. "2026-0000431".
func (s *RequestService) nextProtocol(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	counterID := fmt.Sprintf("service_requests_%d", year)

	collection := s.database.Collection(config.AppConfig.CounterCollection)
	result := collection.FindOneAndUpdate(ctx,
		bson.M{"_id": counterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := result.Decode(&counter); err != nil {
		return "", fmt.Errorf("failed to allocate protocol: %w", err)
	}

	return fmt.Sprintf("%d-%07d", year, counter.Seq), nil
}

// markTerminal flags the last timeline entry; the client draws a
// connector between consecutive entries except after this one.
func markTerminal(request *models.ServiceRequest) {
	for i := range request.Timeline {
		request.Timeline[i].Terminal = i == len(request.Timeline)-1
	}
}
