package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/services"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
	"go.uber.org/zap"
)

// RequestResponse is a service request enriched with the display
// derivations the mobile client renders directly.
type RequestResponse struct {
	models.ServiceRequest
	StatusLabel   string `json:"status_label"`
	StatusColor   string `json:"status_color"`
	PriorityLabel string `json:"priority_label"`
	PriorityColor string `json:"priority_color"`
}

func toRequestResponse(request models.ServiceRequest) RequestResponse {
	return RequestResponse{
		ServiceRequest: request,
		StatusLabel:    services.StatusLabel(request.Status),
		StatusColor:    services.StatusColor(request.Status),
		PriorityLabel:  services.PriorityLabel(request.Priority),
		PriorityColor:  services.PriorityColor(request.Priority),
	}
}

func toRequestResponses(requests []models.ServiceRequest) []RequestResponse {
	responses := make([]RequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, toRequestResponse(request))
	}
	return responses
}

// ListServices godoc
// @Summary Lista o catálogo de serviços municipais
// @Tags requests
// @Produce json
// @Success 200 {array} models.Service
// @Router /v1/services [get]
func ListServices(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListServices")
	defer span.End()

	catalog, err := requestService.ListServices(ctx)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

// CreateRequest godoc
// @Summary Abre uma solicitação de serviço
// @Description Gera o protocolo e registra o primeiro evento da linha do tempo
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.RequestInput true "Solicitação"
// @Success 201 {object} RequestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/requests [post]
func CreateRequest(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "CreateRequest")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	var input models.RequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Solicitação inválida: " + err.Error()})
		return
	}

	request, err := requestService.CreateRequest(ctx, citizenID, input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	observability.Logger().Info("service request opened",
		zap.String("citizen_id", citizenID),
		zap.String("protocol", request.Protocol))
	span.SetAttributes(attribute.String("request.protocol", request.Protocol))

	c.JSON(http.StatusCreated, toRequestResponse(*request))
}

// ListRequests godoc
// @Summary Lista as solicitações do munícipe
// @Description Ordenadas da mais recente para a mais antiga
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} RequestResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/requests [get]
func ListRequests(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListRequests")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	requests, err := requestService.ListRequests(ctx, citizenID)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("requests.count", len(requests)))
	c.JSON(http.StatusOK, toRequestResponses(requests))
}

// GetRequest godoc
// @Summary Consulta uma solicitação com sua linha do tempo
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Success 200 {object} RequestResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/requests/{id} [get]
func GetRequest(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "GetRequest")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	request, err := requestService.GetRequest(ctx, citizenID, c.Param("id"))
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRequestResponse(*request))
}

// TrackRequest godoc
// @Summary Acompanha uma solicitação pelo protocolo
// @Description Consulta pública: não exige autenticação, apenas o protocolo
// @Tags requests
// @Produce json
// @Param protocol path string true "Protocolo"
// @Success 200 {object} RequestResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/requests/protocol/{protocol} [get]
func TrackRequest(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "TrackRequest")
	defer span.End()

	protocol := c.Param("protocol")
	span.SetAttributes(attribute.String("request.protocol", protocol))

	request, err := requestService.GetRequestByProtocol(ctx, protocol)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRequestResponse(*request))
}

// UpdateRequestStatus godoc
// @Summary Atualiza o status de uma solicitação
// @Description Registra o novo status como evento na linha do tempo
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Param body body models.StatusUpdateInput true "Novo status"
// @Success 200 {object} RequestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/requests/{id}/status [put]
func UpdateRequestStatus(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "UpdateRequestStatus")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	var input models.StatusUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Atualização inválida: " + err.Error()})
		return
	}

	// Ownership check before the update touches anything.
	if _, err := requestService.GetRequest(ctx, citizenID, c.Param("id")); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	request, err := requestService.UpdateStatus(ctx, c.Param("id"), input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRequestResponse(*request))
}
