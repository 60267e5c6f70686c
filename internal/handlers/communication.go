package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/middleware"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/services"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// feedMunicipalityID resolves which municipality's feed to serve: the
// municipality_id query parameter when given, otherwise the municipality
// of the citizen's primary address.
func feedMunicipalityID(c *gin.Context, citizenID string) (string, bool) {
	if id := c.Query("municipality_id"); id != "" {
		return id, true
	}
	if citizenID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Informe municipality_id"})
		return "", false
	}
	addresses, err := addressService.ListAddresses(c.Request.Context(), citizenID)
	if err != nil || len(addresses) == 0 {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Munícipe sem endereço cadastrado"})
		return "", false
	}
	return addresses[0].MunicipalityID, true
}

// ListCommunications godoc
// @Summary Lista o mural de comunicados do município
// @Description Comunicados publicados e não expirados, destaques primeiro; sessões autenticadas recebem o indicador de leitura
// @Tags communications
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "ID do município (padrão: município do endereço principal)"
// @Param type query string false "Filtro por tipo (news, information, alert, event)"
// @Param featured query bool false "Apenas destaques"
// @Success 200 {array} models.Communication
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/communications [get]
func ListCommunications(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListCommunications")
	defer span.End()

	citizenID := ""
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		citizenID = claims.CitizenID
	}

	municipalityID, ok := feedMunicipalityID(c, citizenID)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("municipality.id", municipalityID))

	filters := services.FeedFilters{
		Type: models.CommunicationType(c.Query("type")),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Parâmetro featured inválido"})
			return
		}
		filters.Featured = &featured
	}

	feed, err := communicationService.ListFeed(ctx, municipalityID, citizenID, filters)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("communications.count", len(feed)))
	c.JSON(http.StatusOK, feed)
}

// GetCommunication godoc
// @Summary Consulta um comunicado com seus links
// @Tags communications
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do comunicado"
// @Success 200 {object} models.Communication
// @Failure 404 {object} ErrorResponse
// @Router /v1/communications/{id} [get]
func GetCommunication(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "GetCommunication")
	defer span.End()

	communication, err := communicationService.GetCommunication(ctx, c.Param("id"))
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, communication)
}

// MarkCommunicationRead godoc
// @Summary Marca um comunicado como lido
// @Description Idempotente: marcar duas vezes não gera erro nem duplica o registro
// @Tags communications
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do comunicado"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/communications/{id}/read [post]
func MarkCommunicationRead(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "MarkCommunicationRead")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	if err := communicationService.MarkRead(ctx, c.Param("id"), citizenID); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnreadCommunications godoc
// @Summary Conta os comunicados não lidos
// @Tags communications
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "ID do município (padrão: município do endereço principal)"
// @Success 200 {object} map[string]int64
// @Failure 401 {object} ErrorResponse
// @Router /v1/communications/unread [get]
func UnreadCommunications(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "UnreadCommunications")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	municipalityID, valid := feedMunicipalityID(c, citizenID)
	if !valid {
		return
	}

	count, err := communicationService.UnreadCount(ctx, municipalityID, citizenID)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}
