package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/middleware"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
	"go.uber.org/zap"
)

// sessionCitizenID extracts the authenticated citizen from the request
// context. Sessions without a linked citizen get a 401.
func sessionCitizenID(c *gin.Context) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok || claims.CitizenID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Sessão inválida"})
		return "", false
	}
	return claims.CitizenID, true
}

// GetProfile godoc
// @Summary Consulta os dados do munícipe autenticado
// @Tags citizens
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Citizen
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/citizens/me [get]
func GetProfile(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "GetProfile")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("citizen.id", citizenID))

	citizen, err := citizenService.GetCitizenByID(ctx, citizenID)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, citizen)
}

// UpdateProfile godoc
// @Summary Atualiza nome e telefone do munícipe
// @Description CPF, e-mail e data de nascimento são imutáveis após o cadastro
// @Tags citizens
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.CitizenUpdate true "Campos editáveis"
// @Success 200 {object} models.Citizen
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/citizens/me [put]
func UpdateProfile(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "UpdateProfile")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	var update models.CitizenUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Dados inválidos: " + err.Error()})
		return
	}
	if update.Name == nil && update.Phone == nil && update.Email == nil && update.CPF == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Nenhum campo editável informado"})
		return
	}

	citizen, err := citizenService.UpdateCitizen(ctx, citizenID, update)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, citizen)
}

// DeactivateProfile godoc
// @Summary Desativa a conta do munícipe
// @Description Desativação lógica: os dados são preservados mas deixam de ser visíveis
// @Tags citizens
// @Produce json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/citizens/me [delete]
func DeactivateProfile(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "DeactivateProfile")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	if err := citizenService.DisableCitizen(ctx, citizenID); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	observability.Logger().Info("citizen deactivated", zap.String("citizen_id", citizenID))
	c.Status(http.StatusNoContent)
}
