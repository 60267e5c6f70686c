package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// ListAddresses godoc
// @Summary Lista os endereços do munícipe
// @Description Retorna os endereços ativos, com o principal em primeiro lugar
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CitizenAddress
// @Failure 401 {object} ErrorResponse
// @Router /v1/citizens/me/addresses [get]
func ListAddresses(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListAddresses")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	addresses, err := addressService.ListAddresses(ctx, citizenID)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("addresses.count", len(addresses)))
	c.JSON(http.StatusOK, addresses)
}

// AddAddress godoc
// @Summary Adiciona um endereço
// @Description O município do endereço precisa existir no cadastro de municípios atendidos
// @Tags addresses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.AddressInput true "Endereço"
// @Success 201 {object} models.CitizenAddress
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/citizens/me/addresses [post]
func AddAddress(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "AddAddress")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	var input models.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Endereço inválido: " + err.Error()})
		return
	}

	address, err := addressService.AddAddress(ctx, citizenID, input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, address)
}

// UpdateAddress godoc
// @Summary Atualiza um endereço
// @Tags addresses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do endereço"
// @Param body body models.AddressInput true "Endereço"
// @Success 200 {object} models.CitizenAddress
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/citizens/me/addresses/{id} [put]
func UpdateAddress(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "UpdateAddress")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	var input models.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Endereço inválido: " + err.Error()})
		return
	}

	address, err := addressService.UpdateAddress(ctx, citizenID, c.Param("id"), input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, address)
}

// DeleteAddress godoc
// @Summary Remove um endereço
// @Description Remoção lógica: o endereço deixa de aparecer nas listagens
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do endereço"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/citizens/me/addresses/{id} [delete]
func DeleteAddress(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "DeleteAddress")
	defer span.End()

	citizenID, ok := sessionCitizenID(c)
	if !ok {
		return
	}

	if err := addressService.DeleteAddress(ctx, citizenID, c.Param("id")); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
