package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// ListStates godoc
// @Summary Lista os estados atendidos
// @Description Estados com ao menos um município ativo, em ordem alfabética
// @Tags municipalities
// @Produce json
// @Success 200 {array} string
// @Router /v1/municipalities/states [get]
func ListStates(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListStates")
	defer span.End()

	states, err := municipalityService.ListStates(ctx)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("states.count", len(states)))
	c.JSON(http.StatusOK, states)
}

// ListCities godoc
// @Summary Lista os municípios ativos de um estado
// @Tags municipalities
// @Produce json
// @Param state path string true "Sigla do estado"
// @Success 200 {array} models.Municipality
// @Router /v1/municipalities/states/{state}/cities [get]
func ListCities(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "ListCities")
	defer span.End()

	state := c.Param("state")
	span.SetAttributes(attribute.String("municipality.state", state))

	cities, err := municipalityService.ListCities(ctx, state)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cities)
}
