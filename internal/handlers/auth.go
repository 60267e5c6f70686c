package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
	"go.uber.org/zap"
)

// Register godoc
// @Summary Cadastra um novo munícipe
// @Description Cria a identidade de acesso, o munícipe e seu endereço principal em uma única operação
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegistrationInput true "Dados de cadastro"
// @Success 201 {object} services.RegistrationResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/auth/register [post]
func Register(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "Register")
	defer span.End()

	_, validationSpan := utils.TraceInputValidation(ctx, "json", "registration_input")
	var input models.RegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RecordErrorInSpan(validationSpan, err, nil)
		validationSpan.End()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Dados de cadastro inválidos: " + err.Error()})
		return
	}
	validationSpan.End()

	span.SetAttributes(attribute.String("citizen.email", observability.MaskEmail(input.Email)))

	result, err := citizenService.RegisterCitizen(ctx, input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	observability.Logger().Info("citizen registered",
		zap.String("citizen_id", result.Citizen.ID),
		zap.String("email", observability.MaskEmail(result.Citizen.Email)))

	c.JSON(http.StatusCreated, result)
}

// Login godoc
// @Summary Autentica um munícipe
// @Description Valida as credenciais e emite um token de sessão
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginInput true "Credenciais"
// @Success 200 {object} models.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/login [post]
func Login(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "Login")
	defer span.End()

	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Credenciais inválidas: " + err.Error()})
		return
	}

	session, err := identityService.Login(ctx, input)
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
