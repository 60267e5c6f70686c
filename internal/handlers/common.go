package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/services"
	"go.uber.org/zap"
)

// Service instances shared by the handlers, wired once at startup.
var (
	identityService      *services.IdentityService
	citizenService       *services.CitizenService
	addressService       *services.AddressService
	municipalityService  *services.MunicipalityService
	requestService       *services.RequestService
	communicationService *services.CommunicationService
)

// Init wires the handler package to its service dependencies.
func Init(
	identities *services.IdentityService,
	citizens *services.CitizenService,
	addresses *services.AddressService,
	municipalities *services.MunicipalityService,
	requests *services.RequestService,
	communications *services.CommunicationService,
) {
	identityService = identities
	citizenService = citizens
	addressService = addresses
	municipalityService = municipalities
	requestService = requests
	communicationService = communications
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// abortWithServiceError translates the typed service errors into HTTP
// responses. Unrecognized errors are logged and become a 500 without
// leaking backend detail.
func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrAddressNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Registro não encontrado"})
	case errors.Is(err, models.ErrMunicipalityNotFound):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Município não encontrado"})
	case errors.Is(err, models.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "E-mail já cadastrado"})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "E-mail ou senha inválidos"})
	case errors.Is(err, models.ErrCitizenInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Cadastro desativado"})
	case errors.Is(err, models.ErrImmutableField):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "E-mail e CPF não podem ser alterados"})
	case errors.Is(err, models.ErrInvalidCPF):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "CPF inválido"})
	case errors.Is(err, models.ErrInvalidBirthDate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Data de nascimento inválida, use DD/MM/AAAA"})
	case errors.Is(err, models.ErrInvalidRequestType),
		errors.Is(err, models.ErrInvalidRequestStatus),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, models.ErrInvalidCommunication):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		observability.Logger().Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
