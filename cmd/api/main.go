package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/handlers"
	"github.com/prefeitura-digital/app-municipe/internal/logging"
	"github.com/prefeitura-digital/app-municipe/internal/middleware"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           App Munícipe API
// @version         1.0
// @description     API do aplicativo do munícipe: cadastro de cidadãos e endereços, catálogo de solicitações de serviço com protocolo e linha do tempo, e mural de comunicados municipais.

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name auth
// @tag.description Cadastro e autenticação

// @tag.name citizens
// @tag.description Operações sobre o munícipe autenticado

// @tag.name addresses
// @tag.description Endereços do munícipe

// @tag.name municipalities
// @tag.description Municípios atendidos

// @tag.name requests
// @tag.description Solicitações de serviço

// @tag.name communications
// @tag.description Comunicados municipais

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	// Wire services
	logger := logging.Logger
	compensator := services.NewCompensator(config.MongoDB, logger)
	identityService := services.NewIdentityService(config.MongoDB, logger)
	municipalityService := services.NewMunicipalityService(config.MongoDB, logger)
	citizenService := services.NewCitizenService(config.MongoDB, logger, identityService, municipalityService, compensator)
	addressService := services.NewAddressService(config.MongoDB, logger, municipalityService)
	requestService := services.NewRequestService(config.MongoDB, logger)
	communicationService := services.NewCommunicationService(config.MongoDB, logger)
	handlers.Init(identityService, citizenService, addressService, municipalityService, requestService, communicationService)

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Health check endpoint
		v1.GET("/health", handlers.HealthCheck)

		// Public routes
		v1.POST("/auth/register", handlers.Register)
		v1.POST("/auth/login", handlers.Login)
		v1.GET("/municipalities/states", handlers.ListStates)
		v1.GET("/municipalities/states/:state/cities", handlers.ListCities)
		v1.GET("/services", handlers.ListServices)
		v1.GET("/requests/protocol/:protocol", handlers.TrackRequest)

		// Authenticated routes
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.GET("/citizens/me", handlers.GetProfile)
			authed.PUT("/citizens/me", handlers.UpdateProfile)
			authed.DELETE("/citizens/me", handlers.DeactivateProfile)

			authed.GET("/citizens/me/addresses", handlers.ListAddresses)
			authed.POST("/citizens/me/addresses", handlers.AddAddress)
			authed.PUT("/citizens/me/addresses/:id", handlers.UpdateAddress)
			authed.DELETE("/citizens/me/addresses/:id", handlers.DeleteAddress)

			authed.POST("/requests", handlers.CreateRequest)
			authed.GET("/requests", handlers.ListRequests)
			authed.GET("/requests/:id", handlers.GetRequest)
			authed.PUT("/requests/:id/status", handlers.UpdateRequestStatus)

			authed.GET("/communications", handlers.ListCommunications)
			authed.GET("/communications/unread", handlers.UnreadCommunications)
			authed.GET("/communications/:id", handlers.GetCommunication)
			authed.POST("/communications/:id/read", handlers.MarkCommunicationRead)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}
