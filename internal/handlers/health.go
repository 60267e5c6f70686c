package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"go.uber.org/zap"
)

// HealthCheck godoc
// @Summary Verifica a saúde da aplicação
// @Description Verifica a conectividade com MongoDB e Redis
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	ctx, span := otel.Tracer("").Start(c.Request.Context(), "HealthCheck")
	defer span.End()

	logger := observability.Logger()

	// Cache the result briefly so load-balancer probes don't hammer the
	// backends. Failures are cached for a shorter window.
	cacheKey := "health:status"
	if cached := config.Redis.Get(ctx, cacheKey).Val(); cached != "" {
		var response HealthResponse
		if err := json.Unmarshal([]byte(cached), &response); err == nil {
			span.SetAttributes(attribute.Bool("health.cache_hit", true))
			status := http.StatusOK
			if response.Status != "healthy" {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, response)
			return
		}
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	mongoCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := config.MongoDB.Client().Ping(mongoCtx, readpref.Primary()); err != nil {
		logger.Error("health check: MongoDB unreachable", zap.Error(err))
		response.Status = "unhealthy"
		response.Services["mongodb"] = "unavailable"
	} else {
		response.Services["mongodb"] = "ok"
	}

	if err := config.Redis.Ping(ctx).Err(); err != nil {
		logger.Error("health check: Redis unreachable", zap.Error(err))
		response.Status = "unhealthy"
		response.Services["redis"] = "unavailable"
	} else {
		response.Services["redis"] = "ok"
	}

	ttl := 5 * time.Second
	status := http.StatusOK
	if response.Status != "healthy" {
		ttl = time.Second
		status = http.StatusServiceUnavailable
	}
	if payload, err := json.Marshal(response); err == nil {
		config.Redis.Set(ctx, cacheKey, payload, ttl)
	}

	span.SetAttributes(attribute.String("health.status", response.Status))
	c.JSON(status, response)
}
