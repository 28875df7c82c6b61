package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/client"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/lazy"
)

// MLService is the part of the ML client the health checks use
type MLService interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
	Ready(ctx context.Context) error
}

// PipelineReporter exposes a model adapter's lazy pipeline state
type PipelineReporter interface {
	ModelName() string
	PipelineState() lazy.State
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	ml        MLService
	redis     *redis.Client
	pipelines []PipelineReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(ml MLService, redis *redis.Client, pipelines ...PipelineReporter) *HealthHandler {
	return &HealthHandler{
		ml:        ml,
		redis:     redis,
		pipelines: pipelines,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Pipelines  map[string]string `json:"pipelines,omitempty"`
}

// Health handles GET /health.
// Pipelines that have not been loaded yet do not make the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	healthy := true

	// Check ML service
	if h.ml != nil {
		if resp, err := h.ml.Health(ctx); err != nil {
			components["ml_service"] = "error: " + err.Error()
			healthy = false
		} else {
			components["ml_service"] = resp.Status
		}
	} else {
		components["ml_service"] = "not configured"
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "error: " + err.Error()
			healthy = false
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "not configured"
	}

	var pipelines map[string]string
	if len(h.pipelines) > 0 {
		pipelines = make(map[string]string, len(h.pipelines))
		for _, p := range h.pipelines {
			pipelines[p.ModelName()] = p.PipelineState().String()
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthStatus{
		Status:     status,
		Components: components,
		Pipelines:  pipelines,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.ml != nil {
		if err := h.ml.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "ml service unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
