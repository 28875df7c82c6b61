package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/http/handler"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/http/middleware"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/usecase"
)

// Dependencies are the components the routes are served from
type Dependencies struct {
	Predict   usecase.PredictUsecase
	ML        handler.MLService
	Redis     *redis.Client
	Pipelines []handler.PipelineReporter
	// ImageRoot confines image paths sent by clients; empty accepts uploads only
	ImageRoot string
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Setup creates and configures the Gin router
func Setup(deps Dependencies, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handler.NewHealthHandler(deps.ML, deps.Redis, deps.Pipelines...)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Initialize handlers
	predictHandler := handler.NewPredictHandler(deps.Predict, deps.ImageRoot)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/models", predictHandler.ListModels)
		v1.POST("/run", predictHandler.Run)

		predict := v1.Group("/predict")
		{
			predict.POST("/text", predictHandler.PredictText)
			predict.POST("/image", predictHandler.PredictImage)
		}
	}

	return router
}
