// Package app assembles the prediction stack from configuration. Both the
// HTTP server and the CLI are built on it.
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/cache"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/client"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/http/handler"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/model"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	redisinfra "github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/cache"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/config"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/instrument"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/metrics"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/usecase"
)

// App holds the wired components
type App struct {
	ML         *client.MLClient
	Redis      *redis.Client
	TextModel  *model.TextSentimentModel
	ImageModel *model.ImageClassificationModel
	Predict    usecase.PredictUsecase
	Metrics    *metrics.Metrics
	Sink       *zap.Logger
}

// New builds the stack. Redis is optional: when it is enabled but
// unreachable the models run uncached.
func New(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) *App {
	sink := instrument.NewSink(instrument.Output(cfg.Instrument.Output))
	instrument.SetDefault(sink)

	m := metrics.New(reg)
	ml := client.NewMLClient(cfg.ML.BaseURL, cfg.ML.Timeout)
	loader := client.NewMLPipelineLoader(ml)

	opts := []model.Option{
		model.WithLogger(log),
		model.WithSink(sink),
		model.WithMetrics(m),
	}
	textModel := model.NewTextSentimentModel(loader,
		append(opts, model.WithModelName(cfg.Models.Text))...)
	imageModel := model.NewImageClassificationModel(loader,
		append(opts, model.WithModelName(cfg.Models.Image), model.WithTopK(cfg.Models.TopK))...)

	a := &App{
		ML:         ml,
		TextModel:  textModel,
		ImageModel: imageModel,
		Metrics:    m,
		Sink:       sink,
	}

	var text, image service.Model = textModel, imageModel
	if cfg.Redis.Enabled {
		rdb, err := redisinfra.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
		} else {
			log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
			a.Redis = rdb
			text = cache.NewCachedModel(textModel, rdb, cfg.Redis.TTL, log, m)
			image = cache.NewCachedModel(imageModel, rdb, cfg.Redis.TTL, log, m)
		}
	}

	a.Predict = usecase.NewPredictUsecase(text, image, usecase.Settings{
		RunText:  cfg.Models.RunText,
		RunImage: cfg.Models.RunImage,
	}, log, sink)

	return a
}

// Pipelines returns the adapters whose pipeline state is reported by /health
func (a *App) Pipelines() []handler.PipelineReporter {
	return []handler.PipelineReporter{a.TextModel, a.ImageModel}
}

// Close releases the redis connection, if any
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
