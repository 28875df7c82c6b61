package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/metrics"
)

const keyPrefix = "predict:"

// ranked is implemented by models whose output length is configurable;
// the limit becomes part of the cache key.
type ranked interface {
	TopK() int
}

// CachedModel serves repeated predictions from redis.
// Cache failures are logged and fall through to the wrapped model.
type CachedModel struct {
	next    service.Model
	redis   *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

var _ service.Model = (*CachedModel)(nil)

// NewCachedModel wraps next with a redis-backed result cache
func NewCachedModel(next service.Model, client *redis.Client, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *CachedModel {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedModel{
		next:    next,
		redis:   client,
		ttl:     ttl,
		log:     log,
		metrics: m,
	}
}

// Predict returns a cached prediction for the same model and input, or
// delegates and stores the result.
func (c *CachedModel) Predict(ctx context.Context, req *entity.PredictionRequest) (entity.Prediction, error) {
	key := c.key(req)
	if key == "" {
		return c.next.Predict(ctx, req)
	}

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out entity.Prediction
		if err := json.Unmarshal(cached, &out); err == nil {
			c.metrics.ObserveCacheLookup(c.next.ModelName(), true)
			return out, nil
		}
		c.log.Warn("Discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.ObserveCacheLookup(c.next.ModelName(), false)

	out, err := c.next.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("Cache store failed", zap.String("key", key), zap.Error(err))
		}
	}

	return out, nil
}

// Describe delegates to the wrapped model
func (c *CachedModel) Describe() string {
	return c.next.Describe()
}

// ModelName delegates to the wrapped model
func (c *CachedModel) ModelName() string {
	return c.next.ModelName()
}

// Unwrap returns the wrapped model
func (c *CachedModel) Unwrap() service.Model {
	return c.next
}

func (c *CachedModel) key(req *entity.PredictionRequest) string {
	if req == nil {
		return ""
	}
	digest := req.Digest()
	if digest == "" {
		return ""
	}
	key := keyPrefix + c.next.ModelName() + ":" + string(req.Kind())
	if r, ok := c.next.(ranked); ok {
		key += ":k" + strconv.Itoa(r.TopK())
	}
	return key + ":" + digest
}
