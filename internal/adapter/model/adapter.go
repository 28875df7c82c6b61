// Package model holds the inference adapters. Each adapter owns one lazily
// loaded pipeline and exposes the service.Model capability over it.
package model

import (
	"context"

	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/instrument"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/lazy"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/metrics"
)

type options struct {
	modelName string
	log       *zap.Logger
	sink      *zap.Logger
	metrics   *metrics.Metrics
	topK      int
}

// Option configures an adapter
type Option func(*options)

// WithModelName overrides the pretrained resource identifier
func WithModelName(name string) Option {
	return func(o *options) { o.modelName = name }
}

// WithLogger sets the logger used for pipeline lifecycle messages
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSink sets the sink for timing and call lines (process default if unset)
func WithSink(sink *zap.Logger) Option {
	return func(o *options) { o.sink = sink }
}

// WithMetrics records operation durations and pipeline loads
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTopK bounds the number of results returned by the image adapter
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

func newOptions(defaultModel string, opts []Option) *options {
	o := &options{
		modelName: defaultModel,
		log:       zap.NewNop(),
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// adapter is the part shared by the text and image models: the pipeline
// holder and the instrumented predict operation.
type adapter struct {
	name     string
	task     string
	model    string
	pipeline *lazy.Holder[service.Pipeline]
	predict  instrument.Func[entity.Prediction]
}

func newAdapter(name, task string, loader service.PipelineLoader, o *options, run instrument.Func[entity.Prediction]) *adapter {
	log := o.log.Named(name)
	a := &adapter{
		name:  name,
		task:  task,
		model: o.modelName,
	}

	a.pipeline = lazy.New(o.modelName, func(ctx context.Context) (service.Pipeline, error) {
		p, err := loader.Load(ctx, task, o.modelName)
		o.metrics.ObservePipelineLoad(o.modelName, err)
		if err != nil {
			log.Error("Failed to load pipeline", zap.String("model", o.modelName), zap.Error(err))
			return nil, &service.ResourceInitError{Model: o.modelName, Cause: err}
		}
		log.Info("Pipeline loaded", zap.String("model", o.modelName))
		return p, nil
	}, log)

	op := name + ".Predict"
	a.predict = instrument.Measured(o.metrics.Durations(), op,
		instrument.Timed(o.sink, op,
			instrument.Logged(o.sink, name+".predict", op, run)))

	return a
}

// ModelName returns the pretrained resource identifier
func (a *adapter) ModelName() string {
	return a.model
}

// Task returns the pipeline task name
func (a *adapter) Task() string {
	return a.task
}

// PipelineState reports whether the pipeline has been loaded
func (a *adapter) PipelineState() lazy.State {
	return a.pipeline.State()
}

// EnsureReady loads the pipeline if it is not loaded yet
func (a *adapter) EnsureReady(ctx context.Context) error {
	return a.pipeline.EnsureReady(ctx)
}

func (a *adapter) run(ctx context.Context, input *service.PipelineInput) (entity.Prediction, error) {
	p, err := a.pipeline.Get(ctx)
	if err != nil {
		return nil, err
	}

	results, err := p.Run(ctx, input)
	if err != nil {
		return nil, &service.InferenceError{Model: a.model, Cause: err}
	}
	return results, nil
}
