package service

import (
	"context"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
)

// Task names understood by the inference service
const (
	TaskTextClassification  = "text-classification"
	TaskImageClassification = "image-classification"
)

// Model defines the capability shared by every inference adapter
type Model interface {
	// Predict runs inference on a single request
	Predict(ctx context.Context, req *entity.PredictionRequest) (entity.Prediction, error)

	// Describe returns a short description of the model and its inputs.
	// It never loads the underlying pipeline.
	Describe() string

	// ModelName returns the pretrained resource identifier
	ModelName() string
}

// PipelineInput is the payload handed to a loaded pipeline
type PipelineInput struct {
	Text       string
	Image      []byte
	Truncation bool
	TopK       int
}

// Pipeline is a loaded, ready-to-use inference pipeline
type Pipeline interface {
	Run(ctx context.Context, input *PipelineInput) (entity.Prediction, error)
}

// PipelineLoader constructs pipelines bound to a named pretrained model
type PipelineLoader interface {
	Load(ctx context.Context, task, model string) (Pipeline, error)
}

// PipelineLoaderFunc adapts a function to PipelineLoader
type PipelineLoaderFunc func(ctx context.Context, task, model string) (Pipeline, error)

// Load calls f(ctx, task, model)
func (f PipelineLoaderFunc) Load(ctx context.Context, task, model string) (Pipeline, error) {
	return f(ctx, task, model)
}
