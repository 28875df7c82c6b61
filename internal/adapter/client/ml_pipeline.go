package client

import (
	"context"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
)

// MLPipelineLoader adapts MLClient to the PipelineLoader interface
type MLPipelineLoader struct {
	client *MLClient
}

// NewMLPipelineLoader creates a new MLPipelineLoader
func NewMLPipelineLoader(client *MLClient) *MLPipelineLoader {
	return &MLPipelineLoader{client: client}
}

// Load asks the ML service to build a pipeline and returns a handle to it
func (l *MLPipelineLoader) Load(ctx context.Context, task, model string) (service.Pipeline, error) {
	resp, err := l.client.LoadPipeline(ctx, task, model)
	if err != nil {
		return nil, err
	}

	return &MLPipeline{
		client: l.client,
		id:     resp.PipelineID,
		task:   task,
		model:  model,
	}, nil
}

// MLPipeline is a pipeline living in the ML service
type MLPipeline struct {
	client *MLClient
	id     string
	task   string
	model  string
}

// ID returns the pipeline id assigned by the ML service
func (p *MLPipeline) ID() string {
	return p.id
}

// Run sends one input to the pipeline
func (p *MLPipeline) Run(ctx context.Context, input *service.PipelineInput) (entity.Prediction, error) {
	resp, err := p.client.Predict(ctx, p.id, &PredictRequest{
		Text:       input.Text,
		Image:      input.Image,
		Truncation: input.Truncation,
		TopK:       input.TopK,
		RequestID:  service.RequestIDFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}

	results := make(entity.Prediction, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = entity.LabelScore{
			Label: r.Label,
			Score: r.Score,
		}
	}

	return results, nil
}
