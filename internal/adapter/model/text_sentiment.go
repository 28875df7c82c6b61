package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/instrument"
)

// DefaultTextModel is the sentiment model loaded when none is configured
const DefaultTextModel = "distilbert-base-uncased-finetuned-sst-2-english"

// TextSentimentModel classifies the sentiment of a text
type TextSentimentModel struct {
	*adapter
}

var _ service.Model = (*TextSentimentModel)(nil)

// NewTextSentimentModel creates a text adapter; the pipeline is loaded on
// the first Predict call.
func NewTextSentimentModel(loader service.PipelineLoader, opts ...Option) *TextSentimentModel {
	m := &TextSentimentModel{}
	m.adapter = newAdapter("TextSentimentModel", service.TaskTextClassification, loader,
		newOptions(DefaultTextModel, opts), m.classify)
	return m
}

// Predict runs sentiment classification on req.Text.
// Inputs longer than the model's maximum sequence length are truncated by
// the pipeline.
func (m *TextSentimentModel) Predict(ctx context.Context, req *entity.PredictionRequest) (entity.Prediction, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, &service.InvalidInputError{Field: "text", Reason: "no text provided"}
	}
	return m.predict(ctx, req.Text, instrument.Kw("truncation", true))
}

func (m *TextSentimentModel) classify(ctx context.Context, args ...any) (entity.Prediction, error) {
	text, _ := instrument.Arg[string](args, 0)
	truncation, _ := instrument.Option[bool](args, "truncation")

	return m.run(ctx, &service.PipelineInput{
		Text:       text,
		Truncation: truncation,
	})
}

// Describe returns a short description of the model and expected inputs
func (m *TextSentimentModel) Describe() string {
	return fmt.Sprintf("Model name: %s\n"+
		"Task: Text classification (sentiment)\n"+
		"Input: a short text string.\n"+
		"Output: list of label + score pairs from the inference pipeline.", m.model)
}
