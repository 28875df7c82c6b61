package model

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/instrument"
)

const (
	// DefaultImageModel is the image model loaded when none is configured
	DefaultImageModel = "google/vit-base-patch16-224"

	// DefaultTopK is the maximum number of labels returned for an image
	DefaultTopK = 5
)

// ImageClassificationModel labels the content of an image
type ImageClassificationModel struct {
	*adapter
	topK int
}

var _ service.Model = (*ImageClassificationModel)(nil)

// NewImageClassificationModel creates an image adapter; the pipeline is
// loaded on the first Predict call.
func NewImageClassificationModel(loader service.PipelineLoader, opts ...Option) *ImageClassificationModel {
	o := newOptions(DefaultImageModel, opts)
	m := &ImageClassificationModel{topK: o.topK}
	m.adapter = newAdapter("ImageClassificationModel", service.TaskImageClassification, loader, o, m.classify)
	return m
}

// TopK returns the maximum number of labels returned per image
func (m *ImageClassificationModel) TopK() int {
	return m.topK
}

// Predict returns up to topK labels for the image, highest score first.
// The image is read from req.ImagePath unless req.Image is set.
func (m *ImageClassificationModel) Predict(ctx context.Context, req *entity.PredictionRequest) (entity.Prediction, error) {
	if req == nil || req.Kind() != entity.InputKindImage {
		return nil, &service.InvalidInputError{Field: "image", Reason: "no valid image selected"}
	}

	if len(req.Image) > 0 {
		return m.predict(ctx, req.Image, instrument.Kw("top_k", m.topK))
	}
	return m.predict(ctx, req.ImagePath, instrument.Kw("top_k", m.topK))
}

func (m *ImageClassificationModel) classify(ctx context.Context, args ...any) (entity.Prediction, error) {
	if err := m.EnsureReady(ctx); err != nil {
		return nil, err
	}

	image, ok := instrument.Arg[[]byte](args, 0)
	if !ok {
		path, _ := instrument.Arg[string](args, 0)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &service.InvalidInputError{Field: "image", Reason: "no valid image selected", Cause: err}
		}
		image = data
	}

	results, err := m.run(ctx, &service.PipelineInput{
		Image: image,
		TopK:  m.topK,
	})
	if err != nil {
		return nil, err
	}

	return rankTopK(results, m.topK), nil
}

// rankTopK sorts by descending score, keeping the pipeline's order for
// equal scores, and keeps the first k.
func rankTopK(results entity.Prediction, k int) entity.Prediction {
	ranked := make(entity.Prediction, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Describe returns a short description of the model and expected inputs
func (m *ImageClassificationModel) Describe() string {
	return fmt.Sprintf("Model name: %s\n"+
		"Task: Image classification\n"+
		"Input: path to an image file (jpg, jpeg, png, bmp) or raw image bytes.\n"+
		"Output: up to %d label + score pairs, highest score first.", m.model, m.topK)
}
