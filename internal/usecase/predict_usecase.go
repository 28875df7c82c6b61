package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/instrument"
)

// Error definitions for predict usecase
var (
	ErrNoText          = &service.InvalidInputError{Field: "text", Reason: "no text provided"}
	ErrNoImage         = &service.InvalidInputError{Field: "image", Reason: "no valid image selected"}
	ErrModelDisabled   = errors.New("model disabled")
	ErrUnknownModelKey = errors.New("unknown model")
)

// Shell messages rendered for the user
const (
	MsgNoText       = "No text provided."
	MsgNoImage      = "No valid image selected."
	MsgRunningText  = "Running text model..."
	MsgRunningImage = "Running image model..."
	MsgTextSkipped  = "Text model disabled, skipping."
	MsgImageSkipped = "Image model disabled, skipping."
)

// RunInput is one user action: either text or an image selection
type RunInput struct {
	Kind      entity.InputKind `json:"kind"`
	Text      string           `json:"text,omitempty"`
	ImagePath string           `json:"image_path,omitempty"`
	Image     []byte           `json:"-"`
}

func (in *RunInput) String() string {
	if in == nil {
		return "<nil>"
	}
	return fmt.Sprintf("{kind: %s, text: %q, image_path: %q, image: <%d bytes>}", in.Kind, in.Text, in.ImagePath, len(in.Image))
}

// PredictionOutput represents the output of a prediction
type PredictionOutput struct {
	RequestID string              `json:"request_id"`
	Kind      entity.InputKind    `json:"kind"`
	Model     string              `json:"model"`
	Results   []entity.LabelScore `json:"results"`
	LatencyMs int64               `json:"latency_ms"`
}

// RunOutput is what the shell renders for one action: the lines appended to
// the output pane plus the prediction, if one ran.
type RunOutput struct {
	Kind       entity.InputKind  `json:"kind"`
	Messages   []string          `json:"messages"`
	Prediction *PredictionOutput `json:"prediction,omitempty"`
	Err        error             `json:"-"`
}

// ModelInfo describes one adapter
type ModelInfo struct {
	Key         string `json:"key"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// ModelInfoOutput lists the available adapters
type ModelInfoOutput struct {
	Models  []ModelInfo `json:"models"`
	Summary string      `json:"summary"`
}

// Settings switches individual models on or off
type Settings struct {
	RunText  bool
	RunImage bool
}

// PredictUsecase defines the interface for prediction logic
type PredictUsecase interface {
	PredictText(ctx context.Context, text string) (*PredictionOutput, error)
	PredictImage(ctx context.Context, req *entity.PredictionRequest) (*PredictionOutput, error)
	Run(ctx context.Context, input *RunInput) (*RunOutput, error)
	Submit(ctx context.Context, input *RunInput) <-chan *RunOutput
	ModelInfo(ctx context.Context) *ModelInfoOutput
}

type predictUsecase struct {
	textModel  service.Model
	imageModel service.Model
	settings   Settings
	log        *zap.Logger
	run        instrument.Func[*RunOutput]
}

// NewPredictUsecase creates a new predict usecase
func NewPredictUsecase(textModel, imageModel service.Model, settings Settings, log *zap.Logger, sink *zap.Logger) PredictUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	u := &predictUsecase{
		textModel:  textModel,
		imageModel: imageModel,
		settings:   settings,
		log:        log,
	}
	u.run = instrument.Logged(sink, "run_models", "PredictUsecase.Run", u.runModels)
	return u
}

func (u *predictUsecase) PredictText(ctx context.Context, text string) (*PredictionOutput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	if !u.settings.RunText {
		return nil, fmt.Errorf("text: %w", ErrModelDisabled)
	}

	return u.predict(ctx, u.textModel, entity.NewTextRequest(text))
}

func (u *predictUsecase) PredictImage(ctx context.Context, req *entity.PredictionRequest) (*PredictionOutput, error) {
	if req == nil || req.Kind() != entity.InputKindImage {
		return nil, ErrNoImage
	}
	if len(req.Image) == 0 {
		if _, err := os.Stat(req.ImagePath); err != nil {
			return nil, &service.InvalidInputError{Field: "image", Reason: "no valid image selected", Cause: err}
		}
	}
	if !u.settings.RunImage {
		return nil, fmt.Errorf("image: %w", ErrModelDisabled)
	}

	return u.predict(ctx, u.imageModel, req)
}

func (u *predictUsecase) predict(ctx context.Context, model service.Model, req *entity.PredictionRequest) (*PredictionOutput, error) {
	requestID := service.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = service.WithRequestID(ctx, requestID)
	}

	start := time.Now()
	results, err := model.Predict(ctx, req)
	if err != nil {
		u.log.Warn("Prediction failed",
			zap.String("request_id", requestID),
			zap.String("model", model.ModelName()),
			zap.Error(err),
		)
		return nil, err
	}

	latency := time.Since(start)
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("model", model.ModelName()),
		zap.Duration("latency", latency),
	}
	if top, ok := results.Top(); ok {
		fields = append(fields, zap.String("top_label", top.Label), zap.Float64("top_score", top.Score))
	}
	u.log.Debug("Prediction completed", fields...)

	return &PredictionOutput{
		RequestID: requestID,
		Kind:      req.Kind(),
		Model:     model.ModelName(),
		Results:   results,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Run handles one user action the way the shell's "Run Selected" does:
// validation and model failures become messages, never errors.
func (u *predictUsecase) Run(ctx context.Context, input *RunInput) (*RunOutput, error) {
	return u.run(ctx, input)
}

func (u *predictUsecase) runModels(ctx context.Context, args ...any) (*RunOutput, error) {
	input, ok := instrument.Arg[*RunInput](args, 0)
	if !ok || input == nil {
		return nil, fmt.Errorf("run: %w", service.ErrInvalidInput)
	}

	switch input.Kind {
	case entity.InputKindText:
		out := &RunOutput{Kind: entity.InputKindText}
		text := strings.TrimSpace(input.Text)
		if text == "" {
			out.Messages = append(out.Messages, MsgNoText)
			out.Err = ErrNoText
			return out, nil
		}
		if !u.settings.RunText {
			out.Messages = append(out.Messages, MsgTextSkipped)
			return out, nil
		}
		out.Messages = append(out.Messages, MsgRunningText)
		pred, err := u.PredictText(ctx, text)
		if err != nil {
			out.Messages = append(out.Messages, fmt.Sprintf("Text model error: %v", err))
			out.Err = err
			return out, nil
		}
		out.Prediction = pred
		out.Messages = append(out.Messages, entity.Prediction(pred.Results).String())
		return out, nil

	case entity.InputKindImage:
		out := &RunOutput{Kind: entity.InputKindImage}
		req := &entity.PredictionRequest{ImagePath: input.ImagePath, Image: input.Image}
		if !imageSelected(req) {
			out.Messages = append(out.Messages, MsgNoImage)
			out.Err = ErrNoImage
			return out, nil
		}
		if !u.settings.RunImage {
			out.Messages = append(out.Messages, MsgImageSkipped)
			return out, nil
		}
		out.Messages = append(out.Messages, MsgRunningImage)
		pred, err := u.PredictImage(ctx, req)
		if err != nil {
			out.Messages = append(out.Messages, fmt.Sprintf("Image model error: %v", err))
			out.Err = err
			return out, nil
		}
		out.Prediction = pred
		out.Messages = append(out.Messages, entity.Prediction(pred.Results).String())
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKey, input.Kind)
	}
}

// Submit runs the action on a background goroutine. The channel receives
// exactly one output and is then closed.
func (u *predictUsecase) Submit(ctx context.Context, input *RunInput) <-chan *RunOutput {
	ch := make(chan *RunOutput, 1)
	go func() {
		defer close(ch)
		out, err := u.Run(ctx, input)
		if err != nil {
			out = &RunOutput{Messages: []string{err.Error()}, Err: err}
			if input != nil {
				out.Kind = input.Kind
			}
		}
		ch <- out
	}()
	return ch
}

func (u *predictUsecase) ModelInfo(_ context.Context) *ModelInfoOutput {
	models := []ModelInfo{
		{Key: string(entity.InputKindText), Model: u.textModel.ModelName(), Description: u.textModel.Describe()},
		{Key: string(entity.InputKindImage), Model: u.imageModel.ModelName(), Description: u.imageModel.Describe()},
	}

	parts := []string{
		"Text Model:\n" + models[0].Description + "\n",
		"Image Model:\n" + models[1].Description + "\n",
	}

	return &ModelInfoOutput{
		Models:  models,
		Summary: strings.Join(parts, "\n"),
	}
}

func imageSelected(req *entity.PredictionRequest) bool {
	if len(req.Image) > 0 {
		return true
	}
	if req.ImagePath == "" {
		return false
	}
	_, err := os.Stat(req.ImagePath)
	return err == nil
}
