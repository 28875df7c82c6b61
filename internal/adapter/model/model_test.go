package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/lazy"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/metrics"
)

// MockPipelineLoader is a mock implementation of PipelineLoader
type MockPipelineLoader struct {
	mock.Mock
}

func (m *MockPipelineLoader) Load(ctx context.Context, task, model string) (service.Pipeline, error) {
	args := m.Called(ctx, task, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(service.Pipeline), args.Error(1)
}

// MockPipeline is a mock implementation of Pipeline
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Run(ctx context.Context, input *service.PipelineInput) (entity.Prediction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.Prediction), args.Error(1)
}

func nopSink() *zap.Logger {
	return zap.NewNop()
}

func TestTextSentimentModel_Describe(t *testing.T) {
	loader := new(MockPipelineLoader)
	m := NewTextSentimentModel(loader, WithSink(nopSink()))

	info := m.Describe()

	assert.NotEmpty(t, info)
	assert.Contains(t, info, "Model name: distilbert-base-uncased-finetuned-sst-2-english")
	assert.Contains(t, info, "Text classification (sentiment)")
	assert.Equal(t, lazy.StateEmpty, m.PipelineState())
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
}

func TestTextSentimentModel_Predict(t *testing.T) {
	t.Run("loads pipeline once across calls", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, service.TaskTextClassification, DefaultTextModel).Return(pipeline, nil).Once()
		pipeline.On("Run", mock.Anything, &service.PipelineInput{Text: "great movie", Truncation: true}).
			Return(entity.Prediction{{Label: "POSITIVE", Score: 0.9998}}, nil)

		for i := 0; i < 3; i++ {
			out, err := m.Predict(context.Background(), entity.NewTextRequest("great movie"))
			require.NoError(t, err)
			assert.Equal(t, entity.Prediction{{Label: "POSITIVE", Score: 0.9998}}, out)
		}

		loader.AssertNumberOfCalls(t, "Load", 1)
		pipeline.AssertNumberOfCalls(t, "Run", 3)
		assert.Equal(t, lazy.StateReady, m.PipelineState())
	})

	t.Run("uses configured model name", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithModelName("custom/sentiment"), WithSink(nopSink()))

		loader.On("Load", mock.Anything, service.TaskTextClassification, "custom/sentiment").Return(pipeline, nil).Once()
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{{Label: "NEGATIVE", Score: 0.8}}, nil)

		_, err := m.Predict(context.Background(), entity.NewTextRequest("meh"))

		require.NoError(t, err)
		assert.Equal(t, "custom/sentiment", m.ModelName())
		loader.AssertExpectations(t)
	})

	t.Run("concurrent first calls load once", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, service.TaskTextClassification, DefaultTextModel).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{{Label: "POSITIVE", Score: 0.9}}, nil)

		const callers = 16
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = m.Predict(context.Background(), entity.NewTextRequest("hello"))
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		loader.AssertNumberOfCalls(t, "Load", 1)
		pipeline.AssertNumberOfCalls(t, "Run", callers)
	})

	t.Run("load failure is retryable", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		reg := metrics.New(nil)
		m := NewTextSentimentModel(loader, WithSink(nopSink()), WithMetrics(reg))
		loadErr := errors.New("connection refused")

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(nil, loadErr).Once()
		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil).Once()
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{{Label: "POSITIVE", Score: 0.7}}, nil)

		_, err := m.Predict(context.Background(), entity.NewTextRequest("hello"))

		var initErr *service.ResourceInitError
		require.True(t, errors.As(err, &initErr))
		assert.Equal(t, DefaultTextModel, initErr.Model)
		assert.ErrorIs(t, err, loadErr)
		assert.Equal(t, lazy.StateEmpty, m.PipelineState())

		out, err := m.Predict(context.Background(), entity.NewTextRequest("hello"))

		require.NoError(t, err)
		assert.Len(t, out, 1)
		loader.AssertNumberOfCalls(t, "Load", 2)
		assert.Equal(t, float64(1), testutil.ToFloat64(reg.PipelineLoads.WithLabelValues(DefaultTextModel, "error")))
		assert.Equal(t, float64(1), testutil.ToFloat64(reg.PipelineLoads.WithLabelValues(DefaultTextModel, "success")))
	})

	t.Run("pipeline failure becomes inference error", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithSink(nopSink()))
		runErr := errors.New("status 422")

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(nil, runErr)

		out, err := m.Predict(context.Background(), entity.NewTextRequest("hello"))

		assert.Nil(t, out)
		var inferErr *service.InferenceError
		require.True(t, errors.As(err, &inferErr))
		assert.ErrorIs(t, err, runErr)
		assert.Equal(t, lazy.StateReady, m.PipelineState())
	})

	t.Run("rejects empty text without loading", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		m := NewTextSentimentModel(loader, WithSink(nopSink()))

		_, err := m.Predict(context.Background(), entity.NewTextRequest("   "))

		assert.ErrorIs(t, err, service.ErrInvalidInput)
		loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("emits instrumentation lines", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithSink(zap.New(core)))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{{Label: "POSITIVE", Score: 0.9}}, nil)

		_, err := m.Predict(context.Background(), entity.NewTextRequest("hi"))
		require.NoError(t, err)

		entries := logs.All()
		require.Len(t, entries, 3)
		assert.Equal(t, `[LOG] (TextSentimentModel.predict) Calling TextSentimentModel.Predict with args=["hi"] kwargs={"truncation": true}`, entries[0].Message)
		assert.Equal(t, `[LOG] (TextSentimentModel.predict) TextSentimentModel.Predict finished`, entries[1].Message)
		assert.Regexp(t, `^\[TIMED\] TextSentimentModel\.Predict took \d+\.\d{3} s$`, entries[2].Message)
	})

	t.Run("logs pipeline loading with the model name", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewTextSentimentModel(loader, WithSink(nopSink()), WithLogger(zap.New(core)))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{}, nil)

		require.NoError(t, m.EnsureReady(context.Background()))

		loading := logs.FilterMessage("Loading pipeline").All()
		require.Len(t, loading, 1)
		assert.Equal(t, "TextSentimentModel", loading[0].LoggerName)
		assert.Equal(t, DefaultTextModel, loading[0].ContextMap()["resource"])
	})
}

func eightResults() entity.Prediction {
	return entity.Prediction{
		{Label: "a", Score: 0.05},
		{Label: "b", Score: 0.30},
		{Label: "c", Score: 0.10},
		{Label: "d", Score: 0.20},
		{Label: "e", Score: 0.02},
		{Label: "f", Score: 0.10},
		{Label: "g", Score: 0.18},
		{Label: "h", Score: 0.05},
	}
}

func TestImageClassificationModel_Predict(t *testing.T) {
	t.Run("returns top five by score", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewImageClassificationModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, service.TaskImageClassification, DefaultImageModel).Return(pipeline, nil).Once()
		pipeline.On("Run", mock.Anything, &service.PipelineInput{Image: []byte("pixels"), TopK: 5}).Return(eightResults(), nil)

		out, err := m.Predict(context.Background(), entity.NewImageBytesRequest([]byte("pixels")))

		require.NoError(t, err)
		require.Len(t, out, 5)
		labels := make([]string, len(out))
		for i, ls := range out {
			labels[i] = ls.Label
		}
		// c and f tie at 0.10 and keep pipeline order
		assert.Equal(t, []string{"b", "d", "g", "c", "f"}, labels)
	})

	t.Run("custom top k", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewImageClassificationModel(loader, WithTopK(2), WithSink(nopSink()))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(eightResults(), nil)

		out, err := m.Predict(context.Background(), entity.NewImageBytesRequest([]byte("pixels")))

		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Contains(t, m.Describe(), "up to 2 label")
	})

	t.Run("fewer results than top k are kept", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewImageClassificationModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, mock.Anything).Return(entity.Prediction{{Label: "tabby", Score: 0.9}}, nil)

		out, err := m.Predict(context.Background(), entity.NewImageBytesRequest([]byte("pixels")))

		require.NoError(t, err)
		assert.Equal(t, entity.Prediction{{Label: "tabby", Score: 0.9}}, out)
	})

	t.Run("reads image from path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cat.png")
		require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))

		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewImageClassificationModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)
		pipeline.On("Run", mock.Anything, &service.PipelineInput{Image: []byte("png-bytes"), TopK: 5}).
			Return(entity.Prediction{{Label: "tabby", Score: 0.9}}, nil)

		out, err := m.Predict(context.Background(), entity.NewImagePathRequest(path))

		require.NoError(t, err)
		assert.Len(t, out, 1)
		pipeline.AssertExpectations(t)
	})

	t.Run("unreadable path is invalid input", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		pipeline := new(MockPipeline)
		m := NewImageClassificationModel(loader, WithSink(nopSink()))

		loader.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(pipeline, nil)

		_, err := m.Predict(context.Background(), entity.NewImagePathRequest(filepath.Join(t.TempDir(), "missing.png")))

		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.ErrorIs(t, err, os.ErrNotExist)
		pipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("text request is rejected", func(t *testing.T) {
		loader := new(MockPipelineLoader)
		m := NewImageClassificationModel(loader, WithSink(nopSink()))

		_, err := m.Predict(context.Background(), entity.NewTextRequest("not an image"))

		assert.ErrorIs(t, err, service.ErrInvalidInput)
		loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestImageClassificationModel_Describe(t *testing.T) {
	loader := new(MockPipelineLoader)
	m := NewImageClassificationModel(loader, WithModelName("microsoft/resnet-50"), WithSink(nopSink()))

	info := m.Describe()

	assert.Contains(t, info, "Model name: microsoft/resnet-50")
	assert.Contains(t, info, "Image classification")
	assert.Equal(t, lazy.StateEmpty, m.PipelineState())
	assert.Equal(t, service.TaskImageClassification, m.Task())
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
}

func TestRankTopK(t *testing.T) {
	in := eightResults()
	original := make(entity.Prediction, len(in))
	copy(original, in)

	out := rankTopK(in, 5)

	assert.Equal(t, original, in, "input is not reordered")
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score, out[i].Score)
	}
}
