package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/usecase"
)

// PredictHandler handles prediction HTTP requests
type PredictHandler struct {
	predictUC usecase.PredictUsecase
	imageRoot string
}

// NewPredictHandler creates a new predict handler. Image paths sent by
// clients are confined to imageRoot; an empty root accepts uploads only.
func NewPredictHandler(predictUC usecase.PredictUsecase, imageRoot string) *PredictHandler {
	return &PredictHandler{predictUC: predictUC, imageRoot: imageRoot}
}

// TextRequest is the body of POST /api/v1/predict/text
type TextRequest struct {
	Text string `json:"text"`
}

// ImageRequest is the JSON body of POST /api/v1/predict/image
type ImageRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

// RunRequest is the body of POST /api/v1/run
type RunRequest struct {
	Kind      string `json:"kind" binding:"required"`
	Text      string `json:"text"`
	ImagePath string `json:"image_path"`
}

// PredictText handles POST /api/v1/predict/text
func (h *PredictHandler) PredictText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.predictUC.PredictText(c.Request.Context(), req.Text)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// PredictImage handles POST /api/v1/predict/image.
// The image is either a multipart upload in the "image" field or a JSON
// body naming a path under the configured image root.
func (h *PredictHandler) PredictImage(c *gin.Context) {
	var predReq *entity.PredictionRequest
	if IsMultipart(c) {
		data, err := ReadImageUpload(c)
		if err != nil {
			if errors.Is(err, ErrNoUpload) {
				HandleUsecaseError(c, usecase.ErrNoImage)
				return
			}
			HandleInvalidRequest(c, err.Error())
			return
		}
		predReq = entity.NewImageBytesRequest(data)
	} else {
		var req ImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleInvalidRequest(c, err.Error())
			return
		}
		path, err := ResolveImagePath(h.imageRoot, req.ImagePath)
		if err != nil {
			HandleInvalidRequest(c, err.Error())
			return
		}
		predReq = entity.NewImagePathRequest(path)
	}

	output, err := h.predictUC.PredictImage(c.Request.Context(), predReq)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// Run handles POST /api/v1/run. Validation and model failures are reported
// as messages in a successful response, the way the interactive shell
// shows them.
func (h *PredictHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}
	if !IsValidInputKind(req.Kind) {
		HandleInvalidRequest(c, "invalid kind")
		return
	}
	imagePath := ""
	if req.Kind == string(entity.InputKindImage) {
		path, err := ResolveImagePath(h.imageRoot, req.ImagePath)
		if err != nil {
			HandleInvalidRequest(c, err.Error())
			return
		}
		imagePath = path
	}

	ctx := c.Request.Context()
	results := h.predictUC.Submit(ctx, &usecase.RunInput{
		Kind:      entity.InputKind(req.Kind),
		Text:      req.Text,
		ImagePath: imagePath,
	})

	select {
	case output := <-results:
		respondSuccess(c, http.StatusOK, output)
	case <-ctx.Done():
		respondError(c, http.StatusServiceUnavailable, "CANCELLED", "request cancelled")
	}
}

// ListModels handles GET /api/v1/models
func (h *PredictHandler) ListModels(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.predictUC.ModelInfo(c.Request.Context()))
}
