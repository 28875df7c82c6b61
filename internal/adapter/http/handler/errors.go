package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/service"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/usecase"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapUsecaseError maps usecase and model errors to HTTP error responses.
// Validation failures carry their own message; everything else is generic.
func MapUsecaseError(err error) ErrorResponse {
	var invalid *service.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    invalid.Field + ": " + invalid.Reason,
		}
	case errors.Is(err, service.ErrInvalidInput):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    "invalid request",
		}
	case errors.Is(err, usecase.ErrModelDisabled):
		return ErrorResponse{
			StatusCode: http.StatusConflict,
			Code:       "MODEL_DISABLED",
			Message:    "model is disabled",
		}
	case errors.Is(err, usecase.ErrUnknownModelKey):
		return ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "NOT_FOUND",
			Message:    "unknown model",
		}
	case errors.Is(err, service.ErrInference):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "INFERENCE_ERROR",
			Message:    "model could not process the input",
		}
	case errors.Is(err, service.ErrResourceInit):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "MODEL_UNAVAILABLE",
			Message:    "model is not available",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandleUsecaseError handles a usecase error by sending an appropriate HTTP response.
func HandleUsecaseError(c *gin.Context, err error) {
	errResp := MapUsecaseError(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

// HandleInvalidRequest handles a generic invalid request error.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}
