package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// LoadPipelineRequest asks the ML service to build a pipeline
type LoadPipelineRequest struct {
	Task  string `json:"task"`
	Model string `json:"model"`
}

// LoadPipelineResponse identifies a pipeline built by the ML service
type LoadPipelineResponse struct {
	PipelineID string `json:"pipeline_id"`
	Task       string `json:"task"`
	Model      string `json:"model"`
}

// PredictRequest represents a request to a loaded pipeline.
// Image is sent base64 encoded by encoding/json.
type PredictRequest struct {
	Text       string `json:"text,omitempty"`
	Image      []byte `json:"image,omitempty"`
	Truncation bool   `json:"truncation,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// LabelScore represents a single classification result
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PredictResponse represents the response from a pipeline
type PredictResponse struct {
	Success      bool         `json:"success"`
	Results      []LabelScore `json:"results"`
	ModelVersion string       `json:"model_version"`
	RequestID    string       `json:"request_id,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelVersion string `json:"model_version"`
}

// StatusError is returned when the ML service answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ML service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ML service returned status %d: %s", e.StatusCode, e.Body)
}

// MLClient is an HTTP client for the ML service
type MLClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMLClient creates a new ML service client
func NewMLClient(baseURL string, timeout time.Duration) *MLClient {
	return &MLClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// LoadPipeline builds a pipeline for task bound to the named pretrained model
func (c *MLClient) LoadPipeline(ctx context.Context, task, model string) (*LoadPipelineResponse, error) {
	var result LoadPipelineResponse
	if err := c.postJSON(ctx, "/pipelines", LoadPipelineRequest{Task: task, Model: model}, &result); err != nil {
		return nil, err
	}
	if result.PipelineID == "" {
		return nil, fmt.Errorf("ML service returned an empty pipeline id")
	}
	return &result, nil
}

// Predict runs a loaded pipeline on one input
func (c *MLClient) Predict(ctx context.Context, pipelineID string, reqBody *PredictRequest) (*PredictResponse, error) {
	var result PredictResponse
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/predict"
	if err := c.postJSON(ctx, path, reqBody, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("ML service reported an unsuccessful prediction")
	}
	return &result, nil
}

// Health checks the ML service health
func (c *MLClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Ready checks if the ML service is ready
func (c *MLClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ML service not ready: status %d", resp.StatusCode)
	}

	return nil
}

func (c *MLClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
