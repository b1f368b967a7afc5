// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package embedding is the HTTP client for the embedding service that turns
// session text into vectors for semantic search. Embedding is best-effort:
// callers log failures and move on.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
)

// DefaultTimeout is the default HTTP client timeout for embedding requests.
const DefaultTimeout = 15 * time.Second

// Config holds embedding service configuration.
type Config struct {
	BaseURL string
	APIKey  string
	// Optional: model identifier forwarded to the embedding service
	Model   string
	Timeout time.Duration
}

// Client implements domain.EmbeddingGenerator against the embedding HTTP API.
type Client struct {
	httpClient *http.Client
	config     Config
}

var _ domain.EmbeddingGenerator = (*Client)(nil)

// NewClient creates a new embedding client.
func NewClient(config Config) *Client {
	// Strip trailing slash from base URL to prevent double slashes in URL construction
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.NewValidationError("embedding input is empty")
	}

	body, err := json.Marshal(embedRequest{Input: text, Model: c.config.Model})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal request", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.config.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewInternalError("failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewUnavailableError("embedding request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewInternalError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewInternalError("failed to parse response", err)
	}
	if len(result.Embedding) == 0 {
		return nil, domain.NewInternalError("embedding service returned an empty vector")
	}

	return result.Embedding, nil
}

// errorResponse is the embedding API's error body shape.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// mapHTTPError maps HTTP status codes to domain errors
func mapHTTPError(statusCode int, body []byte) error {
	var errMsg errorResponse
	_ = json.Unmarshal(body, &errMsg)

	message := errMsg.Message
	if message == "" {
		message = errMsg.Error
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d error", statusCode)
	}

	switch statusCode {
	case http.StatusBadRequest:
		return domain.NewValidationError(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewValidationError(fmt.Sprintf("authentication/authorization failed: %s", message))
	case http.StatusNotFound:
		return domain.NewNotFoundError(message)
	case http.StatusConflict:
		return domain.NewConflictError(message)
	case http.StatusServiceUnavailable:
		return domain.NewUnavailableError(message)
	default:
		return domain.NewInternalError(message)
	}
}
