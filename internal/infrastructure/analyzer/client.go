// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package analyzer is the HTTP client for the pedagogical analysis service.
// The analysis itself is opaque to this service: the client sends a diarized
// transcript plus the child's cached history and stores whatever structured
// judgment comes back. Callers handle failures with a fallback analysis, so
// the client reports errors instead of retrying long generative calls.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
)

// DefaultTimeout bounds one analysis call. Generative analysis is slow, but
// a webhook-driven pipeline cannot wait forever for it.
const DefaultTimeout = 90 * time.Second

// Config holds analyzer service configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements domain.PedagogicalAnalyzer against the analyzer HTTP API.
type Client struct {
	httpClient *http.Client
	config     Config
}

var _ domain.PedagogicalAnalyzer = (*Client)(nil)

// NewClient creates a new analyzer client.
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

// analyzeRequest is the analyzer's input contract. The history fields give
// the analyzer continuity across a child's sessions without shipping the
// whole profile.
type analyzeRequest struct {
	Transcript     string `json:"transcript"`
	ChildName      string `json:"child_name,omitempty"`
	SessionCount   int    `json:"session_count,omitempty"`
	PriorFocusArea string `json:"prior_focus_area,omitempty"`
	PriorSummary   string `json:"prior_summary,omitempty"`
}

// Analyze submits a transcript for analysis and returns the structured result.
func (c *Client) Analyze(ctx context.Context, transcript string, history *models.ChildProfile) (*models.SessionAnalysis, error) {
	if transcript == "" {
		return nil, domain.NewValidationError("analysis requires a non-empty transcript")
	}

	req := analyzeRequest{Transcript: transcript}
	if history != nil {
		req.ChildName = history.Name
		req.SessionCount = history.SessionCount
		req.PriorFocusArea = history.LatestFocusArea
		req.PriorSummary = history.LatestSessionSummary
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal request", err)
	}

	url := fmt.Sprintf("%s/v1/session-analyses", c.config.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewInternalError("failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	// Transcript content is child speech and stays out of the logs.
	slog.DebugContext(ctx, "analyzer request",
		"url", url,
		"transcript_chars", len(transcript),
		"has_history", history != nil,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewUnavailableError("analyzer request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewInternalError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.ErrorContext(ctx, "analyzer response error",
			"status_code", resp.StatusCode,
			"duration", time.Since(start).String(),
			logging.ErrKey, fmt.Errorf("status: %d", resp.StatusCode),
		)
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var result models.SessionAnalysis
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewInternalError("failed to parse response", err)
	}

	// A response with no parent summary is as useless as no response.
	// Treat it as a failure so the caller falls back to the default analysis.
	if result.ParentSummary == "" {
		return nil, domain.NewInternalError("analyzer returned an empty parent summary")
	}

	slog.DebugContext(ctx, "analyzer response",
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String(),
		"focus_area", result.FocusArea,
		"flagged", result.FlaggedForAttention,
	)

	return &result, nil
}

// errorResponse is the analyzer API's error body shape.
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
