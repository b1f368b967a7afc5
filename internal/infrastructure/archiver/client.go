// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package archiver is the HTTP client for the recording archive service,
// which copies a bot's session recording from the provider's short-lived
// URL into long-term storage. Archival is best-effort and idempotent on
// the service side, so transient failures are retried with backoff.
package archiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/logging"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for archive requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries     = 2
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 8 * time.Second
)

// Config holds the configuration for the archive client
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Optional: OAuth2 audience parameter for the token request
	Audience string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client implements domain.AudioArchiver with OAuth2 client-credentials
// machine-to-machine authentication.
type Client struct {
	config      Config
	oauthConfig *clientcredentials.Config
}

var _ domain.AudioArchiver = (*Client)(nil)

// NewClient creates a new archive client.
func NewClient(config Config) *Client {
	// Strip trailing slash from base URL to prevent double slashes in URL construction
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
	}
	if config.Audience != "" {
		oauthConfig.EndpointParams = url.Values{
			"audience": []string{config.Audience},
		}
	}

	return &Client{
		config:      config,
		oauthConfig: oauthConfig,
	}
}

// getAuthenticatedClient returns an HTTP client that automatically handles
// OAuth2 token acquisition and renewal.
func (c *Client) getAuthenticatedClient(ctx context.Context) *http.Client {
	ts := c.oauthConfig.TokenSource(ctx)
	return &http.Client{
		Timeout: c.config.Timeout,
		Transport: &oauth2.Transport{
			Base:   http.DefaultTransport,
			Source: ts,
		},
	}
}

// archiveRequest is the archive service's input contract. The session date
// groups recordings in storage by day.
type archiveRequest struct {
	BotID       string `json:"bot_id"`
	SessionUID  string `json:"session_uid"`
	ChildUID    string `json:"child_uid,omitempty"`
	SessionDate string `json:"session_date"`
}

// Archive asks the archive service to copy the bot's recording into
// long-term storage and returns where it landed.
func (c *Client) Archive(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error) {
	if req.BotID == "" {
		return nil, domain.NewValidationError("archive request requires a bot ID")
	}
	if req.SessionUID == "" {
		return nil, domain.NewValidationError("archive request requires a session UID")
	}

	body, err := json.Marshal(archiveRequest{
		BotID:       req.BotID,
		SessionUID:  req.SessionUID,
		ChildUID:    req.ChildUID,
		SessionDate: req.SessionDate.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal request", err)
	}

	requestURL := fmt.Sprintf("%s/v1/recordings/archive", c.config.BaseURL)

	var lastErr error
	var lastStatus int
	var lastBody []byte

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			slog.WarnContext(ctx, "archive request failed, retrying",
				"status", lastStatus,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, domain.NewUnavailableError("archive request cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
		if err != nil {
			return nil, domain.NewInternalError("failed to create request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.getAuthenticatedClient(ctx).Do(httpReq)
		if err != nil {
			lastErr = err
			lastStatus = 0
			if ctx.Err() != nil {
				return nil, domain.NewUnavailableError("archive request cancelled", ctx.Err())
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, domain.NewInternalError("failed to read response", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var result domain.ArchiveResult
			if err := json.Unmarshal(respBody, &result); err != nil {
				return nil, domain.NewInternalError("failed to parse response", err)
			}
			if result.StoragePath == "" {
				return nil, domain.NewInternalError("archive service returned no storage path")
			}
			slog.DebugContext(ctx, "recording archived",
				"bot_id", req.BotID,
				"session_uid", req.SessionUID,
				"storage_path", result.StoragePath,
				"attempt", attempt+1,
			)
			return &result, nil
		}

		lastErr = fmt.Errorf("status: %d", resp.StatusCode)
		lastStatus = resp.StatusCode
		lastBody = respBody

		if !shouldRetry(resp.StatusCode) {
			break
		}
	}

	slog.ErrorContext(ctx, "archive request failed",
		"bot_id", req.BotID,
		"session_uid", req.SessionUID,
		"status", lastStatus,
		logging.ErrKey, lastErr,
	)

	if lastStatus == 0 {
		return nil, domain.NewUnavailableError("archive service request failed", lastErr)
	}
	return nil, mapHTTPError(lastStatus, lastBody)
}

// shouldRetry reports whether an HTTP status is worth another attempt.
// Server errors and rate limits are transient; client errors are not.
func shouldRetry(statusCode int) bool {
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	return statusCode == http.StatusTooManyRequests
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Jitter of ±25% to prevent thundering herd
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	withJitter := time.Duration(backoff + jitter)
	if withJitter < c.config.InitialBackoff {
		withJitter = c.config.InitialBackoff
	}

	return withJitter
}

// errorResponse is the archive API's error body shape.
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
