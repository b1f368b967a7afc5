// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Config{
		BaseURL: "https://analyzer.example.com/",
		APIKey:  "test-key",
	})

	require.NotNil(t, client)
	assert.Equal(t, "https://analyzer.example.com", client.config.BaseURL, "trailing slash should be stripped")
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestClientAnalyze(t *testing.T) {
	var gotReq analyzeRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/session-analyses", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.SessionAnalysis{
			FocusArea: "fractions",
			SkillTags: []string{"equivalent-fractions"},
			Ratings: models.AnalysisRatings{
				Engagement:    4,
				Comprehension: 3,
				Progress:      4,
			},
			ParentSummary: "Worked on comparing fractions with different denominators.",
			CoachSummary:  "Strong start, needs more practice with mixed numbers.",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	history := &models.ChildProfile{
		UID:                  "child-1",
		Name:                 "Test Child",
		SessionCount:         7,
		LatestFocusArea:      "multiplication",
		LatestSessionSummary: "Reviewed times tables.",
	}

	analysis, err := client.Analyze(context.Background(), "Coach: let's look at fractions today.", history)

	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "fractions", analysis.FocusArea)
	assert.Equal(t, 4, analysis.Ratings.Engagement)
	assert.NotEmpty(t, analysis.ParentSummary)

	assert.Equal(t, "Coach: let's look at fractions today.", gotReq.Transcript)
	assert.Equal(t, "Test Child", gotReq.ChildName)
	assert.Equal(t, 7, gotReq.SessionCount)
	assert.Equal(t, "multiplication", gotReq.PriorFocusArea)
	assert.Equal(t, "Reviewed times tables.", gotReq.PriorSummary)
}

func TestClientAnalyzeWithoutHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.ChildName)
		assert.Zero(t, req.SessionCount)

		_ = json.NewEncoder(w).Encode(models.SessionAnalysis{
			ParentSummary: "First session went well.",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	analysis, err := client.Analyze(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "First session went well.", analysis.ParentSummary)
}

func TestClientAnalyzeEmptyTranscript(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0", APIKey: "test-key"})

	_, err := client.Analyze(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestClientAnalyzeEmptyParentSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.SessionAnalysis{FocusArea: "reading"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	_, err := client.Analyze(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
}

func TestClientAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		body         string
		expectedType domain.ErrorType
	}{
		{
			name:         "bad request maps to validation error",
			statusCode:   http.StatusBadRequest,
			body:         `{"message": "transcript too short"}`,
			expectedType: domain.ErrorTypeValidation,
		},
		{
			name:         "unauthorized maps to validation error",
			statusCode:   http.StatusUnauthorized,
			body:         `{"error": "invalid api key"}`,
			expectedType: domain.ErrorTypeValidation,
		},
		{
			name:         "service unavailable maps to unavailable error",
			statusCode:   http.StatusServiceUnavailable,
			body:         `{"message": "overloaded"}`,
			expectedType: domain.ErrorTypeUnavailable,
		},
		{
			name:         "internal error with unparseable body",
			statusCode:   http.StatusInternalServerError,
			body:         `not json`,
			expectedType: domain.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

			_, err := client.Analyze(context.Background(), "hello", nil)
			require.Error(t, err)
			assert.Equal(t, tt.expectedType, domain.GetErrorType(err))
		})
	}
}

func TestClientAnalyzeRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(models.SessionAnalysis{ParentSummary: "too late"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Analyze(ctx, "hello", nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
