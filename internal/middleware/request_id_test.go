// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnloop/session-intel-service/pkg/constants"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates a request ID when the header is absent", func(t *testing.T) {
		var contextRequestID string

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := r.Context().Value(constants.RequestIDContextID).(string); ok {
				contextRequestID = id
			}
			w.WriteHeader(http.StatusOK)
		})

		wrappedHandler := RequestIDMiddleware()(handler)

		req := httptest.NewRequest("POST", "/webhooks/recall", nil)
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)

		assert.NotEmpty(t, contextRequestID)
		assert.Equal(t, contextRequestID, w.Header().Get(constants.RequestIDHeader))
	})

	t.Run("honors an inbound request ID", func(t *testing.T) {
		var contextRequestID string

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := r.Context().Value(constants.RequestIDContextID).(string); ok {
				contextRequestID = id
			}
			w.WriteHeader(http.StatusOK)
		})

		wrappedHandler := RequestIDMiddleware()(handler)

		req := httptest.NewRequest("POST", "/webhooks/recall", nil)
		req.Header.Set(constants.RequestIDHeader, "upstream-id-42")
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)

		assert.Equal(t, "upstream-id-42", contextRequestID)
		assert.Equal(t, "upstream-id-42", w.Header().Get(constants.RequestIDHeader))
	})
}
