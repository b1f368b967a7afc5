// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/pkg/constants"
)

// RequestIDMiddleware creates a middleware that ensures every request carries
// a request ID. An inbound X-REQUEST-ID header is honored; otherwise a new ID
// is generated. The ID is stored in the request context, added to the logging
// context, and echoed on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), constants.RequestIDContextID, requestID)
			ctx = logging.AppendCtx(ctx, slog.String("request_id", requestID))
			r = r.WithContext(ctx)

			w.Header().Set(constants.RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
