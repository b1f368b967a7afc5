// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/handlers"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/internal/middleware"
	"github.com/learnloop/session-intel-service/internal/service"
	"github.com/learnloop/session-intel-service/pkg/utils"
)

// Recall webhook signature headers.
const (
	// RecallSignatureHeader carries the HMAC signature of the request body.
	RecallSignatureHeader = "X-Recall-Signature"
	// RecallTimestampHeader carries the unix timestamp the signature covers.
	RecallTimestampHeader = "X-Recall-Timestamp"
)

// SessionIntelAPI aggregates the service surfaces exposed over HTTP and NATS.
type SessionIntelAPI struct {
	webhookService   *service.RecallWebhookService
	webhookHandler   *handlers.RecallWebhookHandler
	schedulerHandler *handlers.SchedulerHandlers
}

// NewSessionIntelAPI creates a new SessionIntelAPI.
func NewSessionIntelAPI(
	webhookService *service.RecallWebhookService,
	webhookHandler *handlers.RecallWebhookHandler,
	schedulerHandler *handlers.SchedulerHandlers,
) *SessionIntelAPI {
	return &SessionIntelAPI{
		webhookService:   webhookService,
		webhookHandler:   webhookHandler,
		schedulerHandler: schedulerHandler,
	}
}

// Livez checks if the service is alive.
func (s *SessionIntelAPI) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// Readyz checks if the service is able to take inbound requests.
func (s *SessionIntelAPI) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.webhookService.ServiceReady() || !s.webhookHandler.HandlerReady() || !s.schedulerHandler.HandlerReady() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// webhookEnvelope is the wire shape of an inbound Recall webhook delivery.
type webhookEnvelope struct {
	Event   string         `json:"event"`
	EventTS int64          `json:"event_ts"`
	Data    map[string]any `json:"data"`
}

// webhookResponseBody is the wire shape of the webhook endpoint response.
type webhookResponseBody struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleRecallWebhook receives Recall webhook deliveries, validates them, and
// queues them for async processing.
func (s *SessionIntelAPI) HandleRecallWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeJSONResponse(ctx, w, http.StatusBadRequest, webhookResponseBody{Message: "failed to read request body"})
			return
		}
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Acknowledge malformed payloads so the provider does not retry a
		// delivery that can never succeed.
		slog.WarnContext(ctx, "ignoring malformed webhook payload", logging.ErrKey, err)
		writeJSONResponse(ctx, w, http.StatusOK, webhookResponseBody{
			Status:  "ignored",
			Message: "invalid webhook payload format",
		})
		return
	}

	request := service.WebhookRequest{
		Event:     envelope.Event,
		EventTS:   envelope.EventTS,
		Payload:   envelope.Data,
		Signature: r.Header.Get(RecallSignatureHeader),
		Timestamp: r.Header.Get(RecallTimestampHeader),
		RawBody:   body,
	}

	response, err := s.webhookService.ProcessWebhookEvent(ctx, request)
	if err != nil {
		writeJSONResponse(ctx, w, webhookStatusCode(err), webhookResponseBody{Message: err.Error()})
		return
	}

	writeJSONResponse(ctx, w, http.StatusOK, webhookResponseBody{
		Status:  utils.StringValue(response.Status),
		Message: utils.StringValue(response.Message),
	})
}

// webhookStatusCode maps a processing error to the HTTP status the provider
// sees. Signature failures are unauthorized; a publish failure is the only
// retryable server-side error.
func webhookStatusCode(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusUnauthorized
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes a JSON response body with the given status code.
func writeJSONResponse(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "error encoding response body", logging.ErrKey, err)
	}
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, svc *SessionIntelAPI, gracefulCloseWG *sync.WaitGroup) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/livez", svc.Livez).Methods(http.MethodGet)
	router.HandleFunc("/readyz", svc.Readyz).Methods(http.MethodGet)
	router.HandleFunc("/webhooks/recall", svc.HandleRecallWebhook).Methods(http.MethodPost)

	var handler http.Handler = router
	handler = otelhttp.NewHandler(handler, "session-intel-api")
	handler = gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))(handler)

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.WebhookBodyCaptureMiddleware()(handler)
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
