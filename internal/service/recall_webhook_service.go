// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/pkg/utils"
)

// RecallWebhookService handles Recall webhook event processing: signature
// validation and hand-off to NATS for async processing. The endpoint must
// acknowledge quickly; everything that touches the store happens in message
// handlers later.
type RecallWebhookService struct {
	messageSender    domain.WebhookEventSender
	webhookValidator domain.WebhookValidator
}

// WebhookRequest represents the webhook processing request
type WebhookRequest struct {
	Event     string
	EventTS   int64
	Payload   any
	Signature string
	Timestamp string
	RawBody   []byte
}

// WebhookResponse represents the webhook processing response
type WebhookResponse struct {
	Status  *string
	Message *string
}

// NewRecallWebhookService creates a new RecallWebhookService
func NewRecallWebhookService(
	messageSender domain.WebhookEventSender,
	webhookValidator domain.WebhookValidator,
) *RecallWebhookService {
	return &RecallWebhookService{
		messageSender:    messageSender,
		webhookValidator: webhookValidator,
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *RecallWebhookService) ServiceReady() bool {
	return s.messageSender != nil && s.webhookValidator != nil
}

// ProcessWebhookEvent processes a Recall webhook event. Authentication
// failures and publish failures are returned as errors so the provider
// retries the delivery; a payload this service merely does not understand is
// acknowledged and ignored, since erroring would only make the provider
// retry an event that will never become meaningful.
func (s *RecallWebhookService) ProcessWebhookEvent(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("service not initialized")
	}

	if err := s.validateSignature(req); err != nil {
		return nil, err
	}

	return s.processEvent(ctx, req)
}

// validateSignature validates the webhook signature headers
func (s *RecallWebhookService) validateSignature(req WebhookRequest) error {
	if req.Signature == "" || req.Timestamp == "" {
		return domain.NewValidationError("missing signature headers")
	}

	if err := s.webhookValidator.ValidateSignature(req.RawBody, req.Signature, req.Timestamp); err != nil {
		return domain.NewValidationError("invalid webhook signature", err)
	}

	return nil
}

// processEvent publishes a validated event to its NATS subject
func (s *RecallWebhookService) processEvent(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	logger := slog.With("component", "recall_webhook_service", "method", "processEvent")

	if req.Event == "" {
		logger.WarnContext(ctx, "Recall webhook delivery without an event field, ignoring")
		return ignoredResponse("missing event field"), nil
	}

	subject := getRecallWebhookSubject(req.Event)
	if subject == "" {
		logger.WarnContext(ctx, "Unsupported Recall webhook event type, ignoring", "event_type", req.Event)
		return ignoredResponse(fmt.Sprintf("unsupported event type: %s", req.Event)), nil
	}

	payloadMap, ok := req.Payload.(map[string]any)
	if !ok {
		logger.WarnContext(ctx, "Recall webhook payload is not a valid map, ignoring",
			"event_type", req.Event,
			"payload_type", fmt.Sprintf("%T", req.Payload),
		)
		return ignoredResponse("invalid webhook payload format"), nil
	}

	webhookMessage := models.RecallWebhookEventMessage{
		EventType: req.Event,
		EventTS:   req.EventTS,
		Payload:   payloadMap,
	}

	// Publish to NATS for async processing
	if err := s.messageSender.PublishRecallWebhookEvent(ctx, subject, webhookMessage); err != nil {
		logger.ErrorContext(ctx, "Failed to publish webhook event to NATS", "error", err, "event_type", req.Event, "subject", subject)
		return nil, domain.NewInternalError("failed to process webhook event", err)
	}

	logger.InfoContext(ctx, "Recall webhook event published to NATS successfully", "event_type", req.Event, "subject", subject)

	return &WebhookResponse{
		Status:  utils.StringPtr("success"),
		Message: utils.StringPtr(fmt.Sprintf("Event %s queued for processing", req.Event)),
	}, nil
}

// ignoredResponse acknowledges a delivery this service does not act on.
func ignoredResponse(reason string) *WebhookResponse {
	return &WebhookResponse{
		Status:  utils.StringPtr("ignored"),
		Message: utils.StringPtr(reason),
	}
}

// getRecallWebhookSubject maps Recall event types to NATS subjects
func getRecallWebhookSubject(eventType string) string {
	eventSubjectMap := map[string]string{
		models.BotStatusChangeEventType:   models.RecallWebhookBotStatusChangeSubject,
		models.BotTranscriptionEventType:  models.RecallWebhookBotTranscriptionSubject,
		models.BotRecordingReadyEventType: models.RecallWebhookBotRecordingReadySubject,
		models.BotDoneEventType:           models.RecallWebhookBotDoneSubject,
	}

	return eventSubjectMap[eventType]
}
