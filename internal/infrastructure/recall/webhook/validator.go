// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package webhook validates inbound Recall webhook requests.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// RecallWebhookValidator handles validation of Recall webhook signatures
type RecallWebhookValidator struct {
	SigningSecret string
}

// NewRecallWebhookValidator creates a new Recall webhook validator
func NewRecallWebhookValidator(signingSecret string) *RecallWebhookValidator {
	return &RecallWebhookValidator{
		SigningSecret: signingSecret,
	}
}

// ValidateSignature validates the Recall webhook signature
func (v *RecallWebhookValidator) ValidateSignature(body []byte, signature, timestamp string) error {
	if v.SigningSecret == "" {
		return fmt.Errorf("webhook signing secret not configured")
	}

	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}

	if timestamp == "" {
		return fmt.Errorf("missing webhook timestamp")
	}

	// Create the message to sign: v0:timestamp:body
	message := fmt.Sprintf("v0:%s:%s", timestamp, body)

	// Calculate HMAC-SHA256
	h := hmac.New(sha256.New, []byte(v.SigningSecret))
	h.Write([]byte(message))
	expectedSignature := "v0=" + hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		slog.Error("recall webhook signature does not match expected signature")
		return fmt.Errorf("recall webhook signature does not match expected signature")
	}

	return nil
}

// IsValidEvent checks if the event type is supported
func (v *RecallWebhookValidator) IsValidEvent(eventType string) bool {
	validEvents := map[string]bool{
		models.BotStatusChangeEventType:   true,
		models.BotTranscriptionEventType:  true,
		models.BotRecordingReadyEventType: true,
		models.BotDoneEventType:           true,
	}

	return validEvents[eventType]
}
