// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// SessionIndexSender handles search-index updates for session records.
type SessionIndexSender interface {
	SendIndexSession(ctx context.Context, action models.MessageAction, data models.ScheduledSession) error
}

// SessionAnalysisIndexSender handles search-index updates for session
// analyses.
type SessionAnalysisIndexSender interface {
	SendIndexSessionAnalysis(ctx context.Context, action models.MessageAction, data models.SessionAnalysis) error
}

// SessionNotificationSender hands session events to the notification
// dispatcher. Fire-and-forget from this service's perspective; delivery into
// chat or email happens downstream.
type SessionNotificationSender interface {
	SendSessionNotification(ctx context.Context, data models.SessionNotificationMessage) error
}

// WebhookEventSender handles webhook event publishing.
type WebhookEventSender interface {
	PublishRecallWebhookEvent(ctx context.Context, subject string, message models.RecallWebhookEventMessage) error
}

// SessionOutcomeMessageSender composes the messaging operations of the
// session close-out fan-out: index updates for the session and its analysis
// plus the notification dispatch.
// Use this for services that persist terminal session outcomes.
type SessionOutcomeMessageSender interface {
	SessionIndexSender
	SessionAnalysisIndexSender
	SessionNotificationSender
}

// MessageBuilder composes all messaging capabilities of the service.
type MessageBuilder interface {
	SessionIndexSender
	SessionAnalysisIndexSender
	SessionNotificationSender
	WebhookEventSender
}
