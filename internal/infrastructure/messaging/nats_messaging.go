// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package messaging publishes this service's outbound NATS messages: search
// index updates, notification dispatches, and validated webhook events.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/pkg/constants"
)

// INatsConn is the slice of the NATS connection the MessageBuilder needs.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder builds outbound messages and sends them to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// sendIndexerMessage sends the message to the NATS server for the indexer.
func (m *MessageBuilder) sendIndexerMessage(ctx context.Context, subject string, action models.MessageAction, data []byte, tags []string) error {
	headers := make(map[string]string)
	if authorization, ok := ctx.Value(constants.AuthorizationContextID).(string); ok {
		headers[constants.AuthorizationHeader] = authorization
	} else {
		// Webhook-driven updates carry no user auth context, but the indexer
		// requires an authorization header, so stamp a service identity.
		headers[constants.AuthorizationHeader] = "Bearer session-intel-service"
	}

	var payload any
	switch action {
	case models.ActionCreated, models.ActionUpdated:
		// The data should be a JSON object.
		var jsonData any
		if err := json.Unmarshal(data, &jsonData); err != nil {
			slog.ErrorContext(ctx, "error unmarshalling data into JSON", logging.ErrKey, err, "subject", subject)
			return err
		}

		// Decode the JSON data into a map[string]any since that is what the indexer expects.
		config := mapstructure.DecoderConfig{
			TagName: "json",
			Result:  &payload,
		}
		decoder, err := mapstructure.NewDecoder(&config)
		if err != nil {
			slog.ErrorContext(ctx, "error creating decoder", logging.ErrKey, err, "subject", subject)
			return err
		}
		err = decoder.Decode(jsonData)
		if err != nil {
			slog.ErrorContext(ctx, "error decoding data", logging.ErrKey, err, "subject", subject)
			return err
		}
	case models.ActionDeleted:
		// The data should just be a string of the UID being deleted.
		payload = string(data)
	}

	message := models.SessionIndexerMessage{
		Action:  action,
		Headers: headers,
		Data:    payload,
		Tags:    tags,
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	slog.DebugContext(ctx, "constructed indexer message",
		"subject", subject,
		"action", action,
		"tags_count", len(tags),
	)

	return m.sendMessage(ctx, subject, messageBytes)
}

// SendIndexSession sends the message to the NATS server for session record indexing.
func (m *MessageBuilder) SendIndexSession(ctx context.Context, action models.MessageAction, data models.ScheduledSession) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	return m.sendIndexerMessage(ctx, models.IndexSessionSubject, action, dataBytes, data.Tags())
}

// SendIndexSessionAnalysis sends the message to the NATS server for session analysis indexing.
func (m *MessageBuilder) SendIndexSessionAnalysis(ctx context.Context, action models.MessageAction, data models.SessionAnalysis) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	return m.sendIndexerMessage(ctx, models.IndexSessionAnalysisSubject, action, dataBytes, data.Tags())
}

// SendSessionNotification hands a session event to the notification
// dispatcher. The urgency tier is derived from the kind when unset.
func (m *MessageBuilder) SendSessionNotification(ctx context.Context, data models.SessionNotificationMessage) error {
	if data.Urgency == "" {
		data.Urgency = data.Kind.Urgency()
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	slog.DebugContext(ctx, "sending session notification",
		"kind", data.Kind,
		"urgency", data.Urgency,
		"session_uid", data.SessionUID,
	)

	return m.sendMessage(ctx, models.SessionNotificationSubject, dataBytes)
}

// PublishRecallWebhookEvent publishes a Recall webhook event to NATS for async processing.
func (m *MessageBuilder) PublishRecallWebhookEvent(ctx context.Context, subject string, message models.RecallWebhookEventMessage) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling Recall webhook event into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	slog.DebugContext(ctx, "publishing Recall webhook event to NATS",
		"subject", subject,
		"event_type", message.EventType,
		"event_ts", message.EventTS,
	)

	return m.sendMessage(ctx, subject, messageBytes)
}
