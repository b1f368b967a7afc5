// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendIndexSession(ctx context.Context, action models.MessageAction, data models.ScheduledSession) error {
	args := m.Called(ctx, action, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendIndexSessionAnalysis(ctx context.Context, action models.MessageAction, data models.SessionAnalysis) error {
	args := m.Called(ctx, action, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendSessionNotification(ctx context.Context, data models.SessionNotificationMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) PublishRecallWebhookEvent(ctx context.Context, subject string, message models.RecallWebhookEventMessage) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}
