// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockBotSessionRepository implements BotSessionRepository for testing
type MockBotSessionRepository struct {
	mock.Mock
}

func (m *MockBotSessionRepository) Create(ctx context.Context, botSession *models.BotSession) error {
	args := m.Called(ctx, botSession)
	return args.Error(0)
}

func (m *MockBotSessionRepository) Exists(ctx context.Context, botID string) (bool, error) {
	args := m.Called(ctx, botID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBotSessionRepository) Get(ctx context.Context, botID string) (*models.BotSession, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotSession), args.Error(1)
}

func (m *MockBotSessionRepository) GetWithRevision(ctx context.Context, botID string) (*models.BotSession, uint64, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.BotSession), args.Get(1).(uint64), args.Error(2)
}

func (m *MockBotSessionRepository) Update(ctx context.Context, botSession *models.BotSession, revision uint64) error {
	args := m.Called(ctx, botSession, revision)
	return args.Error(0)
}
