// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.ScheduledSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	args := m.Called(ctx, sessionUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx context.Context, sessionUID string) (*models.ScheduledSession, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduledSession), args.Error(1)
}

func (m *MockSessionRepository) GetWithRevision(ctx context.Context, sessionUID string) (*models.ScheduledSession, uint64, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.ScheduledSession), args.Get(1).(uint64), args.Error(2)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.ScheduledSession, revision uint64) error {
	args := m.Called(ctx, session, revision)
	return args.Error(0)
}

func (m *MockSessionRepository) ListActive(ctx context.Context) ([]*models.ScheduledSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScheduledSession), args.Error(1)
}
