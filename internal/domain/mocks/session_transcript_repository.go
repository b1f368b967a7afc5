// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockSessionTranscriptRepository implements SessionTranscriptRepository for testing
type MockSessionTranscriptRepository struct {
	mock.Mock
}

func (m *MockSessionTranscriptRepository) Save(ctx context.Context, transcript *models.SessionTranscript) error {
	args := m.Called(ctx, transcript)
	return args.Error(0)
}

func (m *MockSessionTranscriptRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	args := m.Called(ctx, sessionUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionTranscriptRepository) Get(ctx context.Context, sessionUID string) (*models.SessionTranscript, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionTranscript), args.Error(1)
}
