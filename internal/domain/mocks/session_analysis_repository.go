// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockSessionAnalysisRepository implements SessionAnalysisRepository for testing
type MockSessionAnalysisRepository struct {
	mock.Mock
}

func (m *MockSessionAnalysisRepository) Create(ctx context.Context, analysis *models.SessionAnalysis) error {
	args := m.Called(ctx, analysis)
	return args.Error(0)
}

func (m *MockSessionAnalysisRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	args := m.Called(ctx, sessionUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionAnalysisRepository) Get(ctx context.Context, sessionUID string) (*models.SessionAnalysis, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionAnalysis), args.Error(1)
}
