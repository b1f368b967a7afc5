// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockPedagogicalAnalyzer implements PedagogicalAnalyzer for testing
type MockPedagogicalAnalyzer struct {
	mock.Mock
}

func (m *MockPedagogicalAnalyzer) Analyze(ctx context.Context, transcript string, history *models.ChildProfile) (*models.SessionAnalysis, error) {
	args := m.Called(ctx, transcript, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionAnalysis), args.Error(1)
}
