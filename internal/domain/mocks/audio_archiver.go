// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain"
)

// MockAudioArchiver implements AudioArchiver for testing
type MockAudioArchiver struct {
	mock.Mock
}

func (m *MockAudioArchiver) Archive(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchiveResult), args.Error(1)
}
