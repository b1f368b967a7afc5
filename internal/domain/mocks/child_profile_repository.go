// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// MockChildProfileRepository implements ChildProfileRepository for testing
type MockChildProfileRepository struct {
	mock.Mock
}

func (m *MockChildProfileRepository) Get(ctx context.Context, childUID string) (*models.ChildProfile, error) {
	args := m.Called(ctx, childUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChildProfile), args.Error(1)
}

func (m *MockChildProfileRepository) GetWithRevision(ctx context.Context, childUID string) (*models.ChildProfile, uint64, error) {
	args := m.Called(ctx, childUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.ChildProfile), args.Get(1).(uint64), args.Error(2)
}

func (m *MockChildProfileRepository) Save(ctx context.Context, profile *models.ChildProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockChildProfileRepository) Update(ctx context.Context, profile *models.ChildProfile, revision uint64) error {
	args := m.Called(ctx, profile, revision)
	return args.Error(0)
}
