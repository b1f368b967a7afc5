// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmbeddingGenerator implements EmbeddingGenerator for testing
type MockEmbeddingGenerator struct {
	mock.Mock
}

func (m *MockEmbeddingGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}
