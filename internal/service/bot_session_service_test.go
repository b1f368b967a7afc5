// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/mocks"
	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// setupBotSessionServiceForTesting creates a BotSessionService with mock dependencies for testing
func setupBotSessionServiceForTesting() (*BotSessionService, *mocks.MockBotSessionRepository, *mocks.MockSessionRepository) {
	mockBotSessionRepo := new(mocks.MockBotSessionRepository)
	mockSessionRepo := new(mocks.MockSessionRepository)

	service := NewBotSessionService(mockBotSessionRepo, mockSessionRepo, ServiceConfig{})

	return service, mockBotSessionRepo, mockSessionRepo
}

func TestBotSessionService_ServiceReady(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *BotSessionService
		expected bool
	}{
		{
			name: "service ready with all dependencies",
			setup: func() *BotSessionService {
				service, _, _ := setupBotSessionServiceForTesting()
				return service
			},
			expected: true,
		},
		{
			name: "service not ready - missing bot session repository",
			setup: func() *BotSessionService {
				service, _, _ := setupBotSessionServiceForTesting()
				service.botSessionRepository = nil
				return service
			},
			expected: false,
		},
		{
			name: "service not ready - missing session repository",
			setup: func() *BotSessionService {
				service, _, _ := setupBotSessionServiceForTesting()
				service.sessionRepository = nil
				return service
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := tt.setup()
			assert.Equal(t, tt.expected, service.ServiceReady())
		})
	}
}

func TestBotSessionService_EnsureBotSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing record with revision", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		existing := &models.BotSession{UID: "bs-1", BotID: "bot-abc", SessionUID: "session-1"}
		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-abc").Return(existing, uint64(7), nil)

		botSession, revision, err := service.EnsureBotSession(ctx, "bot-abc")

		require.NoError(t, err)
		assert.Equal(t, existing, botSession)
		assert.Equal(t, uint64(7), revision)
		mockBotSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("first event creates the record", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		created := &models.BotSession{UID: "bs-1", BotID: "bot-new"}
		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-new").
			Return(nil, uint64(0), domain.NewNotFoundError("bot session not found")).Once()
		mockBotSessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(bs *models.BotSession) bool {
			return bs.BotID == "bot-new"
		})).Return(nil).Once()
		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-new").
			Return(created, uint64(1), nil).Once()

		botSession, revision, err := service.EnsureBotSession(ctx, "bot-new")

		require.NoError(t, err)
		assert.Equal(t, created, botSession)
		assert.Equal(t, uint64(1), revision)
		mockBotSessionRepo.AssertExpectations(t)
	})

	t.Run("concurrent create loses the race and reads the winner", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		winner := &models.BotSession{UID: "bs-2", BotID: "bot-race"}
		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-race").
			Return(nil, uint64(0), domain.NewNotFoundError("bot session not found")).Once()
		mockBotSessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(domain.NewConflictError("bot session already exists")).Once()
		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-race").
			Return(winner, uint64(1), nil).Once()

		botSession, revision, err := service.EnsureBotSession(ctx, "bot-race")

		require.NoError(t, err)
		assert.Equal(t, winner, botSession)
		assert.Equal(t, uint64(1), revision)
		mockBotSessionRepo.AssertExpectations(t)
	})

	t.Run("create error surfaces", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-err").
			Return(nil, uint64(0), domain.NewNotFoundError("bot session not found")).Once()
		mockBotSessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(domain.NewInternalError("kv unavailable")).Once()

		botSession, _, err := service.EnsureBotSession(ctx, "bot-err")

		require.Error(t, err)
		assert.Nil(t, botSession)
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})

	t.Run("get error other than not found surfaces", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		mockBotSessionRepo.On("GetWithRevision", mock.Anything, "bot-down").
			Return(nil, uint64(0), domain.NewUnavailableError("store unavailable")).Once()

		_, _, err := service.EnsureBotSession(ctx, "bot-down")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
		mockBotSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing bot id is a validation error", func(t *testing.T) {
		service, _, _ := setupBotSessionServiceForTesting()

		_, _, err := service.EnsureBotSession(ctx, "")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("service not ready", func(t *testing.T) {
		service, _, _ := setupBotSessionServiceForTesting()
		service.botSessionRepository = nil

		_, _, err := service.EnsureBotSession(ctx, "bot-abc")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}

func TestBotSessionService_UpdateBotSession(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the record", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc"}
		mockBotSessionRepo.On("Update", mock.Anything, botSession, uint64(3)).Return(nil)

		err := service.UpdateBotSession(ctx, botSession, 3)

		require.NoError(t, err)
		mockBotSessionRepo.AssertExpectations(t)
	})

	t.Run("revision conflict is returned to the caller", func(t *testing.T) {
		service, mockBotSessionRepo, _ := setupBotSessionServiceForTesting()

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc"}
		mockBotSessionRepo.On("Update", mock.Anything, botSession, uint64(3)).
			Return(domain.NewConflictError("revision mismatch"))

		err := service.UpdateBotSession(ctx, botSession, 3)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("nil bot session is a validation error", func(t *testing.T) {
		service, _, _ := setupBotSessionServiceForTesting()

		err := service.UpdateBotSession(ctx, nil, 3)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestBotSessionService_ResolveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved bot reads its mapped session", func(t *testing.T) {
		service, _, mockSessionRepo := setupBotSessionServiceForTesting()

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc", SessionUID: "session-1"}
		session := &models.ScheduledSession{UID: "session-1", ChildUID: "child-1"}
		mockSessionRepo.On("Get", mock.Anything, "session-1").Return(session, nil)

		resolved, err := service.ResolveSession(ctx, botSession, nil)

		require.NoError(t, err)
		assert.Equal(t, session, resolved)
		mockSessionRepo.AssertNotCalled(t, "ListActive", mock.Anything)
	})

	t.Run("mapping to a missing session is unresolvable", func(t *testing.T) {
		service, _, mockSessionRepo := setupBotSessionServiceForTesting()

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc", SessionUID: "session-gone"}
		mockSessionRepo.On("Get", mock.Anything, "session-gone").
			Return(nil, domain.NewNotFoundError("session not found"))

		resolved, err := service.ResolveSession(ctx, botSession, nil)

		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("unmapped bot matches an active session by title", func(t *testing.T) {
		service, _, mockSessionRepo := setupBotSessionServiceForTesting()

		start := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
		candidates := []*models.ScheduledSession{
			{UID: "session-1", ChildUID: "child-1", CoachUID: "coach-1", ChildName: "Emma Watson", ScheduledStartTime: start},
			{UID: "session-2", ChildUID: "child-2", CoachUID: "coach-2", ChildName: "Liam Brown", ScheduledStartTime: start.Add(2 * time.Hour)},
		}
		mockSessionRepo.On("ListActive", mock.Anything).Return(candidates, nil)

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc"}
		meta := &models.MeetingMetadata{
			Title:     "Math Tutoring - Emma",
			StartTime: &start,
		}

		resolved, err := service.ResolveSession(ctx, botSession, meta)

		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, "session-1", resolved.UID)
		assert.Equal(t, "session-1", botSession.SessionUID)
		assert.Equal(t, "child-1", botSession.ChildUID)
		assert.Equal(t, "coach-1", botSession.CoachUID)
	})

	t.Run("no candidate close enough leaves the bot unresolved", func(t *testing.T) {
		service, _, mockSessionRepo := setupBotSessionServiceForTesting()

		mockSessionRepo.On("ListActive", mock.Anything).Return([]*models.ScheduledSession{}, nil)

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc"}
		start := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
		meta := &models.MeetingMetadata{Title: "Untitled meeting", StartTime: &start}

		resolved, err := service.ResolveSession(ctx, botSession, meta)

		require.NoError(t, err)
		assert.Nil(t, resolved)
		assert.Empty(t, botSession.SessionUID)
	})

	t.Run("list error surfaces", func(t *testing.T) {
		service, _, mockSessionRepo := setupBotSessionServiceForTesting()

		mockSessionRepo.On("ListActive", mock.Anything).
			Return(nil, domain.NewUnavailableError("store unavailable"))

		botSession := &models.BotSession{UID: "bs-1", BotID: "bot-abc"}

		_, err := service.ResolveSession(ctx, botSession, &models.MeetingMetadata{})

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("nil bot session is a validation error", func(t *testing.T) {
		service, _, _ := setupBotSessionServiceForTesting()

		_, err := service.ResolveSession(ctx, nil, nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}
