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

// setupSessionServiceForTesting creates a SessionService with mock dependencies for testing
func setupSessionServiceForTesting() (*SessionService, *mocks.MockSessionRepository, *mocks.MockMessageBuilder) {
	mockSessionRepo := new(mocks.MockSessionRepository)
	mockBuilder := new(mocks.MockMessageBuilder)

	service := NewSessionService(mockSessionRepo, mockBuilder, ServiceConfig{})

	return service, mockSessionRepo, mockBuilder
}

func TestSessionService_ServiceReady(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *SessionService
		expected bool
	}{
		{
			name: "service ready with all dependencies",
			setup: func() *SessionService {
				service, _, _ := setupSessionServiceForTesting()
				return service
			},
			expected: true,
		},
		{
			name: "service not ready - missing session repository",
			setup: func() *SessionService {
				service, _, _ := setupSessionServiceForTesting()
				service.sessionRepository = nil
				return service
			},
			expected: false,
		},
		{
			name: "service not ready - missing message sender",
			setup: func() *SessionService {
				service, _, _ := setupSessionServiceForTesting()
				service.messageSender = nil
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

func TestSessionService_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the session", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		mockSessionRepo.On("Get", mock.Anything, "session-1").Return(session, nil)

		got, err := service.GetSession(ctx, "session-1")

		require.NoError(t, err)
		assert.Equal(t, session, got)
	})

	t.Run("missing UID is a validation error", func(t *testing.T) {
		service, _, _ := setupSessionServiceForTesting()

		_, err := service.GetSession(ctx, "")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("repository error surfaces", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		mockSessionRepo.On("Get", mock.Anything, "session-404").
			Return(nil, domain.NewNotFoundError("session not found"))

		_, err := service.GetSession(ctx, "session-404")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestSessionService_GetSessionWithRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the session and revision", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1"}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(session, uint64(12), nil)

		got, revision, err := service.GetSessionWithRevision(ctx, "session-1")

		require.NoError(t, err)
		assert.Equal(t, session, got)
		assert.Equal(t, uint64(12), revision)
	})

	t.Run("missing UID is a validation error", func(t *testing.T) {
		service, _, _ := setupSessionServiceForTesting()

		_, _, err := service.GetSessionWithRevision(ctx, "")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestSessionService_UpsertScheduledSession(t *testing.T) {
	ctx := context.Background()

	booking := func() *models.ScheduledSession {
		return &models.ScheduledSession{
			UID:                "session-1",
			ChildUID:           "child-1",
			ChildName:          "Emma",
			CoachUID:           "coach-1",
			CoachName:          "Ms. Rivera",
			Title:              "Math Tutoring - Emma",
			ScheduledStartTime: time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC),
			DurationMinutes:    30,
			Timezone:           "America/New_York",
		}
	}

	t.Run("creates the session on first sight", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(false, nil)
		mockSessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.ScheduledSession) bool {
			return s.UID == "session-1" && s.Status == models.SessionStatusScheduled
		})).Return(nil)
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionCreated, mock.Anything).Return(nil)

		got, changed, err := service.UpsertScheduledSession(ctx, booking())

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.SessionStatusScheduled, got.Status)
		assert.Equal(t, "Math Tutoring - Emma", got.Title)
		mockSessionRepo.AssertExpectations(t)
		mockBuilder.AssertExpectations(t)
	})

	t.Run("merges booking fields into an existing session", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		stored := &models.ScheduledSession{
			UID:                "session-1",
			ChildUID:           "child-1",
			CoachUID:           "coach-1",
			CoachName:          "Ms. Rivera",
			Title:              "Math Tutoring - Emma",
			ScheduledStartTime: time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC),
			DurationMinutes:    30,
			Status:             models.SessionStatusInProgress,
		}
		rebooked := booking()
		rebooked.Title = "Algebra Tutoring - Emma"
		rebooked.ScheduledStartTime = time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)

		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(true, nil)
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(stored, uint64(7), nil)
		mockSessionRepo.On("Update", mock.Anything, stored, uint64(7)).Return(nil)
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)

		got, changed, err := service.UpsertScheduledSession(ctx, rebooked)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Algebra Tutoring - Emma", got.Title)
		assert.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), got.ScheduledStartTime)
		// The pipeline-owned status is never taken from the booking.
		assert.Equal(t, models.SessionStatusInProgress, got.Status)
	})

	t.Run("identical booking is a no-op", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		stored := booking()
		stored.Status = models.SessionStatusScheduled
		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(true, nil)
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(stored, uint64(3), nil)

		_, changed, err := service.UpsertScheduledSession(ctx, booking())

		require.NoError(t, err)
		assert.False(t, changed)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		mockBuilder.AssertNotCalled(t, "SendIndexSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settled session is never edited", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		stored := booking()
		stored.Status = models.SessionStatusCompleted
		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(true, nil)
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(stored, uint64(9), nil)

		rebooked := booking()
		rebooked.Title = "Algebra Tutoring - Emma"

		got, changed, err := service.UpsertScheduledSession(ctx, rebooked)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "Math Tutoring - Emma", got.Title)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("create race falls back to merging", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		winner := booking()
		winner.Status = models.SessionStatusScheduled
		winner.Title = "Stale Title"

		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(false, nil).Once()
		mockSessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(domain.NewConflictError("key exists")).Once()
		mockSessionRepo.On("Exists", mock.Anything, "session-1").Return(true, nil).Once()
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(winner, uint64(1), nil)
		mockSessionRepo.On("Update", mock.Anything, winner, uint64(1)).Return(nil)
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)

		got, changed, err := service.UpsertScheduledSession(ctx, booking())

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Math Tutoring - Emma", got.Title)
		mockSessionRepo.AssertExpectations(t)
	})

	t.Run("missing UID is a validation error", func(t *testing.T) {
		service, _, _ := setupSessionServiceForTesting()

		_, _, err := service.UpsertScheduledSession(ctx, &models.ScheduledSession{})

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestSessionService_AdvanceSessionStatus(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 16, 2, 0, 0, time.UTC)

	t.Run("advances scheduled to in_progress and stamps StartedAt", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(session, uint64(4), nil)
		mockSessionRepo.On("Update", mock.Anything, session, uint64(4)).Return(nil)
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)

		got, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusInProgress, at)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.SessionStatusInProgress, got.Status)
		require.NotNil(t, got.StartedAt)
		assert.Equal(t, at, *got.StartedAt)
		mockBuilder.AssertNumberOfCalls(t, "SendIndexSession", 1)
	})

	t.Run("duplicate or out-of-order status is a no-op", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusInProgress}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(session, uint64(4), nil)

		got, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusBotJoining, at)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.SessionStatusInProgress, got.Status)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		mockBuilder.AssertNotCalled(t, "SendIndexSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("terminal status is never overwritten", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusCompleted}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(session, uint64(9), nil)

		_, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusInProgress, at)

		require.NoError(t, err)
		assert.False(t, changed)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("revision conflict re-reads and reapplies", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		first := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		second := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusBotJoining}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(first, uint64(4), nil).Once()
		mockSessionRepo.On("Update", mock.Anything, mock.Anything, uint64(4)).
			Return(domain.NewConflictError("revision mismatch")).Once()
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(second, uint64(5), nil).Once()
		mockSessionRepo.On("Update", mock.Anything, mock.Anything, uint64(5)).Return(nil).Once()
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)

		got, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusInProgress, at)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.SessionStatusInProgress, got.Status)
		mockSessionRepo.AssertExpectations(t)
	})

	t.Run("unresolved contention returns the conflict", func(t *testing.T) {
		service, mockSessionRepo, _ := setupSessionServiceForTesting()

		// Each read must hand back a pre-transition record, as the store
		// would, so every attempt reapplies and hits the conflict again.
		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").
			Run(func(args mock.Arguments) { session.Status = models.SessionStatusScheduled }).
			Return(session, uint64(4), nil)
		mockSessionRepo.On("Update", mock.Anything, mock.Anything, uint64(4)).
			Return(domain.NewConflictError("revision mismatch"))

		_, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusInProgress, at)

		require.Error(t, err)
		assert.False(t, changed)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
		mockSessionRepo.AssertNumberOfCalls(t, "GetWithRevision", statusUpdateAttempts)
	})

	t.Run("index failure does not fail the operation", func(t *testing.T) {
		service, mockSessionRepo, mockBuilder := setupSessionServiceForTesting()

		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		mockSessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(session, uint64(4), nil)
		mockSessionRepo.On("Update", mock.Anything, session, uint64(4)).Return(nil)
		mockBuilder.On("SendIndexSession", mock.Anything, models.ActionUpdated, mock.Anything).
			Return(domain.NewUnavailableError("nats unavailable"))

		_, changed, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatusBotJoining, at)

		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("invalid status is a validation error", func(t *testing.T) {
		service, _, _ := setupSessionServiceForTesting()

		_, _, err := service.AdvanceSessionStatus(ctx, "session-1", models.SessionStatus("exploded"), at)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}
