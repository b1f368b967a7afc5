// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

var allSessionStatuses = []models.SessionStatus{
	models.SessionStatusScheduled,
	models.SessionStatusBotJoining,
	models.SessionStatusInProgress,
	models.SessionStatusCompleted,
	models.SessionStatusNoShow,
	models.SessionStatusCoachNoShow,
	models.SessionStatusPartial,
	models.SessionStatusCancelled,
	models.SessionStatusBotError,
}

func TestCoarseStatusForBot(t *testing.T) {
	tests := []struct {
		name           string
		providerStatus string
		expectedStatus models.SessionStatus
		expectedOK     bool
	}{
		{
			name:           "joining call drives bot_joining",
			providerStatus: models.BotStatusJoiningCall,
			expectedStatus: models.SessionStatusBotJoining,
			expectedOK:     true,
		},
		{
			name:           "waiting room drives bot_joining",
			providerStatus: models.BotStatusInWaitingRoom,
			expectedStatus: models.SessionStatusBotJoining,
			expectedOK:     true,
		},
		{
			name:           "in call not recording drives in_progress",
			providerStatus: models.BotStatusInCallNotRecording,
			expectedStatus: models.SessionStatusInProgress,
			expectedOK:     true,
		},
		{
			name:           "in call recording drives in_progress",
			providerStatus: models.BotStatusInCallRecording,
			expectedStatus: models.SessionStatusInProgress,
			expectedOK:     true,
		},
		{
			name:           "fatal drives bot_error",
			providerStatus: models.BotStatusFatal,
			expectedStatus: models.SessionStatusBotError,
			expectedOK:     true,
		},
		{
			name:           "call_ended does not move the session",
			providerStatus: models.BotStatusCallEnded,
			expectedOK:     false,
		},
		{
			name:           "done does not move the session",
			providerStatus: models.BotStatusDone,
			expectedOK:     false,
		},
		{
			name:           "unknown status is ignored",
			providerStatus: "rebooting",
			expectedOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := CoarseStatusForBot(tt.providerStatus)
			assert.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				assert.Equal(t, tt.expectedStatus, status)
			}
		})
	}
}

func TestApplyStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		current         models.SessionStatus
		next            models.SessionStatus
		expectedChanged bool
		expectedStatus  models.SessionStatus
	}{
		{
			name:            "scheduled moves to bot_joining",
			current:         models.SessionStatusScheduled,
			next:            models.SessionStatusBotJoining,
			expectedChanged: true,
			expectedStatus:  models.SessionStatusBotJoining,
		},
		{
			name:            "bot_joining moves to in_progress",
			current:         models.SessionStatusBotJoining,
			next:            models.SessionStatusInProgress,
			expectedChanged: true,
			expectedStatus:  models.SessionStatusInProgress,
		},
		{
			name:            "scheduled may jump straight to a terminal status",
			current:         models.SessionStatusScheduled,
			next:            models.SessionStatusNoShow,
			expectedChanged: true,
			expectedStatus:  models.SessionStatusNoShow,
		},
		{
			name:            "duplicate delivery is a no-op",
			current:         models.SessionStatusInProgress,
			next:            models.SessionStatusInProgress,
			expectedChanged: false,
			expectedStatus:  models.SessionStatusInProgress,
		},
		{
			name:            "late joining event never regresses in_progress",
			current:         models.SessionStatusInProgress,
			next:            models.SessionStatusBotJoining,
			expectedChanged: false,
			expectedStatus:  models.SessionStatusInProgress,
		},
		{
			name:            "terminal status is never overwritten by another terminal",
			current:         models.SessionStatusNoShow,
			next:            models.SessionStatusCompleted,
			expectedChanged: false,
			expectedStatus:  models.SessionStatusNoShow,
		},
		{
			name:            "terminal status is never overwritten by an earlier state",
			current:         models.SessionStatusCompleted,
			next:            models.SessionStatusInProgress,
			expectedChanged: false,
			expectedStatus:  models.SessionStatusCompleted,
		},
		{
			name:            "invalid next status is rejected",
			current:         models.SessionStatusScheduled,
			next:            models.SessionStatus("exploded"),
			expectedChanged: false,
			expectedStatus:  models.SessionStatusScheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &models.ScheduledSession{UID: "session-1", Status: tt.current}
			changed := ApplyStatus(session, tt.next, now)
			assert.Equal(t, tt.expectedChanged, changed)
			assert.Equal(t, tt.expectedStatus, session.Status)
		})
	}

	t.Run("nil session is a no-op", func(t *testing.T) {
		assert.False(t, ApplyStatus(nil, models.SessionStatusInProgress, now))
	})
}

func TestApplyStatusTimestamps(t *testing.T) {
	start := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

	t.Run("entering in_progress stamps StartedAt once", func(t *testing.T) {
		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}

		require.True(t, ApplyStatus(session, models.SessionStatusInProgress, start))
		require.NotNil(t, session.StartedAt)
		assert.Equal(t, start, *session.StartedAt)

		// A later duplicate must not move the stamp.
		ApplyStatus(session, models.SessionStatusInProgress, start.Add(5*time.Minute))
		assert.Equal(t, start, *session.StartedAt)
	})

	t.Run("entering a terminal status stamps CompletedAt", func(t *testing.T) {
		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusInProgress}
		end := start.Add(30 * time.Minute)

		require.True(t, ApplyStatus(session, models.SessionStatusCompleted, end))
		require.NotNil(t, session.CompletedAt)
		assert.Equal(t, end, *session.CompletedAt)
	})

	t.Run("existing StartedAt survives the transition", func(t *testing.T) {
		earlier := start.Add(-2 * time.Minute)
		session := &models.ScheduledSession{
			UID:       "session-1",
			Status:    models.SessionStatusBotJoining,
			StartedAt: &earlier,
		}

		require.True(t, ApplyStatus(session, models.SessionStatusInProgress, start))
		assert.Equal(t, earlier, *session.StartedAt)
	})
}

func TestApplyOutcome(t *testing.T) {
	now := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)

	t.Run("records the outcome reason on transition", func(t *testing.T) {
		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusInProgress}
		outcome := models.SessionOutcome{Status: models.SessionStatusPartial, Reason: "Session too short (3 min)"}

		require.True(t, ApplyOutcome(session, outcome, now))
		assert.Equal(t, models.SessionStatusPartial, session.Status)
		assert.Equal(t, "Session too short (3 min)", session.StatusReason)
		require.NotNil(t, session.CompletedAt)
	})

	t.Run("blocked transition keeps the earlier reason", func(t *testing.T) {
		session := &models.ScheduledSession{
			UID:          "session-1",
			Status:       models.SessionStatusNoShow,
			StatusReason: "No one joined the meeting",
		}
		outcome := models.SessionOutcome{Status: models.SessionStatusCompleted}

		require.False(t, ApplyOutcome(session, outcome, now))
		assert.Equal(t, models.SessionStatusNoShow, session.Status)
		assert.Equal(t, "No one joined the meeting", session.StatusReason)
	})
}

// Processing the same status twice must leave the session exactly as a
// single application would.
func TestApplyStatusIdempotence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		initial := rapid.SampledFrom(allSessionStatuses).Draw(rt, "initial")
		next := rapid.SampledFrom(allSessionStatuses).Draw(rt, "next")

		at := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
		once := &models.ScheduledSession{UID: "session-1", Status: initial}
		twice := &models.ScheduledSession{UID: "session-1", Status: initial}

		ApplyStatus(once, next, at)
		ApplyStatus(twice, next, at)
		if changed := ApplyStatus(twice, next, at.Add(time.Minute)); changed {
			rt.Fatalf("second application of %q over %q reported a change", next, initial)
		}

		sameTime := func(a, b *time.Time) bool {
			if a == nil || b == nil {
				return a == b
			}
			return a.Equal(*b)
		}
		if once.Status != twice.Status || once.StatusReason != twice.StatusReason ||
			!sameTime(once.StartedAt, twice.StartedAt) || !sameTime(once.CompletedAt, twice.CompletedAt) {
			rt.Fatalf("replayed status diverged: %+v vs %+v", once, twice)
		}
	})
}

// No delivery order may downgrade a terminal status, and the stored status
// never moves backwards.
func TestApplyStatusMonotonicity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		session := &models.ScheduledSession{UID: "session-1", Status: models.SessionStatusScheduled}
		at := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

		events := rapid.IntRange(1, 12).Draw(rt, "events")
		var firstTerminal models.SessionStatus

		for i := 0; i < events; i++ {
			next := rapid.SampledFrom(allSessionStatuses).Draw(rt, fmt.Sprintf("status%d", i))
			previous := session.Status

			changed := ApplyStatus(session, next, at.Add(time.Duration(i)*time.Minute))
			if !changed && session.Status != previous {
				rt.Fatalf("no-op transition mutated status from %q to %q", previous, session.Status)
			}
			if session.Status.LessTerminalThan(previous) {
				rt.Fatalf("status moved backwards from %q to %q", previous, session.Status)
			}
			if firstTerminal == "" && session.Status.IsTerminal() {
				firstTerminal = session.Status
			}
		}

		if firstTerminal != "" && session.Status != firstTerminal {
			rt.Fatalf("terminal status %q was overwritten with %q", firstTerminal, session.Status)
		}
	})
}
