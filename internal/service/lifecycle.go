// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// CoarseStatusForBot maps a provider bot status onto the session coarse
// status it drives. The second return is false for provider statuses that do
// not move the session on their own (call_ended and done are resolved by the
// bot-done path, which knows the roster and recording).
func CoarseStatusForBot(providerStatus string) (models.SessionStatus, bool) {
	switch providerStatus {
	case models.BotStatusJoiningCall, models.BotStatusInWaitingRoom:
		return models.SessionStatusBotJoining, true
	case models.BotStatusInCallNotRecording, models.BotStatusInCallRecording:
		return models.SessionStatusInProgress, true
	case models.BotStatusFatal:
		return models.SessionStatusBotError, true
	}
	return "", false
}

// ApplyStatus is the single authoritative transition function for a session's
// coarse status. It applies next only when it moves the session forward:
// a terminal status is never overwritten, and duplicate or out-of-order
// deliveries of an earlier status are no-ops. It returns whether the session
// changed.
//
// Entering in_progress stamps StartedAt if absent; entering any terminal
// status stamps CompletedAt if absent.
func ApplyStatus(session *models.ScheduledSession, next models.SessionStatus, at time.Time) bool {
	if session == nil || !next.IsValid() {
		return false
	}

	if !session.Status.LessTerminalThan(next) {
		return false
	}

	session.Status = next

	switch {
	case next == models.SessionStatusInProgress && session.StartedAt == nil:
		started := at
		session.StartedAt = &started
	case next.IsTerminal() && session.CompletedAt == nil:
		completed := at
		session.CompletedAt = &completed
	}

	return true
}

// ApplyOutcome applies a terminal outcome to the session, recording its
// reason when the transition lands. The monotonicity rule of ApplyStatus
// still holds, so a late outcome never overwrites an earlier terminal state.
func ApplyOutcome(session *models.ScheduledSession, outcome models.SessionOutcome, at time.Time) bool {
	if !ApplyStatus(session, outcome.Status, at) {
		return false
	}
	session.StatusReason = outcome.Reason
	return true
}
