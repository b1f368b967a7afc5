// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"

	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/pkg/constants"
)

// ClassifyOutcome derives the terminal outcome of a session from its
// attendance summary, transcript length, and recording duration. The ladder
// is evaluated strictly in order: participant checks first, then duration,
// then transcript plausibility. Later branches exist to catch what the
// earlier strict checks miss, such as a long but silent recording.
func ClassifyOutcome(attendance models.AttendanceInfo, transcriptChars int, durationSeconds float64) models.SessionOutcome {
	durationMinutes := int(durationSeconds / 60)

	if attendance.ParticipantCount == 0 {
		return models.SessionOutcome{
			Status: models.SessionStatusNoShow,
			Reason: "No one joined the meeting",
		}
	}

	if attendance.ParticipantCount == 1 {
		return classifySingleParticipant(attendance)
	}

	if durationMinutes < constants.ShortSessionMinutes {
		return models.SessionOutcome{
			Status: models.SessionStatusPartial,
			Reason: fmt.Sprintf("Session too short (%d min)", durationMinutes),
		}
	}

	if durationMinutes < constants.ValidSessionMinutes {
		return models.SessionOutcome{
			Status: models.SessionStatusPartial,
			Reason: fmt.Sprintf("Session was brief (%d min)", durationMinutes),
		}
	}

	if transcriptChars < constants.MinTranscriptChars {
		return models.SessionOutcome{
			Status: models.SessionStatusPartial,
			Reason: "Recording/transcription issue",
		}
	}

	return models.SessionOutcome{Status: models.SessionStatusCompleted}
}

// classifySingleParticipant resolves who the lone participant was. A
// coach-like participant means the family never joined; a named participant
// judged not coach-like means the coach never joined; a nameless, unflagged
// participant is unresolvable and recorded as a plain no-show for review.
func classifySingleParticipant(attendance models.AttendanceInfo) models.SessionOutcome {
	if attendance.CoachJoined {
		return models.SessionOutcome{
			Status: models.SessionStatusNoShow,
			Reason: "Child/parent did not join",
		}
	}

	if len(attendance.ParticipantNames) > 0 {
		return models.SessionOutcome{
			Status: models.SessionStatusCoachNoShow,
			Reason: "Coach did not join",
		}
	}

	return models.SessionOutcome{
		Status: models.SessionStatusNoShow,
		Reason: "Only one participant joined",
	}
}
