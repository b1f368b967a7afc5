// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"strings"

	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/pkg/constants"
)

// coachNameMarkers are substrings that mark a roster name as belonging to a
// coach or to the organization rather than to a family.
var coachNameMarkers = []string{"coach", "tutor", "learnloop"}

// AnalyzeAttendance classifies the final meeting roster into an attendance
// summary. knownCoachName is the coach display name from the scheduling
// system when the session is resolved, empty otherwise; a roster name that
// matches it counts as coach-like ahead of the provider heuristics.
//
// The summary feeds the outcome classifier; the classifier applies the
// business thresholds, this only records what the roster shows.
func AnalyzeAttendance(participants []models.RosterParticipant, durationSeconds float64, knownCoachName string) models.AttendanceInfo {
	info := models.AttendanceInfo{
		ParticipantCount: len(participants),
		DurationMinutes:  int(durationSeconds / 60),
	}

	allHosts := len(participants) > 0
	for _, participant := range participants {
		if participant.Name != "" {
			info.ParticipantNames = append(info.ParticipantNames, participant.Name)
		}
		if isCoachLike(participant, knownCoachName) {
			info.CoachJoined = true
		}
		if !participant.IsHost {
			allHosts = false
		}
	}

	info.ChildJoined = info.ParticipantCount >= constants.MinSessionParticipants && !allHosts
	info.IsValidSession = info.ParticipantCount >= constants.MinSessionParticipants &&
		info.DurationMinutes >= constants.ValidSessionMinutes

	return info
}

// isCoachLike reports whether a roster participant looks like the coaching
// side of the call. The provider payload has no role field, so this stacks
// heuristics: a match against the scheduling system's coach name, the
// provider host flag, a coach/organization marker in the name, or an
// email-shaped name (staff meeting identities are often email addresses).
func isCoachLike(participant models.RosterParticipant, knownCoachName string) bool {
	name := strings.TrimSpace(participant.Name)

	if knownCoachName != "" && name != "" && strings.EqualFold(name, strings.TrimSpace(knownCoachName)) {
		return true
	}

	if participant.IsHost {
		return true
	}

	lower := strings.ToLower(name)
	for _, marker := range coachNameMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return isEmailShaped(name)
}

// isEmailShaped reports whether a display name looks like an email address.
func isEmailShaped(name string) bool {
	at := strings.Index(name, "@")
	if at <= 0 || at == len(name)-1 {
		return false
	}
	return strings.Contains(name[at+1:], ".")
}
