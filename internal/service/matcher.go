// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// sessionMatchWindow is how far a meeting's actual start may drift from a
// session's expected slot and still count as that session.
const sessionMatchWindow = 30 * time.Minute

// MatchSession resolves which scheduled session an unmapped bot's meeting
// belongs to. A meeting title naming exactly one candidate's child or coach
// wins outright; otherwise the candidate whose expected slot lies nearest
// the meeting start within the match window is chosen. Recurring sessions
// expand their RRULE to the occurrence nearest the meeting start. Returns
// nil when no candidate is close enough, which the caller must treat as an
// unresolvable bot.
func MatchSession(meta *models.MeetingMetadata, candidates []*models.ScheduledSession) *models.ScheduledSession {
	if meta == nil || len(candidates) == 0 {
		return nil
	}

	pool := candidates
	var titleMatched []*models.ScheduledSession
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if nameInTitle(meta.Title, candidate.ChildName) || nameInTitle(meta.Title, candidate.CoachName) {
			titleMatched = append(titleMatched, candidate)
		}
	}

	if len(titleMatched) == 1 {
		return titleMatched[0]
	}
	if len(titleMatched) > 1 {
		pool = titleMatched
	}

	if meta.StartTime == nil {
		return nil
	}

	var best *models.ScheduledSession
	bestDrift := sessionMatchWindow + 1
	for _, candidate := range pool {
		if candidate == nil {
			continue
		}
		drift := slotDrift(candidate, *meta.StartTime)
		if drift <= sessionMatchWindow && drift < bestDrift {
			best = candidate
			bestDrift = drift
		}
	}

	return best
}

// nameInTitle reports whether a participant's name, or its leading word,
// appears in the meeting title.
func nameInTitle(title, name string) bool {
	name = strings.TrimSpace(name)
	if title == "" || name == "" {
		return false
	}

	lowerTitle := strings.ToLower(title)
	lowerName := strings.ToLower(name)
	if strings.Contains(lowerTitle, lowerName) {
		return true
	}

	first := strings.Fields(lowerName)[0]
	return len(first) >= 3 && strings.Contains(lowerTitle, first)
}

// slotDrift is the absolute distance between the meeting start and the
// session's nearest expected slot.
func slotDrift(session *models.ScheduledSession, meetingStart time.Time) time.Duration {
	expected := nearestExpectedSlot(session, meetingStart)
	drift := meetingStart.Sub(expected)
	if drift < 0 {
		drift = -drift
	}
	return drift
}

// nearestExpectedSlot returns the session occurrence closest to the given
// time. One-off sessions have a single slot; recurring sessions expand
// their RRULE around the given time. A malformed RRULE degrades to the
// booked start time rather than failing the match.
func nearestExpectedSlot(session *models.ScheduledSession, around time.Time) time.Time {
	if session.Recurrence == "" {
		return session.ScheduledStartTime
	}

	loc, err := time.LoadLocation(session.Timezone)
	if err != nil {
		loc = time.UTC
	}

	option, err := rrule.StrToROption(session.Recurrence)
	if err != nil {
		return session.ScheduledStartTime
	}
	option.Dtstart = session.ScheduledStartTime.In(loc)

	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return session.ScheduledStartTime
	}

	before := rule.Before(around, true)
	after := rule.After(around, true)
	switch {
	case before.IsZero() && after.IsZero():
		return session.ScheduledStartTime
	case before.IsZero():
		return after
	case after.IsZero():
		return before
	case around.Sub(before) <= after.Sub(around):
		return before
	default:
		return after
	}
}
