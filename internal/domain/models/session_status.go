// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

// SessionStatus is the coarse status of a scheduled tutoring session.
// `scheduled` is set by the scheduling system when the session is booked;
// every other value is derived from bot webhook events by this service.
type SessionStatus string

const (
	SessionStatusScheduled   SessionStatus = "scheduled"
	SessionStatusBotJoining  SessionStatus = "bot_joining"
	SessionStatusInProgress  SessionStatus = "in_progress"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusNoShow      SessionStatus = "no_show"
	SessionStatusCoachNoShow SessionStatus = "coach_no_show"
	SessionStatusPartial     SessionStatus = "partial"
	SessionStatusCancelled   SessionStatus = "cancelled"
	SessionStatusBotError    SessionStatus = "bot_error"
)

// IsTerminal reports whether no further automatic transition may leave this
// status. A terminal status is never overwritten by a later event.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusNoShow, SessionStatusCoachNoShow,
		SessionStatusPartial, SessionStatusCancelled, SessionStatusBotError:
		return true
	}
	return false
}

// IsValid reports whether the value is a member of the enumeration.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusBotJoining, SessionStatusInProgress,
		SessionStatusCompleted, SessionStatusNoShow, SessionStatusCoachNoShow,
		SessionStatusPartial, SessionStatusCancelled, SessionStatusBotError:
		return true
	}
	return false
}

// rank orders statuses by how far along the lifecycle they are. Terminal
// statuses share the highest rank so no terminal value outranks another.
func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusScheduled:
		return 0
	case SessionStatusBotJoining:
		return 1
	case SessionStatusInProgress:
		return 2
	default:
		return 3
	}
}

// LessTerminalThan reports whether s is strictly earlier in the lifecycle
// than other. Used to enforce monotonic transitions.
func (s SessionStatus) LessTerminalThan(other SessionStatus) bool {
	return s.rank() < other.rank()
}
