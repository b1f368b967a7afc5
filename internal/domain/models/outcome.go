// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

// SessionOutcome is the terminal classification of a session plus the
// human-readable reason recorded alongside it.
type SessionOutcome struct {
	Status SessionStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// IsCompleted reports whether the outcome is a full completed session, the
// only outcome that proceeds to pedagogical analysis.
func (o SessionOutcome) IsCompleted() bool {
	return o.Status == SessionStatusCompleted
}
