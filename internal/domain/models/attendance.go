// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

// RosterParticipant is one entry of the final meeting roster reported by
// the provider in the bot-done payload.
type RosterParticipant struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host,omitempty"`
}

// AttendanceInfo is the structured summary of who attended a session. It is
// derived from the roster and recording duration, stored on the session for
// review, and consumed by the outcome classifier.
type AttendanceInfo struct {
	ParticipantCount int      `json:"participant_count"`
	ParticipantNames []string `json:"participant_names,omitempty"`
	// CoachJoined means a coach-like participant was present per the
	// coach-likeness heuristics, not a verified identity.
	CoachJoined bool `json:"coach_joined"`
	// ChildJoined means at least one non-coach participant was present.
	ChildJoined     bool `json:"child_joined"`
	DurationMinutes int  `json:"duration_minutes"`
	// IsValidSession is the coarse plausibility gate: at least two
	// participants and at least ten minutes of recording.
	IsValidSession bool `json:"is_valid_session"`
}
