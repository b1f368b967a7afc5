// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import "time"

// ChildProfile is the read-side cache of a child's latest session results,
// refreshed after every completed session so parent-facing reads do not
// rebuild from analysis records.
type ChildProfile struct {
	UID  string `json:"uid"`
	Name string `json:"name,omitempty"`

	LatestSessionSummary string     `json:"latest_session_summary,omitempty"`
	LatestSessionUID     string     `json:"latest_session_uid,omitempty"`
	LatestSessionAt      *time.Time `json:"latest_session_at,omitempty"`
	LatestFocusArea      string     `json:"latest_focus_area,omitempty"`
	SessionCount         int        `json:"session_count"`

	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RecordCompletedSession folds one completed session's analysis into the
// cached profile.
func (c *ChildProfile) RecordCompletedSession(analysis *SessionAnalysis, completedAt time.Time) {
	if c == nil || analysis == nil {
		return
	}
	c.LatestSessionSummary = analysis.ParentSummary
	c.LatestSessionUID = analysis.SessionUID
	c.LatestSessionAt = &completedAt
	c.LatestFocusArea = analysis.FocusArea
	c.SessionCount++
}
