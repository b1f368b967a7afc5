// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// ScheduledSession is the tutoring session being recorded. The scheduling
// system owns its creation; this service owns the status, timestamps,
// attendance summary, and review flags once bot events start arriving.
type ScheduledSession struct {
	UID       string `json:"uid"`
	ChildUID  string `json:"child_uid"`
	ChildName string `json:"child_name,omitempty"`
	CoachUID  string `json:"coach_uid"`
	CoachName string `json:"coach_name,omitempty"`

	Title              string    `json:"title,omitempty"`
	ScheduledStartTime time.Time `json:"scheduled_start_time"`
	DurationMinutes    int       `json:"duration_minutes,omitempty"`
	Timezone           string    `json:"timezone,omitempty"`
	// Recurrence holds the RRULE of a weekly tutoring slot, when the session
	// was booked as part of one.
	Recurrence string `json:"recurrence,omitempty"`

	Status       SessionStatus `json:"status"`
	StatusReason string        `json:"status_reason,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Attendance *AttendanceInfo `json:"attendance,omitempty"`

	FlaggedForAttention bool   `json:"flagged_for_attention"`
	FlagReason          string `json:"flag_reason,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Flag marks the session for human attention with a reason. An existing
// reason is kept; the first flag on a session is the one reviewers see.
func (s *ScheduledSession) Flag(reason string) {
	if s == nil {
		return
	}
	s.FlaggedForAttention = true
	if s.FlagReason == "" {
		s.FlagReason = reason
	}
}

// Tags generates a consistent set of tags for the scheduled session.
func (s *ScheduledSession) Tags() []string {
	tags := []string{}

	if s == nil {
		return nil
	}

	if s.UID != "" {
		tags = append(tags, s.UID)
		tags = append(tags, fmt.Sprintf("session_uid:%s", s.UID))
	}

	if s.ChildUID != "" {
		tags = append(tags, fmt.Sprintf("child_uid:%s", s.ChildUID))
	}

	if s.CoachUID != "" {
		tags = append(tags, fmt.Sprintf("coach_uid:%s", s.CoachUID))
	}

	if s.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", s.Status))
	}

	return tags
}
