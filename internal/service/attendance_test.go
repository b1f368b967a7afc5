// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

func TestAnalyzeAttendance(t *testing.T) {
	tests := []struct {
		name            string
		participants    []models.RosterParticipant
		durationSeconds float64
		knownCoachName  string
		expected        models.AttendanceInfo
	}{
		{
			name:            "empty roster",
			participants:    nil,
			durationSeconds: 0,
			expected: models.AttendanceInfo{
				ParticipantCount: 0,
				CoachJoined:      false,
				ChildJoined:      false,
				DurationMinutes:  0,
				IsValidSession:   false,
			},
		},
		{
			name: "coach and child for a full session",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "Coach Sarah", IsHost: true},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 1800,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"Coach Sarah", "Maya"},
				CoachJoined:      true,
				ChildJoined:      true,
				DurationMinutes:  30,
				IsValidSession:   true,
			},
		},
		{
			name: "host flag alone marks the coach",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "Sarah", IsHost: true},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 1200,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"Sarah", "Maya"},
				CoachJoined:      true,
				ChildJoined:      true,
				DurationMinutes:  20,
				IsValidSession:   true,
			},
		},
		{
			name: "email-shaped name marks the coach",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "sarah@learnloop.io"},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 900,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"sarah@learnloop.io", "Maya"},
				CoachJoined:      true,
				ChildJoined:      true,
				DurationMinutes:  15,
				IsValidSession:   true,
			},
		},
		{
			name: "scheduling system coach name matches case-insensitively",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "sarah chen"},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 900,
			knownCoachName:  "Sarah Chen",
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"sarah chen", "Maya"},
				CoachJoined:      true,
				ChildJoined:      true,
				DurationMinutes:  15,
				IsValidSession:   true,
			},
		},
		{
			name: "lone host means the family never joined",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "Coach Sarah", IsHost: true},
			},
			durationSeconds: 1200,
			expected: models.AttendanceInfo{
				ParticipantCount: 1,
				ParticipantNames: []string{"Coach Sarah"},
				CoachJoined:      true,
				ChildJoined:      false,
				DurationMinutes:  20,
				IsValidSession:   false,
			},
		},
		{
			name: "all hosts means no child joined",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "Coach Sarah", IsHost: true},
				{ID: 2, Name: "observer@learnloop.io", IsHost: true},
			},
			durationSeconds: 1800,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"Coach Sarah", "observer@learnloop.io"},
				CoachJoined:      true,
				ChildJoined:      false,
				DurationMinutes:  30,
				IsValidSession:   true,
			},
		},
		{
			name: "two participants under ten minutes is not valid",
			participants: []models.RosterParticipant{
				{ID: 1, Name: "Coach Sarah", IsHost: true},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 540,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"Coach Sarah", "Maya"},
				CoachJoined:      true,
				ChildJoined:      true,
				DurationMinutes:  9,
				IsValidSession:   false,
			},
		},
		{
			name: "nameless participants stay out of the name list",
			participants: []models.RosterParticipant{
				{ID: 1, Name: ""},
				{ID: 2, Name: "Maya"},
			},
			durationSeconds: 720,
			expected: models.AttendanceInfo{
				ParticipantCount: 2,
				ParticipantNames: []string{"Maya"},
				CoachJoined:      false,
				ChildJoined:      true,
				DurationMinutes:  12,
				IsValidSession:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeAttendance(tt.participants, tt.durationSeconds, tt.knownCoachName)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsCoachLike(t *testing.T) {
	tests := []struct {
		name           string
		participant    models.RosterParticipant
		knownCoachName string
		expected       bool
	}{
		{
			name:        "host flag",
			participant: models.RosterParticipant{ID: 1, Name: "Sarah", IsHost: true},
			expected:    true,
		},
		{
			name:        "coach marker in name",
			participant: models.RosterParticipant{ID: 1, Name: "Coach Sarah"},
			expected:    true,
		},
		{
			name:        "tutor marker in name",
			participant: models.RosterParticipant{ID: 1, Name: "Sarah (Tutor)"},
			expected:    true,
		},
		{
			name:        "organization marker in name",
			participant: models.RosterParticipant{ID: 1, Name: "Sarah | LearnLoop"},
			expected:    true,
		},
		{
			name:        "email-shaped name",
			participant: models.RosterParticipant{ID: 1, Name: "sarah.chen@example.org"},
			expected:    true,
		},
		{
			name:           "matches the scheduled coach name",
			participant:    models.RosterParticipant{ID: 1, Name: "Sarah Chen"},
			knownCoachName: "sarah chen",
			expected:       true,
		},
		{
			name:        "plain family name",
			participant: models.RosterParticipant{ID: 1, Name: "Maya Patel"},
			expected:    false,
		},
		{
			name:        "at sign without domain dot is not email-shaped",
			participant: models.RosterParticipant{ID: 1, Name: "maya@home"},
			expected:    false,
		},
		{
			name:        "empty name",
			participant: models.RosterParticipant{ID: 1, Name: ""},
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isCoachLike(tt.participant, tt.knownCoachName))
		})
	}
}
