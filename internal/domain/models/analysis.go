// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// AnalysisRatings are the analyzer's 1-5 ratings of the session.
type AnalysisRatings struct {
	Engagement    int `json:"engagement"`
	Comprehension int `json:"comprehension"`
	Progress      int `json:"progress"`
}

// SessionAnalysis is the structured output of the pedagogical analyzer for
// one completed session. The core treats the analyzer's judgments as opaque
// values: produced at most once per session, persisted, fanned out, never
// recomputed in place.
type SessionAnalysis struct {
	UID        string `json:"uid"`
	SessionUID string `json:"session_uid"`
	ChildUID   string `json:"child_uid,omitempty"`

	FocusArea string          `json:"focus_area,omitempty"`
	SkillTags []string        `json:"skill_tags,omitempty"`
	Ratings   AnalysisRatings `json:"ratings"`

	FlaggedForAttention bool   `json:"flagged_for_attention"`
	FlagReason          string `json:"flag_reason,omitempty"`
	SafetyConcern       bool   `json:"safety_concern"`
	SafetyNotes         string `json:"safety_notes,omitempty"`

	// ParentSummary is the short summary shown to parents; CoachSummary is
	// the longer internal narrative for the coaching team.
	ParentSummary string `json:"parent_summary"`
	CoachSummary  string `json:"coach_summary,omitempty"`

	// SearchVector is the embedding used for semantic search. It is set on
	// the copy carried by index messages after the record is persisted and
	// is never stored in the KV record itself.
	SearchVector []float32 `json:"search_vector,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// DefaultFlagReason is recorded when the deterministic fallback analysis is
// persisted in place of an analyzer result.
const DefaultFlagReason = "automatic analysis failed"

// DefaultSessionAnalysis builds the deterministic fallback analysis used
// when the analyzer errors or times out. Neutral ratings, flagged for human
// review, and a non-empty parent summary so the session record is complete.
func DefaultSessionAnalysis(sessionUID, childUID string) *SessionAnalysis {
	return &SessionAnalysis{
		SessionUID: sessionUID,
		ChildUID:   childUID,
		FocusArea:  "general",
		Ratings: AnalysisRatings{
			Engagement:    3,
			Comprehension: 3,
			Progress:      3,
		},
		FlaggedForAttention: true,
		FlagReason:          DefaultFlagReason,
		ParentSummary:       "The session was completed. A detailed summary is being prepared and will be shared by the coaching team.",
	}
}

// Tags generates a consistent set of tags for the session analysis.
func (a *SessionAnalysis) Tags() []string {
	tags := []string{}

	if a == nil {
		return nil
	}

	if a.UID != "" {
		tags = append(tags, a.UID)
		tags = append(tags, fmt.Sprintf("session_analysis_uid:%s", a.UID))
	}

	if a.SessionUID != "" {
		tags = append(tags, fmt.Sprintf("session_uid:%s", a.SessionUID))
	}

	if a.ChildUID != "" {
		tags = append(tags, fmt.Sprintf("child_uid:%s", a.ChildUID))
	}

	if a.FocusArea != "" {
		tags = append(tags, fmt.Sprintf("focus_area:%s", a.FocusArea))
	}

	for _, skill := range a.SkillTags {
		if skill != "" {
			tags = append(tags, skill)
		}
	}

	// Parent summary is searchable full-text.
	if a.ParentSummary != "" {
		tags = append(tags, a.ParentSummary)
	}

	return tags
}
