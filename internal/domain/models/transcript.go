// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
	"time"
)

// Speaker labels used in diarized transcript lines. SPEAKER_<id> is the
// fallback when role assignment is inconclusive.
const (
	SpeakerCoach = "COACH"
	SpeakerChild = "CHILD"
)

// SpeakerLabelFor returns the generic label for a provider speaker id.
func SpeakerLabelFor(speakerID int) string {
	return fmt.Sprintf("SPEAKER_%d", speakerID)
}

// TranscriptWord is one word of the provider's flat word stream. SpeakerID
// is the provider-assigned diarization id, zero when the provider did not
// attribute the word.
type TranscriptWord struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	SpeakerID int     `json:"speaker_id,omitempty"`
}

// TranscriptLine is one speaker turn of a diarized transcript.
type TranscriptLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// DiarizedTranscript is the ordered, speaker-labeled reconstruction of a
// session's word stream.
type DiarizedTranscript struct {
	Lines []TranscriptLine `json:"lines"`
	// CoachSpeakerID and ChildSpeakerID record which provider ids the
	// role-assignment heuristic settled on; both zero when unassigned.
	CoachSpeakerID int `json:"coach_speaker_id,omitempty"`
	ChildSpeakerID int `json:"child_speaker_id,omitempty"`
	TotalWords     int `json:"total_words"`
}

// Text renders the transcript as the newline-joined "LABEL: utterance" form
// handed to the pedagogical analyzer.
func (d *DiarizedTranscript) Text() string {
	if d == nil || len(d.Lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, line := range d.Lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line.Speaker)
		sb.WriteString(": ")
		sb.WriteString(line.Text)
	}
	return sb.String()
}

// CharLength is the transcript length the outcome classifier thresholds on.
func (d *DiarizedTranscript) CharLength() int {
	return len(d.Text())
}

// SessionTranscript is the persisted diarized transcript of a session.
type SessionTranscript struct {
	UID        string             `json:"uid"`
	SessionUID string             `json:"session_uid"`
	BotID      string             `json:"bot_id,omitempty"`
	Transcript DiarizedTranscript `json:"transcript"`
	CreatedAt  *time.Time         `json:"created_at,omitempty"`
}

// Tags generates a consistent set of tags for the session transcript.
func (t *SessionTranscript) Tags() []string {
	tags := []string{}

	if t == nil {
		return nil
	}

	if t.UID != "" {
		tags = append(tags, t.UID)
		tags = append(tags, fmt.Sprintf("session_transcript_uid:%s", t.UID))
	}

	if t.SessionUID != "" {
		tags = append(tags, fmt.Sprintf("session_uid:%s", t.SessionUID))
	}

	return tags
}
