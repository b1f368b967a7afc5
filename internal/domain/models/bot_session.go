// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// BotSession is the durable record of one provider bot instance. It is
// created on the first event seen for an unknown bot id, updated in place by
// every later event for that id, and never deleted; the status history is
// the audit trail of everything the provider reported.
type BotSession struct {
	UID        string `json:"uid"`
	BotID      string `json:"bot_id"`
	SessionUID string `json:"session_uid,omitempty"`
	ChildUID   string `json:"child_uid,omitempty"`
	CoachUID   string `json:"coach_uid,omitempty"`

	// LastStatus is the most recent provider lifecycle status (§BotStatus*
	// constants), not the session coarse status.
	LastStatus    string            `json:"last_status,omitempty"`
	StatusHistory []BotStatusChange `json:"status_history,omitempty"`

	RecordingURL             string  `json:"recording_url,omitempty"`
	RecordingDurationSeconds float64 `json:"recording_duration_seconds,omitempty"`

	// Transcription chunk bookkeeping. Audit only; terminal-outcome logic
	// never reads these.
	TranscriptChunks int        `json:"transcript_chunks,omitempty"`
	LastTranscriptAt *time.Time `json:"last_transcript_at,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// BotStatusChange is one entry of the provider's status-change history.
type BotStatusChange struct {
	Status    string    `json:"status,omitempty"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendStatusChange records a history entry and updates LastStatus. Exact
// duplicates of the latest entry are skipped so replayed webhook deliveries
// do not inflate the audit trail.
func (b *BotSession) AppendStatusChange(change BotStatusChange) {
	if b == nil {
		return
	}
	if n := len(b.StatusHistory); n > 0 {
		last := b.StatusHistory[n-1]
		if last.Status == change.Status && last.Code == change.Code && last.CreatedAt.Equal(change.CreatedAt) {
			return
		}
	}
	b.StatusHistory = append(b.StatusHistory, change)
	if change.Status != "" {
		b.LastStatus = change.Status
	}
}

// LatestReason returns the (code, message) pair of the newest history entry
// that carries a code, or empty strings when none does.
func (b *BotSession) LatestReason() (code, message string) {
	if b == nil {
		return "", ""
	}
	for i := len(b.StatusHistory) - 1; i >= 0; i-- {
		if b.StatusHistory[i].Code != "" {
			return b.StatusHistory[i].Code, b.StatusHistory[i].Message
		}
	}
	return "", ""
}

// IsResolved reports whether the bot has been mapped to a scheduled session.
func (b *BotSession) IsResolved() bool {
	return b != nil && b.SessionUID != ""
}

// Tags generates a consistent set of tags for the bot session.
func (b *BotSession) Tags() []string {
	tags := []string{}

	if b == nil {
		return nil
	}

	if b.UID != "" {
		tags = append(tags, b.UID)
		tags = append(tags, fmt.Sprintf("bot_session_uid:%s", b.UID))
	}

	if b.BotID != "" {
		tags = append(tags, fmt.Sprintf("bot_id:%s", b.BotID))
	}

	if b.SessionUID != "" {
		tags = append(tags, fmt.Sprintf("session_uid:%s", b.SessionUID))
	}

	if b.ChildUID != "" {
		tags = append(tags, fmt.Sprintf("child_uid:%s", b.ChildUID))
	}

	if b.CoachUID != "" {
		tags = append(tags, fmt.Sprintf("coach_uid:%s", b.CoachUID))
	}

	return tags
}
