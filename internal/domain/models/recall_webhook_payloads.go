// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recall webhook event types handled by this service.
const (
	BotStatusChangeEventType   = "bot.status_change"
	BotTranscriptionEventType  = "bot.transcription"
	BotRecordingReadyEventType = "bot.recording_ready"
	BotDoneEventType           = "bot.done"
)

// Provider bot lifecycle statuses reported in status-change events.
const (
	BotStatusJoiningCall        = "joining_call"
	BotStatusInWaitingRoom      = "in_waiting_room"
	BotStatusInCallNotRecording = "in_call_not_recording"
	BotStatusInCallRecording    = "in_call_recording"
	BotStatusCallEnded          = "call_ended"
	BotStatusDone               = "done"
	BotStatusFatal              = "fatal"
)

// Provider leave-reason codes. The no-show family means the meeting never
// materialized; the error family means the bot failed technically.
const (
	CodeWaitingRoomTimeout  = "waiting_room_timeout"
	CodeNooneJoinedTimeout  = "noone_joined_timeout"
	CodeEveryoneLeftTimeout = "everyone_left_timeout"
	CodeFatalError          = "fatal_error"
	CodeBotKicked           = "bot_kicked"
	CodeConnectionFailed    = "connection_failed"
)

// StatusChangeEntry is one entry of a status-change payload's history.
type StatusChangeEntry struct {
	Code      string    `json:"code"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BotStatusChangePayload is the payload for bot.status_change webhook events.
type BotStatusChangePayload struct {
	BotID         string              `json:"bot_id"`
	Status        string              `json:"status"`
	StatusChanges []StatusChangeEntry `json:"status_changes,omitempty"`
}

// LatestChange returns the newest history entry, or nil when the provider
// sent none.
func (p *BotStatusChangePayload) LatestChange() *StatusChangeEntry {
	if p == nil || len(p.StatusChanges) == 0 {
		return nil
	}
	return &p.StatusChanges[len(p.StatusChanges)-1]
}

// BotTranscriptionPayload is the payload for bot.transcription webhook
// events, a real-time partial transcript chunk. Acknowledged for audit;
// terminal-outcome logic never consumes it.
type BotTranscriptionPayload struct {
	BotID      string `json:"bot_id"`
	Transcript struct {
		Speaker   string           `json:"speaker,omitempty"`
		SpeakerID int              `json:"speaker_id,omitempty"`
		Words     []TranscriptWord `json:"words,omitempty"`
	} `json:"transcript"`
}

// RecordingInfo is the recording descriptor shared by recording-ready and
// bot-done payloads.
type RecordingInfo struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// BotRecordingReadyPayload is the payload for bot.recording_ready webhook events.
type BotRecordingReadyPayload struct {
	BotID     string        `json:"bot_id"`
	Recording RecordingInfo `json:"recording"`
}

// MeetingMetadata is the provider's description of the recorded meeting.
type MeetingMetadata struct {
	Title     string     `json:"title,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// BotDonePayload is the payload for bot.done webhook events, the provider's
// final report carrying the full word stream, recording, and roster.
type BotDonePayload struct {
	BotID      string `json:"bot_id"`
	Transcript *struct {
		Words []TranscriptWord `json:"words"`
	} `json:"transcript,omitempty"`
	Recording           *RecordingInfo      `json:"recording,omitempty"`
	MeetingMetadata     *MeetingMetadata    `json:"meeting_metadata,omitempty"`
	MeetingParticipants []RosterParticipant `json:"meeting_participants,omitempty"`
}

// Words returns the flat word stream, empty when the provider sent no
// transcript.
func (p *BotDonePayload) Words() []TranscriptWord {
	if p == nil || p.Transcript == nil {
		return nil
	}
	return p.Transcript.Words
}

// Helper methods to convert a RecallWebhookEventMessage to typed payloads.

// ToBotStatusChangePayload converts the webhook event to a typed status change payload.
func (m *RecallWebhookEventMessage) ToBotStatusChangePayload() (*BotStatusChangePayload, error) {
	if m.EventType != BotStatusChangeEventType {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", BotStatusChangeEventType, m.EventType)
	}

	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payload BotStatusChangePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to bot status change payload: %w", err)
	}

	return &payload, nil
}

// ToBotTranscriptionPayload converts the webhook event to a typed transcription payload.
func (m *RecallWebhookEventMessage) ToBotTranscriptionPayload() (*BotTranscriptionPayload, error) {
	if m.EventType != BotTranscriptionEventType {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", BotTranscriptionEventType, m.EventType)
	}

	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payload BotTranscriptionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to bot transcription payload: %w", err)
	}

	return &payload, nil
}

// ToBotRecordingReadyPayload converts the webhook event to a typed recording ready payload.
func (m *RecallWebhookEventMessage) ToBotRecordingReadyPayload() (*BotRecordingReadyPayload, error) {
	if m.EventType != BotRecordingReadyEventType {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", BotRecordingReadyEventType, m.EventType)
	}

	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payload BotRecordingReadyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to bot recording ready payload: %w", err)
	}

	return &payload, nil
}

// ToBotDonePayload converts the webhook event to a typed bot done payload.
func (m *RecallWebhookEventMessage) ToBotDonePayload() (*BotDonePayload, error) {
	if m.EventType != BotDoneEventType {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", BotDoneEventType, m.EventType)
	}

	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payload BotDonePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to bot done payload: %w", err)
	}

	return &payload, nil
}
