// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the session intelligence service sends messages about.
const (
	// IndexSessionAnalysisSubject is the subject for session analysis indexing.
	// The subject is of the form: learnloop.index.session_analysis
	IndexSessionAnalysisSubject = "learnloop.index.session_analysis"

	// IndexSessionSubject is the subject for session record indexing.
	// The subject is of the form: learnloop.index.session
	IndexSessionSubject = "learnloop.index.session"

	// SessionNotificationSubject is the subject the notification dispatcher
	// consumes session events from.
	// The subject is of the form: learnloop.notify.session
	SessionNotificationSubject = "learnloop.notify.session"
)

// NATS queue used by this service's subscriptions.
const (
	// SessionIntelAPIQueue is the queue group name for the session intel API.
	// The subject is of the form: learnloop.session-intel-api.queue
	SessionIntelAPIQueue = "learnloop.session-intel-api.queue"
)

// NATS subjects this service consumes. The webhook endpoint publishes each
// validated provider event to its own subject for async processing.
const (
	RecallWebhookBotStatusChangeSubject   = "learnloop.webhook.recall.bot.status_change"
	RecallWebhookBotTranscriptionSubject  = "learnloop.webhook.recall.bot.transcription"
	RecallWebhookBotRecordingReadySubject = "learnloop.webhook.recall.bot.recording_ready"
	RecallWebhookBotDoneSubject           = "learnloop.webhook.recall.bot.done"
)

// NATS subjects the scheduling system publishes session booking changes on.
// This service consumes them to keep its session records and bot mappings
// current.
const (
	// SchedulerSessionCreatedSubject is the subject for new session bookings.
	// The subject is of the form: learnloop.scheduler-api.session_created
	SchedulerSessionCreatedSubject = "learnloop.scheduler-api.session_created"

	// SchedulerSessionUpdatedSubject is the subject for booking changes to an
	// existing session.
	// The subject is of the form: learnloop.scheduler-api.session_updated
	SchedulerSessionUpdatedSubject = "learnloop.scheduler-api.session_updated"

	// SchedulerSessionCancelledSubject is the subject for session
	// cancellations.
	// The subject is of the form: learnloop.scheduler-api.session_cancelled
	SchedulerSessionCancelledSubject = "learnloop.scheduler-api.session_cancelled"
)

// MessageAction is a type for the action of an indexer message.
type MessageAction string

// MessageAction constants for the action of an indexer message.
const (
	// ActionCreated is the action for a resource creation message.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action for a resource update message.
	ActionUpdated MessageAction = "updated"
	// ActionDeleted is the action for a resource deletion message.
	ActionDeleted MessageAction = "deleted"
)

// SessionIndexerMessage is the NATS message schema for search-index updates
// about sessions and their analyses.
type SessionIndexerMessage struct {
	Action  MessageAction     `json:"action"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
	// Tags is a list of tags to be set on the indexed resource for search.
	Tags []string `json:"tags"`
}

// NotificationKind identifies which session event a notification is about.
type NotificationKind string

const (
	NotificationKindNoShow           NotificationKind = "no_show"
	NotificationKindCoachNoShow      NotificationKind = "coach_no_show"
	NotificationKindBotError         NotificationKind = "bot_error"
	NotificationKindSessionSummary   NotificationKind = "session_summary"
	NotificationKindFlaggedForReview NotificationKind = "flagged_for_review"
)

// NotificationUrgency tiers for the dispatcher. Bot errors and coach
// no-shows page the operations team; the rest are routine.
type NotificationUrgency string

const (
	NotificationUrgencyUrgent NotificationUrgency = "urgent"
	NotificationUrgencyNormal NotificationUrgency = "normal"
)

// Urgency returns the dispatch tier for a notification kind.
func (k NotificationKind) Urgency() NotificationUrgency {
	switch k {
	case NotificationKindBotError, NotificationKindCoachNoShow:
		return NotificationUrgencyUrgent
	default:
		return NotificationUrgencyNormal
	}
}

// SessionNotificationMessage is the schema for messages sent to the
// notification dispatcher. Rendering into chat or email happens downstream.
type SessionNotificationMessage struct {
	Kind       NotificationKind    `json:"kind"`
	Urgency    NotificationUrgency `json:"urgency"`
	SessionUID string              `json:"session_uid"`
	ChildUID   string              `json:"child_uid,omitempty"`
	CoachUID   string              `json:"coach_uid,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	Details    map[string]string   `json:"details,omitempty"`
}

// RecallWebhookEventMessage is the schema for Recall webhook events sent via
// NATS for async processing. Handlers convert Payload to typed payload
// structs via the To*Payload helpers.
type RecallWebhookEventMessage struct {
	EventType string                 `json:"event_type"`
	EventTS   int64                  `json:"event_ts"`
	Payload   map[string]interface{} `json:"payload"`
}

// SchedulerSessionMessage is the schema for session booking changes published
// by the scheduling system. It carries booking-owned fields only; the coarse
// status, attendance, and flags stay under this service's control and never
// appear on the wire here. BotID is set when the scheduler provisioned a
// recording bot while booking, which lets the bot mapping be written before
// any webhook event arrives for that bot.
type SchedulerSessionMessage struct {
	UID                string    `json:"uid"`
	ChildUID           string    `json:"child_uid,omitempty"`
	ChildName          string    `json:"child_name,omitempty"`
	CoachUID           string    `json:"coach_uid,omitempty"`
	CoachName          string    `json:"coach_name,omitempty"`
	Title              string    `json:"title,omitempty"`
	ScheduledStartTime time.Time `json:"scheduled_start_time"`
	DurationMinutes    int       `json:"duration_minutes,omitempty"`
	Timezone           string    `json:"timezone,omitempty"`
	Recurrence         string    `json:"recurrence,omitempty"`
	BotID              string    `json:"bot_id,omitempty"`
}
