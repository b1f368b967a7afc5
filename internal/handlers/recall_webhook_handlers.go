// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/internal/service"
	"github.com/learnloop/session-intel-service/pkg/utils"
)

// RecallWebhookHandler consumes the Recall webhook events the HTTP endpoint
// published to NATS and runs the session intelligence pipeline on them:
// bot registry upkeep, lifecycle transitions, the no-show fast path, and
// the bot-done close-out.
type RecallWebhookHandler struct {
	botSessionService *service.BotSessionService
	sessionService    *service.SessionService
	persister         *service.SessionPersister
}

func NewRecallWebhookHandler(
	botSessionService *service.BotSessionService,
	sessionService *service.SessionService,
	persister *service.SessionPersister,
) *RecallWebhookHandler {
	return &RecallWebhookHandler{
		botSessionService: botSessionService,
		sessionService:    sessionService,
		persister:         persister,
	}
}

func (h *RecallWebhookHandler) HandlerReady() bool {
	return h.botSessionService.ServiceReady() &&
		h.sessionService.ServiceReady() &&
		h.persister.ServiceReady()
}

// HandleMessage implements [domain.MessageHandler] interface
func (h *RecallWebhookHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	var response []byte
	var err error

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.RecallWebhookBotStatusChangeSubject:   h.HandleBotStatusChange,
		models.RecallWebhookBotTranscriptionSubject:  h.HandleBotTranscription,
		models.RecallWebhookBotRecordingReadySubject: h.HandleBotRecordingReady,
		models.RecallWebhookBotDoneSubject:           h.HandleBotDone,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		if msg.HasReply() {
			err = msg.Respond(nil)
			if err != nil {
				slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			}
		}
		return
	}

	response, err = handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message",
			logging.ErrKey, err,
		)
		if msg.HasReply() {
			err = msg.Respond(nil)
			if err != nil {
				slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			}
		}
		return
	}

	if msg.HasReply() {
		err = msg.Respond(response)
		if err != nil {
			slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			return
		}
		slog.DebugContext(ctx, "responded to NATS message", "response", response)
	} else {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
	}
}

// parseRecallWebhookEvent is a helper to parse webhook event messages
func (h *RecallWebhookHandler) parseRecallWebhookEvent(ctx context.Context, msg domain.Message) (*models.RecallWebhookEventMessage, error) {
	var webhookEvent models.RecallWebhookEventMessage
	if err := json.Unmarshal(msg.Data(), &webhookEvent); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal Recall webhook event", logging.ErrKey, err)
		return nil, err
	}
	return &webhookEvent, nil
}

// HandleBotStatusChange handles bot.status_change webhook events
func (h *RecallWebhookHandler) HandleBotStatusChange(ctx context.Context, msg domain.Message) ([]byte, error) {
	webhookEvent, err := h.parseRecallWebhookEvent(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", webhookEvent.EventType))
	err = h.handleBotStatusChangeEvent(ctx, *webhookEvent)
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle bot status change event", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "successfully processed bot status change event")
	return nil, nil // No response needed for webhook events
}

// HandleBotTranscription handles bot.transcription webhook events
func (h *RecallWebhookHandler) HandleBotTranscription(ctx context.Context, msg domain.Message) ([]byte, error) {
	webhookEvent, err := h.parseRecallWebhookEvent(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", webhookEvent.EventType))
	err = h.handleBotTranscriptionEvent(ctx, *webhookEvent)
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle bot transcription event", logging.ErrKey, err)
		return nil, err
	}

	slog.DebugContext(ctx, "successfully processed bot transcription event")
	return nil, nil // No response needed for webhook events
}

// HandleBotRecordingReady handles bot.recording_ready webhook events
func (h *RecallWebhookHandler) HandleBotRecordingReady(ctx context.Context, msg domain.Message) ([]byte, error) {
	webhookEvent, err := h.parseRecallWebhookEvent(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", webhookEvent.EventType))
	err = h.handleBotRecordingReadyEvent(ctx, *webhookEvent)
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle bot recording ready event", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "successfully processed bot recording ready event")
	return nil, nil // No response needed for webhook events
}

// HandleBotDone handles bot.done webhook events
func (h *RecallWebhookHandler) HandleBotDone(ctx context.Context, msg domain.Message) ([]byte, error) {
	webhookEvent, err := h.parseRecallWebhookEvent(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", webhookEvent.EventType))
	err = h.handleBotDoneEvent(ctx, *webhookEvent)
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle bot done event", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "successfully processed bot done event")
	return nil, nil // No response needed for webhook events
}

// handleBotStatusChangeEvent processes bot.status_change events: it folds
// the change into the bot's audit history, advances the session's coarse
// status, and short-circuits straight to the close-out when the leave
// reason already settles the outcome.
func (h *RecallWebhookHandler) handleBotStatusChangeEvent(ctx context.Context, event models.RecallWebhookEventMessage) error {
	payload, err := event.ToBotStatusChangePayload()
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse bot status change payload", logging.ErrKey, err)
		return domain.NewValidationError("invalid bot.status_change payload", err)
	}

	if payload.BotID == "" {
		slog.WarnContext(ctx, "bot status change event without a bot ID, ignoring")
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("bot_id", payload.BotID))

	latest := payload.LatestChange()
	if payload.Status == "" && latest == nil {
		slog.WarnContext(ctx, "bot status change event carries no status or history, ignoring")
		return nil
	}

	botSession, revision, err := h.botSessionService.EnsureBotSession(ctx, payload.BotID)
	if err != nil {
		return err
	}

	change := models.BotStatusChange{
		Status:    payload.Status,
		CreatedAt: time.Now().UTC(),
	}
	if latest != nil {
		change.Code = latest.Code
		change.Message = latest.Message
		if !latest.CreatedAt.IsZero() {
			change.CreatedAt = latest.CreatedAt
		}
	}
	botSession.AppendStatusChange(change)

	outcome, terminal := h.terminalOutcomeFor(payload.Status, change)

	// A session can only be touched once the bot is mapped to it. Status
	// events carry no meeting metadata, so an unmapped bot stays unresolved
	// here and gets matched by the bot-done path.
	var session *models.ScheduledSession
	if botSession.IsResolved() {
		session, err = h.botSessionService.ResolveSession(ctx, botSession, nil)
		if err != nil {
			return err
		}
	}

	if err := h.botSessionService.UpdateBotSession(ctx, botSession, revision); err != nil {
		return err
	}

	if session == nil {
		if terminal {
			slog.InfoContext(ctx, "terminal bot status for an unresolved bot, recorded history only",
				"bot_status", payload.Status,
				"outcome", string(outcome.Status),
			)
		}
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("session_uid", session.UID))

	if terminal {
		return h.closeOutSession(ctx, session.UID, botSession, outcome, change.CreatedAt, nil, nil)
	}

	next, ok := service.CoarseStatusForBot(payload.Status)
	if !ok {
		slog.DebugContext(ctx, "bot status does not drive the session on its own", "bot_status", payload.Status)
		return nil
	}

	_, _, err = h.sessionService.AdvanceSessionStatus(ctx, session.UID, next, change.CreatedAt)
	return err
}

// terminalOutcomeFor resolves the terminal outcome a status change settles on
// its own: a recognized leave-reason code, or a fatal bot status even when
// the provider attached no code.
func (h *RecallWebhookHandler) terminalOutcomeFor(botStatus string, change models.BotStatusChange) (models.SessionOutcome, bool) {
	if outcome, matched := service.DetectNoShow(change.Code, change.Message); matched {
		return outcome, true
	}

	if botStatus == models.BotStatusFatal {
		reason := utils.CoalesceString(change.Message, change.Code, "Recording bot reported a fatal error")
		return models.SessionOutcome{Status: models.SessionStatusBotError, Reason: reason}, true
	}

	return models.SessionOutcome{}, false
}

// closeOutSession re-reads the session for a current revision and hands it
// to the persister.
func (h *RecallWebhookHandler) closeOutSession(
	ctx context.Context,
	sessionUID string,
	botSession *models.BotSession,
	outcome models.SessionOutcome,
	occurredAt time.Time,
	attendance *models.AttendanceInfo,
	transcript *models.DiarizedTranscript,
) error {
	session, revision, err := h.sessionService.GetSessionWithRevision(ctx, sessionUID)
	if err != nil {
		return err
	}

	performed, err := h.persister.PersistOutcome(ctx, service.Closeout{
		Session:    session,
		Revision:   revision,
		BotSession: botSession,
		Outcome:    outcome,
		OccurredAt: occurredAt,
		Attendance: attendance,
		Transcript: transcript,
	})
	if err != nil {
		return err
	}

	if !performed {
		slog.DebugContext(ctx, "session close-out already performed by an earlier delivery")
	}

	return nil
}

// handleBotTranscriptionEvent processes bot.transcription events. The chunks
// are bookkeeping on the bot session only; terminal-outcome logic works from
// the full word stream of the bot-done event.
func (h *RecallWebhookHandler) handleBotTranscriptionEvent(ctx context.Context, event models.RecallWebhookEventMessage) error {
	payload, err := event.ToBotTranscriptionPayload()
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse bot transcription payload", logging.ErrKey, err)
		return domain.NewValidationError("invalid bot.transcription payload", err)
	}

	if payload.BotID == "" {
		slog.WarnContext(ctx, "bot transcription event without a bot ID, ignoring")
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("bot_id", payload.BotID))

	botSession, revision, err := h.botSessionService.EnsureBotSession(ctx, payload.BotID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	botSession.TranscriptChunks++
	botSession.LastTranscriptAt = &now

	return h.botSessionService.UpdateBotSession(ctx, botSession, revision)
}

// handleBotRecordingReadyEvent processes bot.recording_ready events,
// attaching the recording to the bot session. It may arrive before or after
// bot.done; either order works because the done path prefers its own
// payload's recording and falls back to the stored one.
func (h *RecallWebhookHandler) handleBotRecordingReadyEvent(ctx context.Context, event models.RecallWebhookEventMessage) error {
	payload, err := event.ToBotRecordingReadyPayload()
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse bot recording ready payload", logging.ErrKey, err)
		return domain.NewValidationError("invalid bot.recording_ready payload", err)
	}

	if payload.BotID == "" {
		slog.WarnContext(ctx, "bot recording ready event without a bot ID, ignoring")
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("bot_id", payload.BotID))

	botSession, revision, err := h.botSessionService.EnsureBotSession(ctx, payload.BotID)
	if err != nil {
		return err
	}

	botSession.RecordingURL = payload.Recording.URL
	botSession.RecordingDurationSeconds = payload.Recording.DurationSeconds

	if err := h.botSessionService.UpdateBotSession(ctx, botSession, revision); err != nil {
		return err
	}

	slog.InfoContext(ctx, "attached recording to bot session",
		"duration_seconds", payload.Recording.DurationSeconds,
	)

	return nil
}

// handleBotDoneEvent processes bot.done events, the provider's final report:
// resolve the bot to its session, analyze attendance, diarize the
// transcript, classify the outcome, and hand everything to the persister.
func (h *RecallWebhookHandler) handleBotDoneEvent(ctx context.Context, event models.RecallWebhookEventMessage) error {
	payload, err := event.ToBotDonePayload()
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse bot done payload", logging.ErrKey, err)
		return domain.NewValidationError("invalid bot.done payload", err)
	}

	if payload.BotID == "" {
		slog.WarnContext(ctx, "bot done event without a bot ID, ignoring")
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("bot_id", payload.BotID))

	botSession, revision, err := h.botSessionService.EnsureBotSession(ctx, payload.BotID)
	if err != nil {
		return err
	}

	if payload.Recording != nil {
		botSession.RecordingURL = payload.Recording.URL
		botSession.RecordingDurationSeconds = payload.Recording.DurationSeconds
	}

	session, err := h.botSessionService.ResolveSession(ctx, botSession, payload.MeetingMetadata)
	if err != nil {
		return err
	}

	if err := h.botSessionService.UpdateBotSession(ctx, botSession, revision); err != nil {
		return err
	}

	if session == nil {
		// ResolveSession already logged the unresolvable bot; the history
		// and recording stay on the bot session for manual triage.
		return nil
	}

	ctx = logging.AppendCtx(ctx, slog.String("session_uid", session.UID))

	durationSeconds := botSession.RecordingDurationSeconds
	attendance := service.AnalyzeAttendance(payload.MeetingParticipants, durationSeconds, session.CoachName)
	transcript := service.DiarizeTranscript(payload.Words(), payload.MeetingParticipants)
	outcome := service.ClassifyOutcome(attendance, len(transcript.Text()), durationSeconds)

	slog.InfoContext(ctx, "classified session outcome",
		"outcome", string(outcome.Status),
		"outcome_reason", outcome.Reason,
		"participant_count", attendance.ParticipantCount,
		"duration_minutes", attendance.DurationMinutes,
		"transcript_words", transcript.TotalWords,
	)

	occurredAt := time.Now().UTC()
	if payload.MeetingMetadata != nil && payload.MeetingMetadata.EndTime != nil {
		occurredAt = *payload.MeetingMetadata.EndTime
	}

	return h.closeOutSession(ctx, session.UID, botSession, outcome, occurredAt, &attendance, &transcript)
}
