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
	"github.com/learnloop/session-intel-service/pkg/redaction"
)

// SchedulerHandlers consumes session booking changes published by the
// scheduling system. Bookings are the other half of the pipeline's input:
// webhook events say what a bot saw, bookings say what was supposed to
// happen. Consuming them keeps the session records and the ahead-of-time bot
// mappings current without this service owning any booking logic.
type SchedulerHandlers struct {
	sessionService    *service.SessionService
	botSessionService *service.BotSessionService
}

// NewSchedulerHandlers creates a new scheduler handlers instance.
func NewSchedulerHandlers(
	sessionService *service.SessionService,
	botSessionService *service.BotSessionService,
) *SchedulerHandlers {
	return &SchedulerHandlers{
		sessionService:    sessionService,
		botSessionService: botSessionService,
	}
}

func (h *SchedulerHandlers) HandlerReady() bool {
	return h.sessionService.ServiceReady() &&
		h.botSessionService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *SchedulerHandlers) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling scheduler NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.SchedulerSessionCreatedSubject:   h.HandleSessionBooking,
		models.SchedulerSessionUpdatedSubject:   h.HandleSessionBooking,
		models.SchedulerSessionCancelledSubject: h.HandleSessionCancelled,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown scheduler message subject", "subject", subject)
		return
	}

	_, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling scheduler message", logging.ErrKey, err)
	} else {
		slog.DebugContext(ctx, "scheduler message handled successfully")
	}
}

// parseSchedulerSession is a helper to parse scheduler session messages.
func (h *SchedulerHandlers) parseSchedulerSession(ctx context.Context, msg domain.Message) (*models.SchedulerSessionMessage, error) {
	var payload models.SchedulerSessionMessage
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal scheduler session message", logging.ErrKey, err)
		return nil, err
	}

	if payload.UID == "" {
		slog.WarnContext(ctx, "scheduler session message without a session UID")
		return nil, domain.NewValidationError("session UID is required")
	}

	return &payload, nil
}

// HandleSessionBooking is the message handler for the session created and
// updated subjects. The two converge on one upsert because deliveries are
// unordered: an update may be the first message seen for a session and must
// still materialize the record. When the booking names a recording bot, the
// bot-to-session mapping is written ahead of any webhook event for that bot.
func (h *SchedulerHandlers) HandleSessionBooking(ctx context.Context, msg domain.Message) ([]byte, error) {
	payload, err := h.parseSchedulerSession(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("session_uid", payload.UID))

	booking := &models.ScheduledSession{
		UID:                payload.UID,
		ChildUID:           payload.ChildUID,
		ChildName:          payload.ChildName,
		CoachUID:           payload.CoachUID,
		CoachName:          payload.CoachName,
		Title:              payload.Title,
		ScheduledStartTime: payload.ScheduledStartTime,
		DurationMinutes:    payload.DurationMinutes,
		Timezone:           payload.Timezone,
		Recurrence:         payload.Recurrence,
	}

	session, changed, err := h.sessionService.UpsertScheduledSession(ctx, booking)
	if err != nil {
		return nil, err
	}

	if payload.BotID != "" {
		if err := h.provisionBotMapping(ctx, payload.BotID, session); err != nil {
			return nil, err
		}
	}

	if changed {
		slog.InfoContext(ctx, "applied session booking",
			"child_name", redaction.RedactName(session.ChildName),
		)
	}

	return nil, nil
}

// provisionBotMapping records the bot-to-session mapping declared by the
// booking, so status events for the bot resolve without heuristic matching.
func (h *SchedulerHandlers) provisionBotMapping(ctx context.Context, botID string, session *models.ScheduledSession) error {
	ctx = logging.AppendCtx(ctx, slog.String("bot_id", botID))

	botSession, revision, err := h.botSessionService.EnsureBotSession(ctx, botID)
	if err != nil {
		return err
	}

	if botSession.SessionUID == session.UID {
		return nil
	}
	if botSession.IsResolved() {
		// Never remap a bot; its history belongs to the session it was first
		// mapped to.
		slog.WarnContext(ctx, "bot already mapped to another session",
			"mapped_session_uid", botSession.SessionUID,
		)
		return nil
	}

	botSession.SessionUID = session.UID
	botSession.ChildUID = session.ChildUID
	botSession.CoachUID = session.CoachUID

	if err := h.botSessionService.UpdateBotSession(ctx, botSession, revision); err != nil {
		return err
	}

	slog.InfoContext(ctx, "provisioned bot mapping from booking")
	return nil
}

// HandleSessionCancelled is the message handler for the session cancelled
// subject. Cancellation is a terminal transition, so late or duplicate
// deliveries fall out as no-ops and bot events arriving afterwards find a
// settled record. Cancellations send no notification.
func (h *SchedulerHandlers) HandleSessionCancelled(ctx context.Context, msg domain.Message) ([]byte, error) {
	payload, err := h.parseSchedulerSession(ctx, msg)
	if err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("session_uid", payload.UID))

	_, changed, err := h.sessionService.AdvanceSessionStatus(ctx, payload.UID, models.SessionStatusCancelled, time.Now().UTC())
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			// A cancellation for a session this service never saw booked.
			// There is nothing to settle.
			slog.WarnContext(ctx, "cancellation for an unknown session, ignoring")
			return nil, nil
		}
		return nil, err
	}

	if changed {
		slog.InfoContext(ctx, "session cancelled by the scheduling system")
	} else {
		slog.DebugContext(ctx, "cancellation was a no-op, session already settled")
	}

	return nil, nil
}
