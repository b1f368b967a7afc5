// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/pkg/redaction"
)

// BotSessionService owns the durable bot registry: one record per provider
// bot instance, keyed by bot id, created on the first event seen for that id
// and never deleted. It also resolves which scheduled session a bot belongs
// to, since webhook payloads only ever carry the provider's bot id.
type BotSessionService struct {
	botSessionRepository domain.BotSessionRepository
	sessionRepository    domain.SessionRepository
	config               ServiceConfig
}

// NewBotSessionService creates a new BotSessionService.
func NewBotSessionService(
	botSessionRepository domain.BotSessionRepository,
	sessionRepository domain.SessionRepository,
	config ServiceConfig,
) *BotSessionService {
	return &BotSessionService{
		config:               config,
		botSessionRepository: botSessionRepository,
		sessionRepository:    sessionRepository,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *BotSessionService) ServiceReady() bool {
	return s.botSessionRepository != nil &&
		s.sessionRepository != nil
}

// EnsureBotSession returns the registry record for a bot id along with its
// store revision, creating the record when this is the first event seen for
// the bot. Events arrive out of order, so any event kind may be the one that
// creates the record. Concurrent first events race on the keyed create; the
// loser reads the winner's record.
func (s *BotSessionService) EnsureBotSession(ctx context.Context, botID string) (*models.BotSession, uint64, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, 0, domain.NewUnavailableError("service not initialized")
	}

	if botID == "" {
		return nil, 0, domain.NewValidationError("bot ID is required")
	}

	botSession, revision, err := s.botSessionRepository.GetWithRevision(ctx, botID)
	if err == nil {
		return botSession, revision, nil
	}
	if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.ErrorContext(ctx, "error getting bot session", logging.ErrKey, err)
		return nil, 0, err
	}

	newBotSession := &models.BotSession{
		BotID: botID,
	}
	if createErr := s.botSessionRepository.Create(ctx, newBotSession); createErr != nil {
		if domain.GetErrorType(createErr) != domain.ErrorTypeConflict {
			slog.ErrorContext(ctx, "error creating bot session", logging.ErrKey, createErr)
			return nil, 0, createErr
		}
		// Another handler created the record between our read and create.
		slog.DebugContext(ctx, "bot session already created concurrently", "bot_id", botID)
	} else {
		slog.DebugContext(ctx, "created bot session record", "bot_id", botID, "bot_session_uid", newBotSession.UID)
	}

	botSession, revision, err = s.botSessionRepository.GetWithRevision(ctx, botID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting bot session after create", logging.ErrKey, err)
		return nil, 0, err
	}

	return botSession, revision, nil
}

// GetBotSession returns the registry record for a bot id.
func (s *BotSessionService) GetBotSession(ctx context.Context, botID string) (*models.BotSession, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}

	if botID == "" {
		return nil, domain.NewValidationError("bot ID is required")
	}

	botSession, err := s.botSessionRepository.Get(ctx, botID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting bot session", logging.ErrKey, err)
		return nil, err
	}

	return botSession, nil
}

// UpdateBotSession persists registry mutations under optimistic concurrency.
// A conflict means another event for the same bot landed first; callers
// re-read and reapply rather than overwrite.
func (s *BotSessionService) UpdateBotSession(ctx context.Context, botSession *models.BotSession, revision uint64) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("service not initialized")
	}

	if botSession == nil || botSession.BotID == "" {
		return domain.NewValidationError("bot session with bot ID is required")
	}

	if err := s.botSessionRepository.Update(ctx, botSession, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.DebugContext(ctx, "bot session revision conflict", "bot_id", botSession.BotID)
		} else {
			slog.ErrorContext(ctx, "error updating bot session", logging.ErrKey, err)
		}
		return err
	}

	return nil
}

// ResolveSession returns the scheduled session a bot belongs to. A bot that
// was already mapped reads its session directly. An unmapped bot is matched
// against the active sessions by meeting metadata; on a match the mapping is
// recorded on the registry record, which the caller persists. Returns nil
// with no error when the bot cannot be resolved, in which case nothing
// session-specific may be written.
func (s *BotSessionService) ResolveSession(ctx context.Context, botSession *models.BotSession, meta *models.MeetingMetadata) (*models.ScheduledSession, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}

	if botSession == nil {
		return nil, domain.NewValidationError("bot session is required")
	}

	if botSession.IsResolved() {
		session, err := s.sessionRepository.Get(ctx, botSession.SessionUID)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				// The mapping points at a session that no longer exists, so
				// the bot is effectively unresolvable.
				slog.ErrorContext(ctx, "bot session mapped to a missing session",
					logging.PriorityCritical(),
					"bot_id", botSession.BotID,
					"session_uid", botSession.SessionUID,
				)
				return nil, nil
			}
			slog.ErrorContext(ctx, "error getting mapped session", logging.ErrKey, err)
			return nil, err
		}
		return session, nil
	}

	candidates, err := s.sessionRepository.ListActive(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error listing active sessions", logging.ErrKey, err)
		return nil, err
	}

	match := MatchSession(meta, candidates)
	if match == nil {
		title := ""
		if meta != nil {
			title = meta.Title
		}
		slog.ErrorContext(ctx, "bot could not be resolved to any scheduled session",
			logging.PriorityCritical(),
			"bot_id", botSession.BotID,
			"candidate_count", len(candidates),
			"meeting_title", redaction.RedactName(title),
		)
		return nil, nil
	}

	botSession.SessionUID = match.UID
	botSession.ChildUID = match.ChildUID
	botSession.CoachUID = match.CoachUID

	slog.InfoContext(ctx, "resolved bot to scheduled session",
		"bot_id", botSession.BotID,
		"session_uid", match.UID,
	)

	return match, nil
}
