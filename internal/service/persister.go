// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/pkg/concurrent"
)

// profileUpdateAttempts bounds the child profile read-fold-write loop on
// revision conflicts.
const profileUpdateAttempts = 3

// Closeout is the input to the close-out fan-out: the session to move into
// a terminal status plus everything the side effects need. Attendance,
// Transcript, and BotSession are optional; the no-show short-circuit path
// closes a session out with none of them.
type Closeout struct {
	Session    *models.ScheduledSession
	Revision   uint64
	BotSession *models.BotSession
	Outcome    models.SessionOutcome
	OccurredAt time.Time
	Attendance *models.AttendanceInfo
	Transcript *models.DiarizedTranscript
}

// SessionPersister is the single point where a classified session's side
// effects fan out: the terminal status write, the analysis, the transcript,
// the child profile fold, recording archival, search indexing, and the
// notification. Everything downstream of the status write is applied
// independently so one failing effect never blocks the others, and the
// whole fan-out is idempotent against webhook redeliveries.
type SessionPersister struct {
	sessionRepository    domain.SessionRepository
	transcriptRepository domain.SessionTranscriptRepository
	profileRepository    domain.ChildProfileRepository
	analysisService      *AnalysisService
	audioArchiver        domain.AudioArchiver
	embeddingGenerator   domain.EmbeddingGenerator
	messageSender        domain.SessionOutcomeMessageSender
	config               ServiceConfig
}

// NewSessionPersister creates a new SessionPersister. The audio archiver and
// embedding generator are optional; when nil their side effects are skipped.
func NewSessionPersister(
	sessionRepository domain.SessionRepository,
	transcriptRepository domain.SessionTranscriptRepository,
	profileRepository domain.ChildProfileRepository,
	analysisService *AnalysisService,
	audioArchiver domain.AudioArchiver,
	embeddingGenerator domain.EmbeddingGenerator,
	messageSender domain.SessionOutcomeMessageSender,
	config ServiceConfig,
) *SessionPersister {
	return &SessionPersister{
		config:               config,
		sessionRepository:    sessionRepository,
		transcriptRepository: transcriptRepository,
		profileRepository:    profileRepository,
		analysisService:      analysisService,
		audioArchiver:        audioArchiver,
		embeddingGenerator:   embeddingGenerator,
		messageSender:        messageSender,
	}
}

// ServiceReady checks if the service is ready for use.
func (p *SessionPersister) ServiceReady() bool {
	return p.sessionRepository != nil &&
		p.transcriptRepository != nil &&
		p.profileRepository != nil &&
		p.analysisService != nil &&
		p.analysisService.ServiceReady() &&
		p.messageSender != nil
}

// PersistOutcome moves a session into the close-out's terminal status and
// fans out the side effects. It returns whether this call performed the
// close-out: false means the session was already closed out by an earlier
// delivery and every side effect was skipped, which is what keeps replayed
// events from dispatching duplicate notifications.
func (p *SessionPersister) PersistOutcome(ctx context.Context, closeout Closeout) (bool, error) {
	if !p.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return false, domain.NewUnavailableError("service not initialized")
	}

	if closeout.Session == nil || closeout.Session.UID == "" {
		return false, domain.NewValidationError("close-out requires a session with a UID")
	}
	if !closeout.Outcome.Status.IsTerminal() {
		return false, domain.NewValidationError("close-out outcome must be a terminal status")
	}
	if closeout.OccurredAt.IsZero() {
		closeout.OccurredAt = time.Now().UTC()
	}

	ctx = logging.AppendCtx(ctx, slog.String("session_uid", closeout.Session.UID))
	ctx = logging.AppendCtx(ctx, slog.String("outcome", string(closeout.Outcome.Status)))

	applied := ApplyOutcome(closeout.Session, closeout.Outcome, closeout.OccurredAt)
	if applied {
		if closeout.Attendance != nil {
			closeout.Session.Attendance = closeout.Attendance
		}
		if closeout.Outcome.Status == models.SessionStatusBotError {
			closeout.Session.Flag(closeout.Outcome.Reason)
		}

		if err := p.sessionRepository.Update(ctx, closeout.Session, closeout.Revision); err != nil {
			if domain.GetErrorType(err) != domain.ErrorTypeConflict {
				slog.ErrorContext(ctx, "error persisting session outcome", logging.ErrKey, err)
				return false, err
			}
			current, getErr := p.sessionRepository.Get(ctx, closeout.Session.UID)
			if getErr != nil || !current.Status.IsTerminal() {
				// A live conflict rather than a duplicate close-out; the
				// message redelivery retries from a fresh read.
				slog.WarnContext(ctx, "session close-out hit a revision conflict")
				return false, err
			}
			// Another worker closed the session out between our read and
			// write.
			applied = false
			closeout.Session = current
		}
	}

	if closeout.Outcome.IsCompleted() {
		return p.closeOutCompleted(ctx, closeout, applied)
	}

	if !applied {
		slog.InfoContext(ctx, "session already terminal, skipping close-out side effects",
			"status", string(closeout.Session.Status),
		)
		return false, nil
	}

	slog.InfoContext(ctx, "session closed out",
		"status", string(closeout.Session.Status),
		"status_reason", closeout.Session.StatusReason,
	)

	p.fanOutTerminal(ctx, closeout.Session)

	return true, nil
}

// closeOutCompleted handles the completed branch of the fan-out, where the
// analysis record gates everything. The keyed analysis create is the
// idempotency barrier: a crash after the outcome write but before the
// analysis write heals on redelivery instead of leaving a completed session
// without an analysis.
func (p *SessionPersister) closeOutCompleted(ctx context.Context, closeout Closeout, applied bool) (bool, error) {
	exists, err := p.analysisService.HasAnalysis(ctx, closeout.Session.UID)
	if err != nil {
		return applied, err
	}
	if exists {
		slog.InfoContext(ctx, "session analysis already recorded, skipping close-out side effects")
		return applied, nil
	}

	transcriptText := ""
	if closeout.Transcript != nil {
		transcriptText = closeout.Transcript.Text()
	}

	analysis, usedDefault := p.analysisService.ProduceAnalysis(ctx, closeout.Session, transcriptText)
	if usedDefault {
		if err := p.flagSessionForAttention(ctx, closeout.Session.UID, models.DefaultFlagReason); err != nil {
			// The analysis record carries its own flag; losing the
			// session-level one is not worth failing the close-out.
			slog.ErrorContext(ctx, "error flagging session for attention", logging.ErrKey, err)
		}
	}

	recorded, err := p.analysisService.RecordAnalysis(ctx, analysis)
	if err != nil {
		return applied, err
	}
	if !recorded {
		// Another worker recorded the analysis first and owns the fan-out.
		return applied, nil
	}

	slog.InfoContext(ctx, "session closed out as completed",
		"session_analysis_uid", analysis.UID,
		"flagged_for_attention", analysis.FlaggedForAttention,
	)

	p.fanOutCompleted(ctx, closeout, analysis)

	return true, nil
}

// fanOutCompleted runs the completed-session side effects concurrently,
// capturing each outcome on its own so one failure never cancels a sibling.
func (p *SessionPersister) fanOutCompleted(ctx context.Context, closeout Closeout, analysis *models.SessionAnalysis) {
	completedAt := closeout.OccurredAt
	if closeout.Session.CompletedAt != nil {
		completedAt = *closeout.Session.CompletedAt
	}

	tasks := []func() error{
		p.sideEffect(ctx, "index_session", func() error {
			return p.messageSender.SendIndexSession(ctx, models.ActionUpdated, *closeout.Session)
		}),
		p.sideEffect(ctx, "index_analysis", func() error {
			return p.indexAnalysis(ctx, analysis)
		}),
		p.sideEffect(ctx, "update_child_profile", func() error {
			return p.updateChildProfile(ctx, closeout.Session, analysis, completedAt)
		}),
		p.sideEffect(ctx, "send_notification", func() error {
			return p.sendCompletedNotification(ctx, closeout.Session, analysis)
		}),
	}

	if closeout.Transcript != nil && len(closeout.Transcript.Lines) > 0 {
		tasks = append(tasks, p.sideEffect(ctx, "save_transcript", func() error {
			return p.saveTranscript(ctx, closeout)
		}))
	}

	if p.audioArchiver != nil && closeout.BotSession != nil && closeout.BotSession.RecordingURL != "" {
		tasks = append(tasks, p.sideEffect(ctx, "archive_recording", func() error {
			return p.archiveRecording(ctx, closeout.Session, closeout.BotSession)
		}))
	}

	pool := concurrent.NewWorkerPool(len(tasks))
	if errs := pool.RunAll(ctx, tasks...); len(errs) > 0 {
		slog.WarnContext(ctx, "session close-out finished with failed side effects",
			"failed_count", len(errs),
			"task_count", len(tasks),
		)
	}
}

// fanOutTerminal runs the side effects of a non-completed terminal status:
// the index update plus the notification for statuses that warrant one.
func (p *SessionPersister) fanOutTerminal(ctx context.Context, session *models.ScheduledSession) {
	tasks := []func() error{
		p.sideEffect(ctx, "index_session", func() error {
			return p.messageSender.SendIndexSession(ctx, models.ActionUpdated, *session)
		}),
	}

	if kind, ok := notificationKindFor(session.Status); ok {
		tasks = append(tasks, p.sideEffect(ctx, "send_notification", func() error {
			return p.messageSender.SendSessionNotification(ctx, models.SessionNotificationMessage{
				Kind:       kind,
				SessionUID: session.UID,
				ChildUID:   session.ChildUID,
				CoachUID:   session.CoachUID,
				Summary:    session.StatusReason,
			})
		}))
	}

	pool := concurrent.NewWorkerPool(len(tasks))
	if errs := pool.RunAll(ctx, tasks...); len(errs) > 0 {
		slog.WarnContext(ctx, "session close-out finished with failed side effects",
			"failed_count", len(errs),
			"task_count", len(tasks),
		)
	}
}

// sideEffect wraps one close-out side effect so its failure is logged under
// its name and carried into the pool's error list without cancelling the
// sibling effects.
func (p *SessionPersister) sideEffect(ctx context.Context, name string, fn func() error) func() error {
	return func() error {
		if err := fn(); err != nil {
			slog.ErrorContext(ctx, "session close-out side effect failed",
				logging.ErrKey, err,
				"side_effect", name,
			)
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// notificationKindFor maps a non-completed terminal status to the
// notification dispatched for it. Partial sessions go to the review queue;
// cancellations are the scheduler's own doing and stay quiet.
func notificationKindFor(status models.SessionStatus) (models.NotificationKind, bool) {
	switch status {
	case models.SessionStatusNoShow:
		return models.NotificationKindNoShow, true
	case models.SessionStatusCoachNoShow:
		return models.NotificationKindCoachNoShow, true
	case models.SessionStatusBotError:
		return models.NotificationKindBotError, true
	case models.SessionStatusPartial:
		return models.NotificationKindFlaggedForReview, true
	}
	return "", false
}

// indexAnalysis publishes the analysis index message, attaching the semantic
// search vector when the embedding service can produce one. The vector rides
// only the message; the KV record stays without it.
func (p *SessionPersister) indexAnalysis(ctx context.Context, analysis *models.SessionAnalysis) error {
	indexed := *analysis

	if p.embeddingGenerator != nil {
		vector, err := p.embeddingGenerator.Embed(ctx, embeddingText(analysis))
		if err != nil {
			// Best-effort: the analysis is still indexed, just without a
			// semantic search vector.
			slog.WarnContext(ctx, "embedding generation failed, indexing without vector", logging.ErrKey, err)
		} else {
			indexed.SearchVector = vector
		}
	}

	return p.messageSender.SendIndexSessionAnalysis(ctx, models.ActionCreated, indexed)
}

// embeddingText is the analysis text the search vector is generated from.
func embeddingText(analysis *models.SessionAnalysis) string {
	text := analysis.ParentSummary
	if analysis.CoachSummary != "" {
		text += "\n" + analysis.CoachSummary
	}
	return text
}

// updateChildProfile folds the completed session into the child's cached
// profile, creating the profile on the child's first completed session.
func (p *SessionPersister) updateChildProfile(ctx context.Context, session *models.ScheduledSession, analysis *models.SessionAnalysis, completedAt time.Time) error {
	if session.ChildUID == "" {
		slog.DebugContext(ctx, "session has no child UID, skipping profile update")
		return nil
	}

	for attempt := 0; attempt < profileUpdateAttempts; attempt++ {
		profile, revision, err := p.profileRepository.GetWithRevision(ctx, session.ChildUID)
		if err != nil {
			if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
				return err
			}

			profile = &models.ChildProfile{
				UID:  session.ChildUID,
				Name: session.ChildName,
			}
			profile.RecordCompletedSession(analysis, completedAt)

			err = p.profileRepository.Save(ctx, profile)
			if domain.GetErrorType(err) == domain.ErrorTypeConflict {
				// Lost the first-write race; re-read and fold normally.
				continue
			}
			return err
		}

		profile.RecordCompletedSession(analysis, completedAt)

		err = p.profileRepository.Update(ctx, profile, revision)
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			continue
		}
		return err
	}

	return domain.NewConflictError("child profile update contention not resolved")
}

// saveTranscript persists the diarized transcript for the session.
func (p *SessionPersister) saveTranscript(ctx context.Context, closeout Closeout) error {
	transcript := &models.SessionTranscript{
		SessionUID: closeout.Session.UID,
		Transcript: *closeout.Transcript,
	}
	if closeout.BotSession != nil {
		transcript.BotID = closeout.BotSession.BotID
	}

	return p.transcriptRepository.Save(ctx, transcript)
}

// archiveRecording hands the bot's recording to the archival service.
func (p *SessionPersister) archiveRecording(ctx context.Context, session *models.ScheduledSession, botSession *models.BotSession) error {
	result, err := p.audioArchiver.Archive(ctx, domain.ArchiveRequest{
		BotID:       botSession.BotID,
		SessionUID:  session.UID,
		ChildUID:    session.ChildUID,
		SessionDate: session.ScheduledStartTime,
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "session recording archived",
		"bot_id", botSession.BotID,
		"storage_path", result.StoragePath,
	)

	return nil
}

// sendCompletedNotification dispatches the one notification of a completed
// session: the parent summary, or the review-queue notification when the
// analysis is flagged. A safety concern raises the urgency tier.
func (p *SessionPersister) sendCompletedNotification(ctx context.Context, session *models.ScheduledSession, analysis *models.SessionAnalysis) error {
	details := map[string]string{}
	if analysis.FocusArea != "" {
		details["focus_area"] = analysis.FocusArea
	}

	kind := models.NotificationKindSessionSummary
	if analysis.FlaggedForAttention || analysis.SafetyConcern {
		kind = models.NotificationKindFlaggedForReview
		if analysis.FlagReason != "" {
			details["flag_reason"] = analysis.FlagReason
		}
	}

	notification := models.SessionNotificationMessage{
		Kind:       kind,
		SessionUID: session.UID,
		ChildUID:   session.ChildUID,
		CoachUID:   session.CoachUID,
		Summary:    analysis.ParentSummary,
		Details:    details,
	}

	if analysis.SafetyConcern {
		notification.Urgency = models.NotificationUrgencyUrgent
		if analysis.SafetyNotes != "" {
			details["safety_notes"] = analysis.SafetyNotes
		}
	}

	return p.messageSender.SendSessionNotification(ctx, notification)
}

// flagSessionForAttention sets the review flag on an already persisted
// session under optimistic concurrency.
func (p *SessionPersister) flagSessionForAttention(ctx context.Context, sessionUID, reason string) error {
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		session, revision, err := p.sessionRepository.GetWithRevision(ctx, sessionUID)
		if err != nil {
			return err
		}

		if session.FlaggedForAttention {
			return nil
		}
		session.Flag(reason)

		err = p.sessionRepository.Update(ctx, session, revision)
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			continue
		}
		return err
	}

	return domain.NewConflictError("session flag contention not resolved")
}
