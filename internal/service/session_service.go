// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
)

// statusUpdateAttempts bounds the read-apply-write loop on revision
// conflicts. Contention on one session is a handful of webhook events at
// most, so a small bound is enough; on exhaustion the conflict is returned
// and the message redelivery retries the whole operation.
const statusUpdateAttempts = 3

// SessionService owns scheduled session records for the pipeline: creating
// them from the scheduling system's booking messages, reading them, and
// applying coarse status transitions with their index fan-out. Booking
// itself belongs to the scheduling system; records enter here already in
// `scheduled` and only the pipeline moves them past it.
type SessionService struct {
	sessionRepository domain.SessionRepository
	messageSender     domain.SessionIndexSender
	config            ServiceConfig
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepository domain.SessionRepository,
	messageSender domain.SessionIndexSender,
	config ServiceConfig,
) *SessionService {
	return &SessionService{
		config:            config,
		sessionRepository: sessionRepository,
		messageSender:     messageSender,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *SessionService) ServiceReady() bool {
	return s.sessionRepository != nil &&
		s.messageSender != nil
}

// GetSession returns a scheduled session by UID.
func (s *SessionService) GetSession(ctx context.Context, uid string) (*models.ScheduledSession, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}

	if uid == "" {
		return nil, domain.NewValidationError("session UID is required")
	}

	session, err := s.sessionRepository.Get(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "error getting session", logging.ErrKey, err)
		return nil, err
	}

	return session, nil
}

// GetSessionWithRevision returns a scheduled session by UID along with the
// store revision needed for a later conditional update.
func (s *SessionService) GetSessionWithRevision(ctx context.Context, uid string) (*models.ScheduledSession, uint64, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, 0, domain.NewUnavailableError("service not initialized")
	}

	if uid == "" {
		return nil, 0, domain.NewValidationError("session UID is required")
	}

	session, revision, err := s.sessionRepository.GetWithRevision(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "error getting session", logging.ErrKey, err)
		return nil, 0, err
	}

	return session, revision, nil
}

// UpsertScheduledSession applies a booking published by the scheduling
// system: the session is created on first sight and booking-owned fields are
// merged into it afterwards. Pipeline-owned fields (coarse status, reasons,
// lifecycle timestamps, attendance, flags) are never taken from the booking,
// and a session that already reached a terminal status is left untouched.
// Returns the stored session and whether anything changed.
func (s *SessionService) UpsertScheduledSession(ctx context.Context, booking *models.ScheduledSession) (*models.ScheduledSession, bool, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, false, domain.NewUnavailableError("service not initialized")
	}

	if booking == nil || booking.UID == "" {
		return nil, false, domain.NewValidationError("session UID is required")
	}

	var lastErr error
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		exists, err := s.sessionRepository.Exists(ctx, booking.UID)
		if err != nil {
			slog.ErrorContext(ctx, "error checking session existence", logging.ErrKey, err)
			return nil, false, err
		}

		if !exists {
			created := *booking
			created.Status = models.SessionStatusScheduled
			if err := s.sessionRepository.Create(ctx, &created); err != nil {
				if domain.GetErrorType(err) == domain.ErrorTypeConflict {
					// A concurrent delivery created the record between our
					// existence check and create; merge into it instead.
					lastErr = err
					continue
				}
				slog.ErrorContext(ctx, "error creating session", logging.ErrKey, err)
				return nil, false, err
			}

			slog.InfoContext(ctx, "created scheduled session from booking",
				"session_uid", created.UID,
			)

			if err := s.messageSender.SendIndexSession(ctx, models.ActionCreated, created); err != nil {
				slog.ErrorContext(ctx, "failed to send NATS message", logging.ErrKey, err)
				// Don't fail the operation if messaging fails
			}

			return &created, true, nil
		}

		session, revision, err := s.sessionRepository.GetWithRevision(ctx, booking.UID)
		if err != nil {
			slog.ErrorContext(ctx, "error getting session", logging.ErrKey, err)
			return nil, false, err
		}

		if session.Status.IsTerminal() {
			slog.WarnContext(ctx, "ignoring booking change for a settled session",
				"session_uid", session.UID,
				"status", string(session.Status),
			)
			return session, false, nil
		}

		if !mergeBookingFields(session, booking) {
			slog.DebugContext(ctx, "booking carries no field changes", "session_uid", session.UID)
			return session, false, nil
		}

		if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeConflict {
				lastErr = err
				continue
			}
			slog.ErrorContext(ctx, "error updating session", logging.ErrKey, err)
			return nil, false, err
		}

		slog.InfoContext(ctx, "merged booking change into session",
			"session_uid", session.UID,
		)

		if err := s.messageSender.SendIndexSession(ctx, models.ActionUpdated, *session); err != nil {
			slog.ErrorContext(ctx, "failed to send NATS message", logging.ErrKey, err)
			// Don't fail the operation if messaging fails
		}

		return session, true, nil
	}

	slog.WarnContext(ctx, "session upsert contention not resolved",
		"session_uid", booking.UID,
		"attempts", statusUpdateAttempts,
	)
	return nil, false, lastErr
}

// mergeBookingFields copies booking-owned fields onto the stored session and
// reports whether any of them changed. An empty field on the booking means
// unchanged, not cleared.
func mergeBookingFields(session, booking *models.ScheduledSession) bool {
	changed := false

	fields := []struct {
		dst *string
		src string
	}{
		{&session.ChildUID, booking.ChildUID},
		{&session.ChildName, booking.ChildName},
		{&session.CoachUID, booking.CoachUID},
		{&session.CoachName, booking.CoachName},
		{&session.Title, booking.Title},
		{&session.Timezone, booking.Timezone},
		{&session.Recurrence, booking.Recurrence},
	}
	for _, f := range fields {
		if f.src != "" && *f.dst != f.src {
			*f.dst = f.src
			changed = true
		}
	}

	if !booking.ScheduledStartTime.IsZero() && !session.ScheduledStartTime.Equal(booking.ScheduledStartTime) {
		session.ScheduledStartTime = booking.ScheduledStartTime
		changed = true
	}
	if booking.DurationMinutes > 0 && session.DurationMinutes != booking.DurationMinutes {
		session.DurationMinutes = booking.DurationMinutes
		changed = true
	}

	return changed
}

// AdvanceSessionStatus applies a coarse status transition to a session under
// optimistic concurrency and fans out the index update when it lands. The
// transition function is monotonic, so duplicate and out-of-order events
// fall out as no-ops here. Returns the session and whether it changed.
func (s *SessionService) AdvanceSessionStatus(ctx context.Context, sessionUID string, next models.SessionStatus, at time.Time) (*models.ScheduledSession, bool, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, false, domain.NewUnavailableError("service not initialized")
	}

	if sessionUID == "" {
		return nil, false, domain.NewValidationError("session UID is required")
	}
	if !next.IsValid() {
		return nil, false, domain.NewValidationError("session status is not valid")
	}

	var lastErr error
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		session, revision, err := s.sessionRepository.GetWithRevision(ctx, sessionUID)
		if err != nil {
			slog.ErrorContext(ctx, "error getting session", logging.ErrKey, err)
			return nil, false, err
		}

		if !ApplyStatus(session, next, at) {
			slog.DebugContext(ctx, "session status unchanged",
				"session_uid", sessionUID,
				"status", string(session.Status),
				"requested_status", string(next),
			)
			return session, false, nil
		}

		if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeConflict {
				// Another event landed between our read and write; re-read
				// and reapply against the newer record.
				lastErr = err
				continue
			}
			slog.ErrorContext(ctx, "error updating session", logging.ErrKey, err)
			return nil, false, err
		}

		slog.InfoContext(ctx, "session status advanced",
			"session_uid", sessionUID,
			"status", string(session.Status),
		)

		if err := s.messageSender.SendIndexSession(ctx, models.ActionUpdated, *session); err != nil {
			slog.ErrorContext(ctx, "failed to send NATS message", logging.ErrKey, err)
			// Don't fail the operation if messaging fails
		}

		return session, true, nil
	}

	slog.WarnContext(ctx, "session status update contention not resolved",
		"session_uid", sessionUID,
		"attempts", statusUpdateAttempts,
	)
	return nil, false, lastErr
}
