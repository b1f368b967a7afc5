// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// BotSessionRepository defines the interface for the durable bot registry.
// One record per provider bot instance, keyed by the opaque bot id. Records
// are created on the first event for an unseen bot and updated ever after;
// they are the audit trail and are never deleted.
type BotSessionRepository interface {
	Create(ctx context.Context, botSession *models.BotSession) error
	Exists(ctx context.Context, botID string) (bool, error)

	Get(ctx context.Context, botID string) (*models.BotSession, error)
	GetWithRevision(ctx context.Context, botID string) (*models.BotSession, uint64, error)
	Update(ctx context.Context, botSession *models.BotSession, revision uint64) error
}

// SessionRepository defines the interface for scheduled session storage.
// The scheduling system creates sessions; this service transitions their
// status and attaches attendance, reasons, and review flags.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ScheduledSession) error
	Exists(ctx context.Context, sessionUID string) (bool, error)

	Get(ctx context.Context, sessionUID string) (*models.ScheduledSession, error)
	GetWithRevision(ctx context.Context, sessionUID string) (*models.ScheduledSession, uint64, error)
	Update(ctx context.Context, session *models.ScheduledSession, revision uint64) error

	// ListActive returns sessions that have not reached a terminal status,
	// the candidate pool for matching an unmapped bot to its session.
	ListActive(ctx context.Context) ([]*models.ScheduledSession, error)
}

// SessionAnalysisRepository defines the interface for persisted pedagogical
// analyses. Analyses are keyed by session UID: at most one analysis exists
// per session and it is never recomputed in place.
type SessionAnalysisRepository interface {
	Create(ctx context.Context, analysis *models.SessionAnalysis) error
	Exists(ctx context.Context, sessionUID string) (bool, error)
	Get(ctx context.Context, sessionUID string) (*models.SessionAnalysis, error)
}

// SessionTranscriptRepository defines the interface for persisted diarized
// transcripts, keyed by session UID.
type SessionTranscriptRepository interface {
	Save(ctx context.Context, transcript *models.SessionTranscript) error
	Exists(ctx context.Context, sessionUID string) (bool, error)
	Get(ctx context.Context, sessionUID string) (*models.SessionTranscript, error)
}

// ChildProfileRepository defines the interface for the child profile cache
// that serves fast reads of the latest session summary.
type ChildProfileRepository interface {
	Get(ctx context.Context, childUID string) (*models.ChildProfile, error)
	GetWithRevision(ctx context.Context, childUID string) (*models.ChildProfile, uint64, error)
	Save(ctx context.Context, profile *models.ChildProfile) error
	Update(ctx context.Context, profile *models.ChildProfile, revision uint64) error
}
