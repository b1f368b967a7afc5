// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// NatsSessionRepository is the NATS KV store repository for scheduled
// sessions, keyed by session UID.
type NatsSessionRepository struct {
	*NatsBaseRepository[models.ScheduledSession]
}

// NewNatsSessionRepository creates a new NATS KV store repository for sessions.
func NewNatsSessionRepository(kvStore INatsKeyValue) *NatsSessionRepository {
	return &NatsSessionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ScheduledSession](kvStore, "session"),
	}
}

// IsReady checks if the repository is ready
func (r *NatsSessionRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new scheduled session
func (r *NatsSessionRepository) Create(ctx context.Context, session *models.ScheduledSession) error {
	if session.UID == "" {
		session.UID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusScheduled
	}

	now := time.Now().UTC()
	session.CreatedAt = &now
	session.UpdatedAt = &now

	return r.NatsBaseRepository.Create(ctx, session.UID, session)
}

// Exists checks if a session exists
func (r *NatsSessionRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, sessionUID)
}

// Get retrieves a session by UID
func (r *NatsSessionRepository) Get(ctx context.Context, sessionUID string) (*models.ScheduledSession, error) {
	return r.NatsBaseRepository.Get(ctx, sessionUID)
}

// GetWithRevision retrieves a session with its revision by UID
func (r *NatsSessionRepository) GetWithRevision(ctx context.Context, sessionUID string) (*models.ScheduledSession, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, sessionUID)
}

// Update updates an existing session with optimistic concurrency control
func (r *NatsSessionRepository) Update(ctx context.Context, session *models.ScheduledSession, revision uint64) error {
	now := time.Now().UTC()
	session.UpdatedAt = &now

	return r.NatsBaseRepository.Update(ctx, session.UID, session, revision)
}

// ListActive returns all sessions that have not reached a terminal status.
// This is the candidate pool when matching an unmapped bot to its session.
func (r *NatsSessionRepository) ListActive(ctx context.Context) ([]*models.ScheduledSession, error) {
	sessions, err := r.ListEntities(ctx, "")
	if err != nil {
		return nil, err
	}

	var active []*models.ScheduledSession
	for _, session := range sessions {
		if session.Status.IsTerminal() {
			continue
		}
		active = append(active, session)
	}

	return active, nil
}
