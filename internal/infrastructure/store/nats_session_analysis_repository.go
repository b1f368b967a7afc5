// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// NatsSessionAnalysisRepository is the NATS KV store repository for
// pedagogical analyses. Records are keyed by session UID so that each
// session carries at most one analysis.
type NatsSessionAnalysisRepository struct {
	*NatsBaseRepository[models.SessionAnalysis]
}

// NewNatsSessionAnalysisRepository creates a new NATS KV store repository for session analyses.
func NewNatsSessionAnalysisRepository(kvStore INatsKeyValue) *NatsSessionAnalysisRepository {
	return &NatsSessionAnalysisRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.SessionAnalysis](kvStore, "session analysis"),
	}
}

// IsReady checks if the repository is ready
func (r *NatsSessionAnalysisRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new analysis keyed by its session UID
func (r *NatsSessionAnalysisRepository) Create(ctx context.Context, analysis *models.SessionAnalysis) error {
	if analysis.SessionUID == "" {
		return domain.NewValidationError("session analysis requires a session UID")
	}
	if analysis.UID == "" {
		analysis.UID = uuid.New().String()
	}

	now := time.Now().UTC()
	analysis.CreatedAt = &now
	analysis.UpdatedAt = &now

	return r.NatsBaseRepository.Create(ctx, analysis.SessionUID, analysis)
}

// Exists checks if an analysis exists for the given session
func (r *NatsSessionAnalysisRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, sessionUID)
}

// Get retrieves the analysis for the given session
func (r *NatsSessionAnalysisRepository) Get(ctx context.Context, sessionUID string) (*models.SessionAnalysis, error) {
	return r.NatsBaseRepository.Get(ctx, sessionUID)
}
