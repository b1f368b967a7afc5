// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// NatsChildProfileRepository is the NATS KV store repository for the child
// profile cache, keyed by child UID.
type NatsChildProfileRepository struct {
	*NatsBaseRepository[models.ChildProfile]
}

// NewNatsChildProfileRepository creates a new NATS KV store repository for child profiles.
func NewNatsChildProfileRepository(kvStore INatsKeyValue) *NatsChildProfileRepository {
	return &NatsChildProfileRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ChildProfile](kvStore, "child profile"),
	}
}

// IsReady checks if the repository is ready
func (r *NatsChildProfileRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Get retrieves a child profile by child UID
func (r *NatsChildProfileRepository) Get(ctx context.Context, childUID string) (*models.ChildProfile, error) {
	return r.NatsBaseRepository.Get(ctx, childUID)
}

// GetWithRevision retrieves a child profile with its revision by child UID
func (r *NatsChildProfileRepository) GetWithRevision(ctx context.Context, childUID string) (*models.ChildProfile, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, childUID)
}

// Save stores a profile without concurrency control, used for the first
// write of a previously uncached child.
func (r *NatsChildProfileRepository) Save(ctx context.Context, profile *models.ChildProfile) error {
	if profile.UID == "" {
		return domain.NewValidationError("child profile requires a child UID")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = &now

	return r.NatsBaseRepository.Create(ctx, profile.UID, profile)
}

// Update updates an existing profile with optimistic concurrency control
func (r *NatsChildProfileRepository) Update(ctx context.Context, profile *models.ChildProfile, revision uint64) error {
	now := time.Now().UTC()
	profile.UpdatedAt = &now

	return r.NatsBaseRepository.Update(ctx, profile.UID, profile, revision)
}
