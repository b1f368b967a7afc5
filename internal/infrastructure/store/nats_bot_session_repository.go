// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// NatsBotSessionRepository is the NATS KV store repository for the bot
// session registry. Keys are derived from the provider's opaque bot id, so
// they are always encoded.
type NatsBotSessionRepository struct {
	*NatsBaseRepository[models.BotSession]
	keyBuilder *KeyBuilder
}

// NewNatsBotSessionRepository creates a new NATS KV store repository for bot sessions.
func NewNatsBotSessionRepository(kvStore INatsKeyValue) *NatsBotSessionRepository {
	return &NatsBotSessionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.BotSession](kvStore, "bot session"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// IsReady checks if the repository is ready
func (r *NatsBotSessionRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

func (r *NatsBotSessionRepository) key(botID string) string {
	return r.keyBuilder.EntityKeyEncoded(KeyPrefixBotSession, botID)
}

// Create stores a new bot session record
func (r *NatsBotSessionRepository) Create(ctx context.Context, botSession *models.BotSession) error {
	if botSession.UID == "" {
		botSession.UID = uuid.New().String()
	}

	now := time.Now().UTC()
	botSession.CreatedAt = &now
	botSession.UpdatedAt = &now

	return r.NatsBaseRepository.Create(ctx, r.key(botSession.BotID), botSession)
}

// Exists checks if a bot session exists for the given bot id
func (r *NatsBotSessionRepository) Exists(ctx context.Context, botID string) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, r.key(botID))
}

// Get retrieves a bot session by bot id
func (r *NatsBotSessionRepository) Get(ctx context.Context, botID string) (*models.BotSession, error) {
	return r.NatsBaseRepository.Get(ctx, r.key(botID))
}

// GetWithRevision retrieves a bot session with its revision by bot id
func (r *NatsBotSessionRepository) GetWithRevision(ctx context.Context, botID string) (*models.BotSession, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.key(botID))
}

// Update updates an existing bot session with optimistic concurrency control
func (r *NatsBotSessionRepository) Update(ctx context.Context, botSession *models.BotSession, revision uint64) error {
	now := time.Now().UTC()
	botSession.UpdatedAt = &now

	return r.NatsBaseRepository.Update(ctx, r.key(botSession.BotID), botSession, revision)
}
