// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
)

// NatsSessionTranscriptRepository is the NATS KV store repository for
// diarized transcripts, keyed by session UID. Transcripts are word-level and
// an order of magnitude larger than the other records, so they are stored as
// msgpack rather than JSON.
type NatsSessionTranscriptRepository struct {
	Transcripts INatsKeyValue
}

// NewNatsSessionTranscriptRepository creates a new NATS KV store repository for session transcripts.
func NewNatsSessionTranscriptRepository(transcripts INatsKeyValue) *NatsSessionTranscriptRepository {
	return &NatsSessionTranscriptRepository{
		Transcripts: transcripts,
	}
}

// IsReady checks if the repository is ready
func (s *NatsSessionTranscriptRepository) IsReady(ctx context.Context) bool {
	return s.Transcripts != nil
}

func (s *NatsSessionTranscriptRepository) get(ctx context.Context, sessionUID string) (jetstream.KeyValueEntry, error) {
	return s.Transcripts.Get(ctx, sessionUID)
}

func (s *NatsSessionTranscriptRepository) unmarshal(ctx context.Context, entry jetstream.KeyValueEntry) (*models.SessionTranscript, error) {
	var transcript models.SessionTranscript
	err := msgpack.Unmarshal(entry.Value(), &transcript)
	if err != nil {
		slog.ErrorContext(ctx, "error unmarshaling session transcript", logging.ErrKey, err)
		return nil, err
	}

	return &transcript, nil
}

// Get retrieves the transcript for the given session
func (s *NatsSessionTranscriptRepository) Get(ctx context.Context, sessionUID string) (*models.SessionTranscript, error) {
	if !s.IsReady(ctx) {
		return nil, domain.NewUnavailableError("session transcript repository is not available")
	}

	entry, err := s.get(ctx, sessionUID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, domain.NewNotFoundError("transcript for session '"+sessionUID+"' not found", err)
		}
		slog.ErrorContext(ctx, "error getting session transcript from NATS KV",
			logging.ErrKey, err, "session_uid", sessionUID)
		return nil, domain.NewInternalError("failed to retrieve session transcript from store", err)
	}

	return s.unmarshal(ctx, entry)
}

// Exists checks if a transcript exists for the given session
func (s *NatsSessionTranscriptRepository) Exists(ctx context.Context, sessionUID string) (bool, error) {
	if !s.IsReady(ctx) {
		return false, domain.NewUnavailableError("session transcript repository is not available")
	}

	_, err := s.get(ctx, sessionUID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}
		return false, domain.NewInternalError("failed to check session transcript existence", err)
	}
	return true, nil
}

// Save stores the transcript for its session, replacing any previous copy.
// A re-delivered done event reproduces the same diarization, so a plain put
// is safe here where it would not be for analyses.
func (s *NatsSessionTranscriptRepository) Save(ctx context.Context, transcript *models.SessionTranscript) error {
	if !s.IsReady(ctx) {
		return domain.NewUnavailableError("session transcript repository is not available")
	}
	if transcript.SessionUID == "" {
		return domain.NewValidationError("session transcript requires a session UID")
	}

	if transcript.UID == "" {
		transcript.UID = uuid.New().String()
	}
	now := time.Now().UTC()
	transcript.CreatedAt = &now

	data, err := msgpack.Marshal(transcript)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling session transcript", logging.ErrKey, err)
		return domain.NewInternalError("failed to marshal session transcript", err)
	}

	_, err = s.Transcripts.Put(ctx, transcript.SessionUID, data)
	if err != nil {
		slog.ErrorContext(ctx, "error saving session transcript to NATS KV",
			logging.ErrKey, err, "session_uid", transcript.SessionUID)
		return domain.NewInternalError("failed to save session transcript to store", err)
	}

	return nil
}
