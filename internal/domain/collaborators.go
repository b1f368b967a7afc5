// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// PedagogicalAnalyzer turns a diarized transcript into a structured session
// analysis. It is called at most once per completed session; its structured
// output is opaque to this service. Failures are recovered locally with a
// default analysis, never surfaced to the webhook source.
type PedagogicalAnalyzer interface {
	Analyze(ctx context.Context, transcript string, history *models.ChildProfile) (*models.SessionAnalysis, error)
}

// ArchiveRequest identifies the recording to archive.
type ArchiveRequest struct {
	BotID       string
	SessionUID  string
	ChildUID    string
	SessionDate time.Time
}

// ArchiveResult is where the archived audio ended up.
type ArchiveResult struct {
	StoragePath string `json:"storage_path"`
	PublicURL   string `json:"public_url"`
}

// AudioArchiver copies a session's recording into long-term storage.
// Best-effort: a failure is logged and recorded as absent, never escalated.
type AudioArchiver interface {
	Archive(ctx context.Context, req ArchiveRequest) (*ArchiveResult, error)
}

// EmbeddingGenerator produces a vector for semantic search over session
// transcripts. Best-effort: a failure never alters the session record.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WebhookValidator validates inbound webhook signatures.
type WebhookValidator interface {
	ValidateSignature(body []byte, signature string, timestamp string) error
}
