// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/logging"
)

// AnalysisService owns session analyses: invoking the pedagogical analyzer
// with the child's history, falling back to the deterministic default when
// the analyzer fails, and persisting the result at most once per session.
type AnalysisService struct {
	analysisRepository domain.SessionAnalysisRepository
	profileRepository  domain.ChildProfileRepository
	analyzer           domain.PedagogicalAnalyzer
	config             ServiceConfig
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	analysisRepository domain.SessionAnalysisRepository,
	profileRepository domain.ChildProfileRepository,
	analyzer domain.PedagogicalAnalyzer,
	config ServiceConfig,
) *AnalysisService {
	return &AnalysisService{
		config:             config,
		analysisRepository: analysisRepository,
		profileRepository:  profileRepository,
		analyzer:           analyzer,
	}
}

// ServiceReady checks if the service is ready for use. The analyzer client
// may be absent when analysis is skipped for local development.
func (s *AnalysisService) ServiceReady() bool {
	return s.analysisRepository != nil &&
		s.profileRepository != nil &&
		(s.analyzer != nil || s.config.SkipAnalysis)
}

// HasAnalysis reports whether an analysis is already recorded for a session.
func (s *AnalysisService) HasAnalysis(ctx context.Context, sessionUID string) (bool, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return false, domain.NewUnavailableError("service not initialized")
	}

	if sessionUID == "" {
		return false, domain.NewValidationError("session UID is required")
	}

	exists, err := s.analysisRepository.Exists(ctx, sessionUID)
	if err != nil {
		slog.ErrorContext(ctx, "error checking if session analysis exists", logging.ErrKey, err)
		return false, err
	}

	return exists, nil
}

// GetAnalysis returns the persisted analysis for a session.
func (s *AnalysisService) GetAnalysis(ctx context.Context, sessionUID string) (*models.SessionAnalysis, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}

	if sessionUID == "" {
		return nil, domain.NewValidationError("session UID is required")
	}

	analysis, err := s.analysisRepository.Get(ctx, sessionUID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting session analysis", logging.ErrKey, err)
		return nil, err
	}

	return analysis, nil
}

// ProduceAnalysis runs the pedagogical analyzer over a completed session's
// transcript, primed with the child's cached profile when one exists. Any
// analyzer failure degrades to the default analysis so a completed session
// is never left without one; the default is flagged for human review. The
// second return reports whether the default was used.
func (s *AnalysisService) ProduceAnalysis(ctx context.Context, session *models.ScheduledSession, transcriptText string) (*models.SessionAnalysis, bool) {
	if session == nil {
		return nil, false
	}

	if s.config.SkipAnalysis {
		slog.DebugContext(ctx, "analysis skipped by configuration", "session_uid", session.UID)
		return models.DefaultSessionAnalysis(session.UID, session.ChildUID), true
	}

	if transcriptText == "" {
		slog.WarnContext(ctx, "no transcript available for analysis", "session_uid", session.UID)
		return models.DefaultSessionAnalysis(session.UID, session.ChildUID), true
	}

	history := s.childHistory(ctx, session.ChildUID)

	analysis, err := s.analyzer.Analyze(ctx, transcriptText, history)
	if err != nil {
		slog.ErrorContext(ctx, "analyzer failed, recording default analysis",
			logging.ErrKey, err,
			"session_uid", session.UID,
		)
		return models.DefaultSessionAnalysis(session.UID, session.ChildUID), true
	}

	analysis.SessionUID = session.UID
	analysis.ChildUID = session.ChildUID

	return analysis, false
}

// RecordAnalysis persists an analysis. The record is keyed by session UID,
// so the keyed create enforces at most one analysis per session; a conflict
// returns false with no error, meaning another worker recorded it first.
func (s *AnalysisService) RecordAnalysis(ctx context.Context, analysis *models.SessionAnalysis) (bool, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return false, domain.NewUnavailableError("service not initialized")
	}

	if analysis == nil || analysis.SessionUID == "" {
		return false, domain.NewValidationError("session analysis with session UID is required")
	}

	if err := s.analysisRepository.Create(ctx, analysis); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.InfoContext(ctx, "session analysis already recorded", "session_uid", analysis.SessionUID)
			return false, nil
		}
		slog.ErrorContext(ctx, "error creating session analysis", logging.ErrKey, err)
		return false, err
	}

	slog.DebugContext(ctx, "session analysis recorded",
		"session_uid", analysis.SessionUID,
		"session_analysis_uid", analysis.UID,
	)

	return true, nil
}

// childHistory loads the child's cached profile for analyzer priming.
// Best-effort: a missing or unreadable profile just means an unprimed
// analysis.
func (s *AnalysisService) childHistory(ctx context.Context, childUID string) *models.ChildProfile {
	if childUID == "" {
		return nil
	}

	profile, err := s.profileRepository.Get(ctx, childUID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "error getting child profile for analysis", logging.ErrKey, err)
		}
		return nil
	}

	return profile
}
