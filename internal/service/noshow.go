// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/pkg/utils"
)

// DetectNoShow classifies a provider leave-reason pair the moment a
// status-change event reports it, without waiting for the bot-done event.
// The no-show code family maps to no_show, the technical-failure family to
// bot_error. The second return is false for codes outside both families.
//
// The recorded reason prefers the provider's human-readable message and
// falls back to the raw code.
func DetectNoShow(code, message string) (models.SessionOutcome, bool) {
	reason := utils.CoalesceString(message, code)

	switch code {
	case models.CodeWaitingRoomTimeout, models.CodeNooneJoinedTimeout, models.CodeEveryoneLeftTimeout:
		return models.SessionOutcome{Status: models.SessionStatusNoShow, Reason: reason}, true
	case models.CodeFatalError, models.CodeBotKicked, models.CodeConnectionFailed:
		return models.SessionOutcome{Status: models.SessionStatusBotError, Reason: reason}, true
	}

	return models.SessionOutcome{}, false
}
