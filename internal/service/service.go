// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// SkipAnalysis skips the generative analyzer and records the default
	// analysis for every completed session - only meant for local development.
	SkipAnalysis bool
}
