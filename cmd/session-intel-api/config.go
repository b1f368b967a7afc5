// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/learnloop/session-intel-service/internal/logging"
)

// flags are the command line flags for the session intelligence service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the session intelligence service.
type environment struct {
	Port    string `env:"PORT" envDefault:"8080"`
	NatsURL string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	// RecallWebhookSigningSecret verifies inbound webhook signatures. Until
	// it is set the webhook endpoint rejects every delivery.
	RecallWebhookSigningSecret string `env:"RECALL_WEBHOOK_SIGNING_SECRET"`

	// SkipAnalysis records the default analysis for every completed session
	// instead of calling the generative analyzer. Local development only.
	SkipAnalysis bool `env:"SKIP_ANALYSIS" envDefault:"false"`

	Analyzer  analyzerEnv
	Archive   archiveEnv
	Embedding embeddingEnv
}

// analyzerEnv holds the pedagogical analyzer client configuration.
type analyzerEnv struct {
	BaseURL string `env:"ANALYZER_BASE_URL"`
	APIKey  string `env:"ANALYZER_API_KEY"`
}

// archiveEnv holds the audio archive client configuration.
type archiveEnv struct {
	BaseURL      string `env:"ARCHIVE_BASE_URL"`
	TokenURL     string `env:"ARCHIVE_TOKEN_URL"`
	ClientID     string `env:"ARCHIVE_CLIENT_ID"`
	ClientSecret string `env:"ARCHIVE_CLIENT_SECRET"`
	Audience     string `env:"ARCHIVE_AUDIENCE"`
}

// embeddingEnv holds the embedding client configuration.
type embeddingEnv struct {
	BaseURL string `env:"EMBEDDING_BASE_URL"`
	APIKey  string `env:"EMBEDDING_API_KEY"`
	Model   string `env:"EMBEDDING_MODEL"`
}

// parseFlags parses command line flags for the session intelligence service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the session intelligence service
func parseEnv() environment {
	// Optional .env for local development. Deployments inject real env vars.
	_ = godotenv.Load()

	var e environment
	if err := env.Parse(&e); err != nil {
		slog.With(logging.ErrKey, err).Error("error parsing environment variables")
		os.Exit(1)
	}

	return e
}
