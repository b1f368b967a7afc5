// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package main is the session intelligence API. It receives Recall webhook
// deliveries over HTTP, queues them on NATS, and consumes them to classify
// what actually happened in each tutoring session.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/learnloop/session-intel-service/internal/domain"
	"github.com/learnloop/session-intel-service/internal/handlers"
	"github.com/learnloop/session-intel-service/internal/infrastructure/analyzer"
	"github.com/learnloop/session-intel-service/internal/infrastructure/archiver"
	"github.com/learnloop/session-intel-service/internal/infrastructure/embedding"
	"github.com/learnloop/session-intel-service/internal/infrastructure/messaging"
	recallwebhook "github.com/learnloop/session-intel-service/internal/infrastructure/recall/webhook"
	"github.com/learnloop/session-intel-service/internal/logging"
	"github.com/learnloop/session-intel-service/internal/service"
)

// httpShutdownTimeout bounds the HTTP server drain during graceful shutdown.
const httpShutdownTimeout = 25 * time.Second

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Initialize OpenTelemetry
	otelShutdown, err := setupOTel(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		SkipAnalysis: env.SkipAnalysis,
	}
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	webhookValidator := recallwebhook.NewRecallWebhookValidator(env.RecallWebhookSigningSecret)

	// The analyzer is required for completed-session classification unless
	// SKIP_ANALYSIS is set; the archiver and embedder are best-effort.
	var pedagogicalAnalyzer domain.PedagogicalAnalyzer
	if env.Analyzer.BaseURL != "" {
		pedagogicalAnalyzer = analyzer.NewClient(analyzer.Config{
			BaseURL: env.Analyzer.BaseURL,
			APIKey:  env.Analyzer.APIKey,
		})
	}
	var audioArchiver domain.AudioArchiver
	if env.Archive.BaseURL != "" {
		audioArchiver = archiver.NewClient(archiver.Config{
			BaseURL:      env.Archive.BaseURL,
			TokenURL:     env.Archive.TokenURL,
			ClientID:     env.Archive.ClientID,
			ClientSecret: env.Archive.ClientSecret,
			Audience:     env.Archive.Audience,
		})
	}
	var embeddingGenerator domain.EmbeddingGenerator
	if env.Embedding.BaseURL != "" {
		embeddingGenerator = embedding.NewClient(embedding.Config{
			BaseURL: env.Embedding.BaseURL,
			APIKey:  env.Embedding.APIKey,
			Model:   env.Embedding.Model,
		})
	}

	botSessionService := service.NewBotSessionService(
		repos.BotSession,
		repos.Session,
		serviceConfig,
	)
	sessionService := service.NewSessionService(
		repos.Session,
		messageBuilder,
		serviceConfig,
	)
	analysisService := service.NewAnalysisService(
		repos.Analysis,
		repos.Profile,
		pedagogicalAnalyzer,
		serviceConfig,
	)
	sessionPersister := service.NewSessionPersister(
		repos.Session,
		repos.Transcript,
		repos.Profile,
		analysisService,
		audioArchiver,
		embeddingGenerator,
		messageBuilder,
		serviceConfig,
	)
	webhookService := service.NewRecallWebhookService(messageBuilder, webhookValidator)

	// Initialize handlers
	recallWebhookHandler := handlers.NewRecallWebhookHandler(
		botSessionService,
		sessionService,
		sessionPersister,
	)
	schedulerHandler := handlers.NewSchedulerHandlers(
		sessionService,
		botSessionService,
	)

	svc := NewSessionIntelAPI(webhookService, recallWebhookHandler, schedulerHandler)

	httpServer := setupHTTPServer(flags, svc, &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	err = createNatsSubcriptions(ctx, svc, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, &gracefulCloseWG, cancel)
}

// gracefulShutdown drains the HTTP server and the NATS connection, then
// waits for background goroutines to finish.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down http server")
	}
	// The listener goroutine does not decrement the wait group itself because
	// ListenAndServe returns before Shutdown completes.
	gracefulCloseWG.Done()

	// Draining lets in-flight message handlers finish; the closed handler
	// releases the final wait group slot once the connection is fully closed.
	if !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	cancel()
	gracefulCloseWG.Wait()
	slog.Info("graceful shutdown complete")
}
