// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/learnloop/session-intel-service/internal/domain/models"
	"github.com/learnloop/session-intel-service/internal/infrastructure/store"
	"github.com/learnloop/session-intel-service/internal/logging"
)

const (
	// natsConnectTimeout bounds the initial NATS connection attempt.
	natsConnectTimeout = 10 * time.Second
	// natsDrainTimeout bounds the NATS drain during graceful shutdown.
	natsDrainTimeout = 25 * time.Second
)

// keyValueStores holds the NATS KV backed repositories of the service.
type keyValueStores struct {
	BotSession *store.NatsBotSessionRepository
	Session    *store.NatsSessionRepository
	Analysis   *store.NatsSessionAnalysisRepository
	Transcript *store.NatsSessionTranscriptRepository
	Profile    *store.NatsChildProfileRepository
}

// natsMessage adapts *nats.Msg to the domain.Message interface consumed by
// the message handlers.
type natsMessage struct {
	msg *nats.Msg
}

func (m *natsMessage) Subject() string {
	return m.msg.Subject
}

func (m *natsMessage) Data() []byte {
	return m.msg.Data
}

func (m *natsMessage) Respond(data []byte) error {
	return m.msg.Respond(data)
}

func (m *natsMessage) HasReply() bool {
	return m.msg.Reply != ""
}

// setupNATS connects to the NATS server backing the KV stores and the
// webhook event subscriptions. The closed handler signals the done channel
// so an unexpected connection loss shuts the whole service down.
func setupNATS(_ context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	slog.With("nats_url", env.NatsURL).Debug("connecting to NATS")

	// The closed handler decrements the wait group once the connection has
	// fully closed, including after a graceful drain.
	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Timeout(natsConnectTimeout),
		nats.DrainTimeout(natsDrainTimeout),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error inside subscription")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error")
			}
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			slog.With(logging.ErrKey, conn.LastError()).Info("NATS connection closed")
			gracefulCloseWG.Done()
			select {
			case done <- syscall.SIGTERM:
			default:
			}
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, err
	}

	return natsConn, nil
}

// getKeyValueStores builds the JetStream KV backed repositories for the
// service, creating any missing buckets.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*keyValueStores, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]jetstream.KeyValue)
	for _, name := range []string{
		store.KVStoreNameBotSessions,
		store.KVStoreNameSessions,
		store.KVStoreNameSessionAnalyses,
		store.KVStoreNameSessionTranscripts,
		store.KVStoreNameChildProfiles,
	} {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
		if err != nil {
			slog.With(logging.ErrKey, err, "bucket", name).Error("error binding key-value bucket")
			return nil, err
		}
		buckets[name] = kv
	}

	return &keyValueStores{
		BotSession: store.NewNatsBotSessionRepository(buckets[store.KVStoreNameBotSessions]),
		Session:    store.NewNatsSessionRepository(buckets[store.KVStoreNameSessions]),
		Analysis:   store.NewNatsSessionAnalysisRepository(buckets[store.KVStoreNameSessionAnalyses]),
		Transcript: store.NewNatsSessionTranscriptRepository(buckets[store.KVStoreNameSessionTranscripts]),
		Profile:    store.NewNatsChildProfileRepository(buckets[store.KVStoreNameChildProfiles]),
	}, nil
}

// createNatsSubcriptions creates the queue subscriptions for the webhook
// event subjects and the scheduler booking subjects. Queue subscriptions let
// replicas share the load while each event is handled once.
func createNatsSubcriptions(ctx context.Context, svc *SessionIntelAPI, natsConn *nats.Conn) error {
	webhookSubjects := map[string]string{
		models.RecallWebhookBotStatusChangeSubject:   models.BotStatusChangeEventType,
		models.RecallWebhookBotTranscriptionSubject:  models.BotTranscriptionEventType,
		models.RecallWebhookBotRecordingReadySubject: models.BotRecordingReadyEventType,
		models.RecallWebhookBotDoneSubject:           models.BotDoneEventType,
	}

	for subject, eventKind := range webhookSubjects {
		_, err := natsConn.QueueSubscribe(subject, models.SessionIntelAPIQueue, func(msg *nats.Msg) {
			if webhookEventsProcessed != nil {
				webhookEventsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("event_kind", eventKind)))
			}
			svc.webhookHandler.HandleMessage(ctx, &natsMessage{msg: msg})
		})
		if err != nil {
			slog.With(logging.ErrKey, err, "subject", subject).Error("error creating NATS subscription")
			return err
		}
		slog.With("subject", subject, "queue", models.SessionIntelAPIQueue).Debug("created NATS subscription")
	}

	schedulerSubjects := []string{
		models.SchedulerSessionCreatedSubject,
		models.SchedulerSessionUpdatedSubject,
		models.SchedulerSessionCancelledSubject,
	}

	for _, subject := range schedulerSubjects {
		_, err := natsConn.QueueSubscribe(subject, models.SessionIntelAPIQueue, func(msg *nats.Msg) {
			svc.schedulerHandler.HandleMessage(ctx, &natsMessage{msg: msg})
		})
		if err != nil {
			slog.With(logging.ErrKey, err, "subject", subject).Error("error creating NATS subscription")
			return err
		}
		slog.With("subject", subject, "queue", models.SessionIntelAPIQueue).Debug("created NATS subscription")
	}

	return nil
}
