// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/learnloop/session-intel-service/pkg/utils"
)

// meterName is the instrumentation name for the service metrics.
const meterName = "github.com/learnloop/session-intel-service/cmd/session-intel-api"

// webhookEventsProcessed counts Recall webhook events consumed from NATS,
// labeled by event kind.
var webhookEventsProcessed metric.Int64Counter

// setupOTel initializes the OpenTelemetry SDK from the OTEL_* environment
// variables and registers the service meters. The returned shutdown function
// flushes pending telemetry.
func setupOTel(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		return nil, err
	}

	meter := otel.Meter(meterName)
	webhookEventsProcessed, err = meter.Int64Counter(
		"session_intel.webhook_events_processed",
		metric.WithDescription("Number of Recall webhook events consumed from NATS"),
	)
	if err != nil {
		return nil, err
	}

	return shutdown, nil
}
