// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package clique

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for detection.
var (
	tracer = otel.Tracer("ramsey.clique")
	meter  = otel.Meter("ramsey.clique")
)

var (
	roundLatency  metric.Float64Histogram
	cliquesFound  metric.Int64Counter
	roundFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		roundLatency, err = meter.Float64Histogram(
			"ramsey_detect_round_duration_seconds",
			metric.WithDescription("Duration of one single-color detection round"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cliquesFound, err = meter.Int64Counter(
			"ramsey_cliques_found_total",
			metric.WithDescription("Cliques recorded by detection rounds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		roundFailures, err = meter.Int64Counter(
			"ramsey_detect_round_failures_total",
			metric.WithDescription("Detection rounds that returned an error"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRoundMetrics records metrics for one color round.
func recordRoundMetrics(ctx context.Context, stats RoundStats, duration time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("color", stats.Color.String()))

	roundLatency.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		roundFailures.Add(ctx, 1, attrs)
		return
	}
	cliquesFound.Add(ctx, int64(stats.Cliques), attrs)
}

// startDetectSpan creates a span for a two-color detection pass.
func startDetectSpan(ctx context.Context, n, k, workers int, strategy Strategy) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Detector.Detect",
		trace.WithAttributes(
			attribute.Int("ramsey.n", n),
			attribute.Int("ramsey.k", k),
			attribute.Int("ramsey.workers", workers),
			attribute.String("ramsey.strategy", strategy.String()),
		),
	)
}
