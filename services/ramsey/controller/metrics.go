// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ramsey.controller")

// =============================================================================
// Prometheus Metrics for the Search Loop
// =============================================================================

var (
	// iterationsTotal counts completed detection passes.
	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "iterations_total",
		Help:      "Detection passes completed",
	})

	// decisionsTotal counts evaluate outcomes.
	// Labels: decision (checkpoint, rollback)
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "decisions_total",
		Help:      "Evaluate outcomes by decision",
	}, []string{"decision"})

	// mutationsTotal counts applied mutation pairs.
	// Labels: type (RANDOM, TARGETED, BALANCED, COMPREHENSIVE)
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "mutations_total",
		Help:      "Mutation pairs applied by strategy",
	}, []string{"type"})

	// cliqueCount is the clique count of the latest detection.
	// Labels: color (RED, BLUE)
	cliqueCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "cliques",
		Help:      "Cliques found by the latest detection",
	}, []string{"color"})

	// bestCliqueCount is the lowest clique count seen in the run.
	bestCliqueCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "best_cliques",
		Help:      "Lowest clique count seen in the run",
	})

	// persistFailures counts checkpoint, solution and sink writes that failed.
	// Labels: target (checkpoint, solution, notify, sink)
	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "persist_failures_total",
		Help:      "Failed writes to stores, notifiers and sinks",
	}, []string{"target"})

	// phaseDuration measures time spent per search phase.
	// Labels: phase (detect, mutate, checkpoint, stats)
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ramsey",
		Subsystem: "search",
		Name:      "phase_duration_seconds",
		Help:      "Time spent per search phase",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
	}, []string{"phase"})
)
