// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mutate

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("ramsey.mutate")
	meter  = otel.Meter("ramsey.mutate")
)

var (
	mutationsApplied metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		mutationsApplied, metricsErr = meter.Int64Counter(
			"ramsey_mutations_total",
			metric.WithDescription("Balanced edge-pair flips applied, by strategy"),
		)
	})
	return metricsErr
}

func recordMutation(ctx context.Context, t Type) {
	if initMetrics() != nil {
		return
	}
	mutationsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("type", t.String())))
}

func startMutateSpan(ctx context.Context, repeat int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Mutate",
		trace.WithAttributes(attribute.Int("ramsey.mutation.repeat", repeat)),
	)
}
