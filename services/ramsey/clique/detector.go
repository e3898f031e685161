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
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	// K is the clique size searched for. Must be at least 2.
	K int

	// Workers is the size of the worker pool. Must be positive.
	Workers int

	// Strategy selects exhaustive (All) or first-hit (First) search.
	Strategy Strategy
}

// Result is the outcome of a two-color detection pass.
type Result struct {
	Red      int
	Blue     int
	Duration time.Duration
}

// Total returns Red + Blue.
func (r Result) Total() int {
	return r.Red + r.Blue
}

// Detector runs detection rounds on a long-lived worker pool.
type Detector struct {
	cfg    DetectorConfig
	pool   *Pool
	logger *slog.Logger
}

// NewDetector validates cfg and starts the worker pool.
//
// Inputs:
//
//	cfg - Detector configuration.
//	logger - Logger. Nil uses slog.Default().
//
// Outputs:
//
//	*Detector - Ready detector. Call Close when the run ends.
//	error - ErrInvalidConfig for K < 2 or Workers < 1.
func NewDetector(cfg DetectorConfig, logger *slog.Logger) (*Detector, error) {
	if cfg.K < 2 {
		return nil, fmt.Errorf("%w: clique size %d", ErrInvalidConfig, cfg.K)
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewPool(cfg.Workers, logger)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, pool: pool, logger: logger}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// Detect clears reg and fills it with the K-cliques of both colors.
//
// Description:
//
//	Runs a Red round then a Blue round against the same graph. Both rounds
//	read g only; the caller must not mutate g until Detect returns.
//
// Inputs:
//
//	ctx - Cancellation and trace context.
//	g - Graph to search.
//	reg - Registry to fill. Cleared first.
//
// Outputs:
//
//	Result - Clique counts per color and elapsed time.
//	error - Any round failure; the registry content is then unusable.
func (d *Detector) Detect(ctx context.Context, g *graph.Graph, reg *Registry) (Result, error) {
	ctx, span := startDetectSpan(ctx, g.N(), d.cfg.K, d.pool.Workers(), d.cfg.Strategy)
	defer span.End()

	start := time.Now()
	reg.Clear()

	var result Result
	for _, c := range graph.Colors {
		n, err := d.DetectColor(ctx, g, c, reg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		if c == graph.Red {
			result.Red = n
		} else {
			result.Blue = n
		}
	}
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("ramsey.cliques.red", result.Red),
		attribute.Int("ramsey.cliques.blue", result.Blue),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// DetectColor adds the K-cliques of color c to reg without clearing it.
func (d *Detector) DetectColor(ctx context.Context, g *graph.Graph, c graph.Color, reg *Registry) (int, error) {
	start := time.Now()
	stats, err := d.pool.Run(ctx, g, c, d.cfg.K, d.cfg.Strategy, reg)
	recordRoundMetrics(ctx, stats, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("detect %s cliques: %w", c, err)
	}

	d.logger.Debug("detection round complete",
		slog.String("color", c.String()),
		slog.Int("cliques", stats.Cliques),
		slog.Int("start_vertices", stats.StartVertices),
		slog.Bool("stopped_early", stats.Stopped),
		slog.Duration("duration", time.Since(start)),
	)
	return stats.Cliques, nil
}

// Close stops the worker pool.
func (d *Detector) Close() {
	d.pool.Close()
}
