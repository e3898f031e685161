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
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Config configures an Engine.
type Config struct {
	// Primary is used for every step except each Interval+1-th one.
	Primary Type

	// Secondary is used once after every Interval primary steps.
	Secondary Type

	// Interval is the number of primary steps between secondary steps.
	// Zero means the secondary type is used every step.
	Interval int

	// Repeat is the number of pairs flipped per Mutate call. Must be positive.
	Repeat int

	// EdgeRange is the ranked window used by Comprehensive. Values below 1
	// are treated as 1.
	EdgeRange int

	// Aggressive switches Balanced to the highest-rank opposite edge.
	Aggressive bool
}

// Scheduler alternates between a primary and a secondary mutation type.
//
// With Interval=2 the sequence is P, P, S, P, P, S, ...
//
// Thread Safety: Not safe for concurrent use.
type Scheduler struct {
	primary   Type
	secondary Type
	interval  int
	count     int
}

// NewScheduler creates a scheduler. A negative interval is treated as zero.
func NewScheduler(primary, secondary Type, interval int) *Scheduler {
	return &Scheduler{primary: primary, secondary: secondary, interval: max(interval, 0)}
}

// Next returns the type for the next mutation and advances the cadence.
func (s *Scheduler) Next() Type {
	s.count++
	if s.count > s.interval {
		s.count = 0
		return s.secondary
	}
	return s.primary
}

// Engine applies balance-preserving mutations to a graph.
//
// Thread Safety: Not safe for concurrent use. The controller owns the
// engine together with the graph it mutates.
type Engine struct {
	cfg        Config
	strategies map[Type]Strategy
	scheduler  *Scheduler
	rng        *rand.Rand
	logger     *slog.Logger
}

// NewEngine builds an engine for cfg.
//
// Inputs:
//
//	cfg - Engine configuration.
//	rng - Random source. Must not be nil.
//	logger - Logger. Nil uses slog.Default().
//
// Outputs:
//
//	*Engine - Ready engine.
//	error - ErrInvalidConfig for a non-positive Repeat, unknown types or nil rng.
func NewEngine(cfg Config, rng *rand.Rand, logger *slog.Logger) (*Engine, error) {
	if cfg.Repeat < 1 {
		return nil, fmt.Errorf("%w: repeat %d", ErrInvalidConfig, cfg.Repeat)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	for _, t := range []Type{cfg.Primary, cfg.Secondary} {
		if _, ok := typeNames[t]; !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, t)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg: cfg,
		strategies: map[Type]Strategy{
			Random:        RandomStrategy{},
			Targeted:      TargetedStrategy{},
			Balanced:      BalancedStrategy{Aggressive: cfg.Aggressive},
			Comprehensive: ComprehensiveStrategy{EdgeRange: cfg.EdgeRange},
		},
		scheduler: NewScheduler(cfg.Primary, cfg.Secondary, cfg.Interval),
		rng:       rng,
		logger:    logger,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Mutate flips Repeat balanced pairs in g and then clears reg.
//
// Description:
//
//	Each repeat asks the scheduler for a type, lets that strategy choose a
//	pair from the current graph and registry, checks the pair is one Red
//	edge and one Blue edge, and flips both. Cliques broken by the flip are
//	pruned so later repeats only target cliques that still exist. If an
//	earlier repeat broke every recorded clique, a clique-driven type falls
//	back to Random. The registry is cleared once all repeats succeed,
//	since the next detection rebuilds it.
//
// Inputs:
//
//	ctx - Trace context.
//	g - Graph to mutate in place.
//	reg - Cliques from the latest detection.
//
// Outputs:
//
//	[]Mutation - The pairs applied, in order.
//	error - Strategy or validation failure. Pairs applied before the
//	  failure stay applied; g remains balanced.
func (e *Engine) Mutate(ctx context.Context, g *graph.Graph, reg *clique.Registry) ([]Mutation, error) {
	_, span := startMutateSpan(ctx, e.cfg.Repeat)
	defer span.End()

	applied := make([]Mutation, 0, e.cfg.Repeat)
	for i := 0; i < e.cfg.Repeat; i++ {
		t := e.scheduler.Next()
		if i > 0 && (t == Targeted || t == Balanced) && reg.Len() == 0 {
			t = Random
		}
		pair, err := e.strategies[t].Choose(g, reg, e.rng)
		if err == nil {
			err = checkPair(g, pair)
		}
		if err != nil {
			err = fmt.Errorf("%s mutation: %w", t, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return applied, err
		}

		g.Flip(pair.Red.U, pair.Red.V)
		g.Flip(pair.Blue.U, pair.Blue.V)
		reg.Prune(graph.Red, pair.Red)
		reg.Prune(graph.Blue, pair.Blue)
		applied = append(applied, Mutation{Type: t, Pair: pair})
		recordMutation(ctx, t)

		e.logger.Debug("mutation applied",
			slog.String("type", t.String()),
			slog.String("red_to_blue", pair.Red.String()),
			slog.String("blue_to_red", pair.Blue.String()),
		)
	}
	reg.Clear()

	span.SetAttributes(attribute.Int("ramsey.mutations", len(applied)))
	span.SetStatus(codes.Ok, "")
	return applied, nil
}

// checkPair verifies the pair is one Red edge and one Blue edge of g.
func checkPair(g *graph.Graph, p Pair) error {
	n := g.N()
	for _, e := range []graph.Edge{p.Red, p.Blue} {
		if e.U < 0 || e.V >= n || e.U >= e.V {
			return fmt.Errorf("%w: edge %s out of range", ErrUnbalancedPair, e)
		}
	}
	if g.EdgeColor(p.Red.U, p.Red.V) != graph.Red || g.EdgeColor(p.Blue.U, p.Blue.V) != graph.Blue {
		return fmt.Errorf("%w: %s is %s, %s is %s", ErrUnbalancedPair,
			p.Red, g.EdgeColor(p.Red.U, p.Red.V), p.Blue, g.EdgeColor(p.Blue.U, p.Blue.V))
	}
	return nil
}
