// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package controller drives the counterexample search.
//
// The controller owns the graph. Detection reads it from the worker pool,
// mutation and rollback write it from the controller goroutine, and the two
// never overlap. Each loop iteration detects cliques, keeps the coloring if
// it is no worse than the best seen (checkpoint) or reverts to the best
// (rollback), and mutates. A detection that finds nothing ends the search.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/ramsey/services/ramsey/checkpoint"
	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
	"github.com/AleutianAI/ramsey/services/ramsey/mutate"
	"github.com/AleutianAI/ramsey/services/ramsey/notify"
	"github.com/AleutianAI/ramsey/services/ramsey/telemetry"
)

// Config is the immutable search configuration.
type Config struct {
	// N is the number of vertices of the complete graph.
	N int

	// K is the forbidden monochromatic clique size.
	K int

	// Workers is the detection pool size.
	Workers int

	// Strategy selects exhaustive (All) or first-hit (First) detection.
	Strategy clique.Strategy

	Mutation mutate.Config

	// MaxIterations bounds the number of detections. Zero is unbounded.
	MaxIterations int64

	// LogInterval is the minimum time between Info progress lines.
	// Zero means 10s.
	LogInterval time.Duration

	// Seed seeds the random source when Deps.Rand is nil. Zero picks a
	// time-based seed.
	Seed uint64

	// RunID names the run. Empty generates a UUID.
	RunID string
}

// Iteration describes one evaluated detection, for time-series sinks.
type Iteration struct {
	RunID     string
	N         int
	K         int
	Number    int64
	Red       int
	Blue      int
	Best      int
	Decision  State
	DetectFor time.Duration
	Time      time.Time
}

// IterationSink receives one Iteration per evaluate step.
type IterationSink interface {
	WriteIteration(ctx context.Context, it Iteration) error
}

// Deps are the collaborators of a Controller. Every field is optional.
type Deps struct {
	Logger *slog.Logger

	// Store persists checkpoints and the solution. Failures are logged.
	Store checkpoint.Store

	// Notifier receives the solution. Failures are logged.
	Notifier notify.Notifier

	// Sink receives per-iteration statistics. Failures are logged.
	Sink IterationSink

	// Initial is the starting coloring. Nil generates a balanced random
	// coloring. The controller takes ownership.
	Initial *graph.Graph

	// Rand overrides the random source built from Config.Seed.
	Rand *rand.Rand
}

// Stats is a point-in-time view of a run.
type Stats struct {
	RunID          string             `json:"run_id"`
	State          string             `json:"state"`
	N              int                `json:"n"`
	K              int                `json:"k"`
	Iterations     int64              `json:"iterations"`
	CurrentCliques int                `json:"current_cliques"`
	RedCliques     int                `json:"red_cliques"`
	BlueCliques    int                `json:"blue_cliques"`
	BestCliques    int                `json:"best_cliques"` // -1 before the first checkpoint
	Checkpoints    int64              `json:"checkpoints"`
	Rollbacks      int64              `json:"rollbacks"`
	Mutations      map[string]int64   `json:"mutations"`
	LastMutation   time.Time          `json:"last_mutation"`
	PhaseSeconds   map[string]float64 `json:"phase_seconds"`
	StartedAt      time.Time          `json:"started_at"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Solved         bool               `json:"solved"`
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Iterations int64
	Elapsed    time.Duration

	// Solution is the counterexample, or nil if the run did not finish.
	Solution *graph.Graph

	Stats Stats
}

// Controller runs the search loop.
//
// Thread Safety: Run and Step must be called from one goroutine. Stats,
// Graph, State and RunID are safe to call concurrently with it.
type Controller struct {
	cfg      Config
	logger   *slog.Logger
	store    checkpoint.Store
	notifier notify.Notifier
	sink     IterationSink
	detector *clique.Detector
	engine   *mutate.Engine
	runID    string

	graphMu sync.RWMutex
	g       *graph.Graph
	reg     *clique.Registry

	state      State
	best       *checkpoint.Snapshot
	last       clique.Result
	iteration  int64
	solution   *graph.Graph
	timer      Timer
	progress   rate.Sometimes
	sinkWarn   rate.Sometimes
	started    time.Time
	startedSet bool

	statsMu sync.Mutex
	stats   Stats
}

// New validates cfg, prepares the initial coloring and starts the
// detection worker pool.
//
// Inputs:
//
//	cfg - Search configuration.
//	deps - Collaborators. Zero value is valid.
//
// Outputs:
//
//	*Controller - Ready controller in state Detect. Call Close when done.
//	error - ErrInvalidConfig (possibly wrapping a component error).
func New(cfg Config, deps Deps) (*Controller, error) {
	if cfg.N < 2 || cfg.K < 2 || cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: n=%d k=%d workers=%d", ErrInvalidConfig, cfg.N, cfg.K, cfg.Workers)
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 10 * time.Second
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("run_id", cfg.RunID))

	rng := deps.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	}

	g := deps.Initial
	if g == nil {
		var err error
		if g, err = graph.Generate(cfg.N, rng); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	} else if g.N() != cfg.N {
		return nil, fmt.Errorf("%w: initial coloring has %d vertices, want %d: %w",
			ErrInvalidConfig, g.N(), cfg.N, graph.ErrSizeMismatch)
	}

	engine, err := mutate.NewEngine(cfg.Mutation, rng, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	detector, err := clique.NewDetector(clique.DetectorConfig{
		K:        cfg.K,
		Workers:  cfg.Workers,
		Strategy: cfg.Strategy,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := &Controller{
		cfg:      cfg,
		logger:   logger,
		store:    deps.Store,
		notifier: deps.Notifier,
		sink:     deps.Sink,
		detector: detector,
		engine:   engine,
		runID:    cfg.RunID,
		g:        g,
		reg:      clique.NewRegistry(),
		state:    Detect,
		progress: rate.Sometimes{First: 1, Interval: cfg.LogInterval},
		sinkWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}
	c.stats = Stats{
		RunID:       cfg.RunID,
		State:       Detect.String(),
		N:           cfg.N,
		K:           cfg.K,
		BestCliques: -1,
		Mutations:   make(map[string]int64),
	}
	return c, nil
}

// RunID returns the run identifier.
func (c *Controller) RunID() string {
	return c.runID
}

// State returns the state the next Step will execute.
func (c *Controller) State() State {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.state
}

// Graph returns a copy of the current coloring.
func (c *Controller) Graph() *graph.Graph {
	c.graphMu.RLock()
	defer c.graphMu.RUnlock()
	return c.g.Clone()
}

// Stats returns a snapshot of the run statistics.
func (c *Controller) Stats() Stats {
	c.statsMu.Lock()
	s := c.stats
	s.Mutations = maps.Clone(c.stats.Mutations)
	c.statsMu.Unlock()

	s.PhaseSeconds = make(map[string]float64, numPhases)
	for name, d := range c.timer.Totals() {
		s.PhaseSeconds[name] = d.Seconds()
	}
	if !s.StartedAt.IsZero() {
		s.ElapsedSeconds = time.Since(s.StartedAt).Seconds()
	}
	return s
}

// Close stops the detection worker pool.
func (c *Controller) Close() {
	c.detector.Close()
}

// Run steps the search until a counterexample is found.
//
// Description:
//
//	Loops Step until the Terminal state. Returns early on the first step
//	error: a detection or mutation failure, ErrIterationLimit, or the
//	context error on cancellation. Checkpoint, solution, notification and
//	sink failures are logged and never end the run.
//
// Outputs:
//
//	*Result - Always non-nil. Solution is set only on success.
//	error - Why the run stopped without a solution.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Controller.Run",
		trace.WithAttributes(
			attribute.String("ramsey.run_id", c.runID),
			attribute.Int("ramsey.n", c.cfg.N),
			attribute.Int("ramsey.k", c.cfg.K),
			attribute.Int("ramsey.workers", c.cfg.Workers),
		),
	)
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, c.logger)
	c.logger = logger
	c.markStarted()

	logger.Info("search started",
		slog.Int("n", c.cfg.N),
		slog.Int("k", c.cfg.K),
		slog.Int("workers", c.cfg.Workers),
		slog.String("strategy", c.cfg.Strategy.String()),
		slog.String("primary", c.cfg.Mutation.Primary.String()),
		slog.String("secondary", c.cfg.Mutation.Secondary.String()),
		slog.String("edges", c.g.CountSummary()),
	)

	for {
		state, err := c.Step(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
			logger.Warn("search stopped",
				slog.String("error", err.Error()),
				slog.Int64("iterations", c.iteration),
			)
			return c.result(), err
		}
		if state == Terminal {
			break
		}
	}

	span.SetAttributes(attribute.Int64("ramsey.iterations", c.iteration))
	telemetry.SetSpanOK(span)
	return c.result(), nil
}

func (c *Controller) markStarted() {
	if c.startedSet {
		return
	}
	c.startedSet = true
	c.started = time.Now()
	c.statsMu.Lock()
	c.stats.StartedAt = c.started
	c.statsMu.Unlock()
}

func (c *Controller) result() *Result {
	r := &Result{
		RunID:      c.runID,
		Iterations: c.iteration,
		Solution:   c.solution,
		Stats:      c.Stats(),
	}
	if c.startedSet {
		r.Elapsed = time.Since(c.started)
	}
	return r
}

// Step executes the current state and advances to the next one.
//
// Terminal is absorbing: stepping it again does nothing. On error the
// state is left unchanged.
func (c *Controller) Step(ctx context.Context) (State, error) {
	if c.state == Terminal {
		return Terminal, nil
	}
	if err := ctx.Err(); err != nil {
		return c.state, err
	}
	c.markStarted()

	var (
		next State
		err  error
	)
	switch c.state {
	case Detect:
		next, err = c.detect(ctx)
	case Evaluate:
		next = c.evaluate()
	case Checkpoint:
		c.checkpoint(ctx)
		next = Mutate
	case Rollback:
		err = c.rollback(ctx)
		next = Mutate
	case Mutate:
		err = c.mutate(ctx)
		next = Detect
	default:
		err = fmt.Errorf("unknown state %v", c.state)
	}
	if err != nil {
		return c.state, err
	}

	c.statsMu.Lock()
	c.state = next
	c.stats.State = next.String()
	c.statsMu.Unlock()
	return next, nil
}

// -----------------------------------------------------------------------------
// States
// -----------------------------------------------------------------------------

func (c *Controller) detect(ctx context.Context) (State, error) {
	if c.cfg.MaxIterations > 0 && c.iteration >= c.cfg.MaxIterations {
		return Detect, fmt.Errorf("%w: %d", ErrIterationLimit, c.iteration)
	}

	stop := c.timer.Start(PhaseDetect)
	c.graphMu.RLock()
	res, err := c.detector.Detect(ctx, c.g, c.reg)
	c.graphMu.RUnlock()
	stop()
	if err != nil {
		return Detect, fmt.Errorf("iteration %d: %w", c.iteration+1, err)
	}

	c.iteration++
	c.last = res
	iterationsTotal.Inc()
	cliqueCount.WithLabelValues(graph.Red.String()).Set(float64(res.Red))
	cliqueCount.WithLabelValues(graph.Blue.String()).Set(float64(res.Blue))

	c.statsMu.Lock()
	c.stats.Iterations = c.iteration
	c.stats.CurrentCliques = res.Total()
	c.stats.RedCliques = res.Red
	c.stats.BlueCliques = res.Blue
	c.statsMu.Unlock()

	if res.Total() == 0 {
		c.finish(ctx)
		return Terminal, nil
	}
	return Evaluate, nil
}

func (c *Controller) evaluate() State {
	stop := c.timer.Start(PhaseStats)
	defer stop()

	count := c.reg.Len()
	next := Rollback
	if c.best == nil || count <= c.best.Count {
		next = Checkpoint
	}

	best := count
	if c.best != nil {
		best = min(best, c.best.Count)
	}
	attrs := []any{
		slog.Int64("iteration", c.iteration),
		slog.Int("red", c.last.Red),
		slog.Int("blue", c.last.Blue),
		slog.Int("best", best),
		slog.String("decision", next.String()),
		slog.Duration("detect", c.last.Duration),
	}
	c.logger.Debug("iteration evaluated", attrs...)
	c.progress.Do(func() {
		c.logger.Info("search progress", attrs...)
	})
	return next
}

func (c *Controller) checkpoint(ctx context.Context) {
	stop := c.timer.Start(PhaseCheckpoint)
	defer stop()

	c.best = checkpoint.Capture(c.g, c.reg, c.meta())
	decisionsTotal.WithLabelValues("checkpoint").Inc()
	bestCliqueCount.Set(float64(c.best.Count))

	c.statsMu.Lock()
	c.stats.Checkpoints++
	c.stats.BestCliques = c.best.Count
	c.statsMu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, c.best); err != nil {
			persistFailures.WithLabelValues("checkpoint").Inc()
			c.logger.Warn("checkpoint not persisted",
				slog.Int64("iteration", c.iteration),
				slog.String("error", err.Error()),
			)
		}
	}
	c.emit(ctx, Checkpoint)
}

func (c *Controller) rollback(ctx context.Context) error {
	stop := c.timer.Start(PhaseCheckpoint)
	defer stop()

	c.graphMu.Lock()
	err := c.best.Restore(c.g, c.reg)
	c.graphMu.Unlock()
	if err != nil {
		return fmt.Errorf("rollback to iteration %d: %w", c.best.Iteration, err)
	}
	decisionsTotal.WithLabelValues("rollback").Inc()

	c.statsMu.Lock()
	c.stats.Rollbacks++
	c.statsMu.Unlock()

	c.emit(ctx, Rollback)
	return nil
}

func (c *Controller) mutate(ctx context.Context) error {
	stop := c.timer.Start(PhaseMutate)
	c.graphMu.Lock()
	applied, err := c.engine.Mutate(ctx, c.g, c.reg)
	c.graphMu.Unlock()
	stop()

	now := time.Now()
	c.statsMu.Lock()
	for _, m := range applied {
		c.stats.Mutations[m.Type.String()]++
		c.stats.LastMutation = now
	}
	c.statsMu.Unlock()
	for _, m := range applied {
		mutationsTotal.WithLabelValues(m.Type.String()).Inc()
	}

	if err != nil {
		return fmt.Errorf("iteration %d: %w", c.iteration, err)
	}
	return nil
}

// finish persists and announces the counterexample held in c.g.
func (c *Controller) finish(ctx context.Context) {
	snap := checkpoint.Capture(c.g, c.reg, c.meta())
	c.solution = snap.Graph()
	bestCliqueCount.Set(0)

	c.statsMu.Lock()
	c.stats.Solved = true
	c.stats.BestCliques = 0
	c.statsMu.Unlock()

	c.logger.Info("counterexample found",
		slog.Int64("iteration", c.iteration),
		slog.Duration("elapsed", time.Since(c.started)),
		slog.String("edges", c.solution.CountSummary()),
	)

	if c.store != nil {
		if err := c.store.SaveSolution(ctx, snap); err != nil {
			persistFailures.WithLabelValues("solution").Inc()
			c.logger.Error("solution not persisted", slog.String("error", err.Error()))
		}
	}
	if c.notifier != nil {
		sol := notify.Solution{
			RunID:     c.runID,
			N:         c.cfg.N,
			K:         c.cfg.K,
			Iteration: c.iteration,
			Elapsed:   time.Since(c.started),
			FoundAt:   time.Now(),
			Graph:     snap.Graph(),
		}
		if err := c.notifier.Notify(ctx, sol); err != nil {
			persistFailures.WithLabelValues("notify").Inc()
			c.logger.Error("solution notification failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Controller) meta() checkpoint.Meta {
	return checkpoint.Meta{RunID: c.runID, K: c.cfg.K, Iteration: c.iteration}
}

func (c *Controller) emit(ctx context.Context, decision State) {
	if c.sink == nil {
		return
	}
	it := Iteration{
		RunID:     c.runID,
		N:         c.cfg.N,
		K:         c.cfg.K,
		Number:    c.iteration,
		Red:       c.last.Red,
		Blue:      c.last.Blue,
		Best:      c.best.Count,
		Decision:  decision,
		DetectFor: c.last.Duration,
		Time:      time.Now(),
	}
	if err := c.sink.WriteIteration(ctx, it); err != nil {
		persistFailures.WithLabelValues("sink").Inc()
		c.sinkWarn.Do(func() {
			c.logger.Warn("iteration sink write failed", slog.String("error", err.Error()))
		})
	}
}
