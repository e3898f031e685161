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
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Pool is a fixed set of detection workers reused for every round of a run.
//
// Description:
//
//	Workers are started once by NewPool and park on a job channel between
//	rounds. A round is dispatched by handing the same round descriptor to
//	every worker; each worker then claims start vertices from the round's
//	atomic counter until the counter passes N-K or the round is stopped.
//	Run blocks until every worker has checked out of the round.
//
// Thread Safety: Run serializes rounds internally. Close is safe to call
// more than once.
type Pool struct {
	workers int
	jobs    chan *round
	logger  *slog.Logger

	runMu     sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// round is one detection pass for a single color.
type round struct {
	ctx   context.Context
	g     *graph.Graph
	color graph.Color
	k     int
	first bool
	reg   *Registry

	next    atomic.Int64
	last    int64
	claimed atomic.Int64
	added   atomic.Int64

	// stop is set on the first hit (FIRST strategy), on any worker error,
	// and on context cancellation. Workers poll it at every extension step.
	stop atomic.Bool

	errMu sync.Mutex
	err   error

	done sync.WaitGroup
}

func (r *round) fail(err error) {
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.errMu.Unlock()
	r.stop.Store(true)
}

func (r *round) failed() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// RoundStats summarizes one round.
type RoundStats struct {
	Color         graph.Color
	Cliques       int
	StartVertices int
	Stopped       bool
}

// NewPool starts a pool of the given size.
//
// Inputs:
//
//	workers - Number of worker goroutines. Must be positive.
//	logger - Logger for worker failures. Nil uses slog.Default().
//
// Outputs:
//
//	*Pool - The running pool. Call Close to stop the workers.
//	error - ErrInvalidConfig if workers < 1.
func NewPool(workers int, logger *slog.Logger) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: workers=%d", ErrInvalidConfig, workers)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		workers: workers,
		jobs:    make(chan *round),
		logger:  logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p, nil
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run detects every K-clique of color c and adds it to reg.
//
// Description:
//
//	Start vertices range over [0, N-K]; a larger start vertex cannot be the
//	smallest member of a K-clique. With K > N the range is empty and Run
//	returns immediately. Each worker buffers its cliques and adds them to
//	reg in one batch when it leaves the round, unless the round failed.
//
// Inputs:
//
//	ctx - Cancellation. Workers stop claiming start vertices once done.
//	g - Graph, read-only for the duration of the call.
//	c - Color to search.
//	k - Clique size, at least 2.
//	strategy - All or First.
//	reg - Destination registry.
//
// Outputs:
//
//	RoundStats - Counts for the round.
//	error - ErrWorkerPanic, ErrInvalidClique, the context error, or
//	        ErrPoolClosed. On error reg may hold a partial result.
//
// Thread Safety: Safe for concurrent use; rounds are serialized.
func (p *Pool) Run(ctx context.Context, g *graph.Graph, c graph.Color, k int, strategy Strategy, reg *Registry) (RoundStats, error) {
	stats := RoundStats{Color: c}
	if k < 2 {
		return stats, fmt.Errorf("%w: clique size %d", ErrInvalidConfig, k)
	}
	if k > g.N() {
		return stats, nil
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.closed.Load() {
		return stats, ErrPoolClosed
	}

	r := &round{
		ctx:   ctx,
		g:     g,
		color: c,
		k:     k,
		first: strategy == First,
		reg:   reg,
		last:  int64(g.N() - k),
	}
	r.done.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		p.jobs <- r
	}
	r.done.Wait()

	stats.Cliques = int(r.added.Load())
	stats.StartVertices = int(r.claimed.Load())
	stats.Stopped = r.stop.Load()
	return stats, r.failed()
}

// Close stops the workers and waits for them to exit.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.runMu.Lock()
		p.closed.Store(true)
		close(p.jobs)
		p.runMu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	var s *searcher
	for r := range p.jobs {
		s = p.work(id, s, r)
	}
}

// work runs one worker's share of a round. It returns the searcher to reuse
// next round, or nil if the searcher must be rebuilt.
func (p *Pool) work(id int, s *searcher, r *round) (out *searcher) {
	defer r.done.Done()

	// Panic recovery: log with stack, discard this worker's results, fail the round.
	defer func() {
		if rec := recover(); rec != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			p.logger.Error("panic in clique detection worker",
				slog.Int("worker_id", id),
				slog.String("color", r.color.String()),
				slog.Any("panic", rec),
				slog.String("stack", string(buf[:n])),
			)
			r.fail(fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, id, rec))
			out = nil
		}
	}()

	if s == nil || !s.fits(r.g.N(), r.k) {
		s = newSearcher(r.g.N(), r.k)
	}
	s.reset(r.ctx, r.g, r.color, &r.stop, r.first)

	for !r.stop.Load() {
		if err := r.ctx.Err(); err != nil {
			r.fail(fmt.Errorf("detection cancelled: %w", err))
			break
		}
		start := r.next.Add(1) - 1
		if start > r.last {
			break
		}
		if err := s.searchFrom(int(start)); err != nil {
			r.fail(err)
			break
		}
		r.claimed.Add(1)
	}

	if r.failed() == nil {
		r.reg.AddAll(s.found)
		r.added.Add(int64(len(s.found)))
	}
	return s
}
