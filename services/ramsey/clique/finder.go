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
	"strings"
	"sync/atomic"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Strategy selects exhaustive or first-hit detection.
type Strategy int

const (
	// All enumerates every K-clique.
	All Strategy = iota

	// First stops every worker as soon as any clique is recorded.
	First
)

// String returns "ALL" or "FIRST".
func (s Strategy) String() string {
	switch s {
	case All:
		return "ALL"
	case First:
		return "FIRST"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "all" or "first", case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALL":
		return All, nil
	case "FIRST":
		return First, nil
	default:
		return All, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// ctxCheckInterval is how many extension steps pass between context checks,
// bounding how long a single deep branch can outlive a cancellation.
const ctxCheckInterval = 4096

// searcher runs the backtracking search for one worker.
//
// The chain holds the vertices chosen so far, ascending. cands[d] is the
// candidate list for depth d+1: vertices greater than the chain's last
// element that are joined to every chain member in the search color. Buffers
// are allocated once per (N, K) and reused across start vertices and rounds.
//
// Thread Safety: NOT safe for concurrent use; each worker owns one.
type searcher struct {
	n     int
	k     int
	g     *graph.Graph
	color graph.Color
	stop  *atomic.Bool
	first bool
	ctx   context.Context
	steps uint64

	chain []int
	cands [][]int
	found []Clique
}

func newSearcher(n, k int) *searcher {
	s := &searcher{
		n:     n,
		k:     k,
		chain: make([]int, 0, k),
		cands: make([][]int, k),
	}
	for d := range s.cands {
		s.cands[d] = make([]int, 0, n)
	}
	return s
}

func (s *searcher) fits(n, k int) bool {
	return s.n == n && s.k == k
}

// reset prepares the searcher for a new round.
func (s *searcher) reset(ctx context.Context, g *graph.Graph, color graph.Color, stop *atomic.Bool, first bool) {
	s.ctx = ctx
	s.steps = 0
	s.g = g
	s.color = color
	s.stop = stop
	s.first = first
	s.chain = s.chain[:0]
	s.found = s.found[:0]
}

// searchFrom enumerates every clique whose smallest vertex is start.
func (s *searcher) searchFrom(start int) error {
	base := s.cands[0][:0]
	for w := start + 1; w < s.n; w++ {
		if s.g.Connected(start, w, s.color) {
			base = append(base, w)
		}
	}
	s.cands[0] = base
	if len(base) < s.k-1 {
		return nil
	}

	s.chain = append(s.chain[:0], start)
	return s.extend(base, 1)
}

// extend grows a chain of length depth using the given candidates.
//
// Every candidate is already joined to all chain members, so picking one
// only requires filtering the later candidates against it. A branch is
// abandoned once fewer candidates remain than vertices still needed.
func (s *searcher) extend(cands []int, depth int) error {
	need := s.k - depth
	for i, v := range cands {
		if s.stop.Load() {
			return nil
		}
		s.steps++
		if s.steps%ctxCheckInterval == 0 {
			if err := s.ctx.Err(); err != nil {
				s.stop.Store(true)
				return fmt.Errorf("detection cancelled: %w", err)
			}
		}
		if len(cands)-i < need {
			return nil
		}

		if need == 1 {
			s.chain = append(s.chain, v)
			err := s.record()
			s.chain = s.chain[:depth]
			if err != nil {
				return err
			}
			continue
		}

		next := s.cands[depth][:0]
		for _, w := range cands[i+1:] {
			if s.g.Connected(v, w, s.color) {
				next = append(next, w)
			}
		}
		s.cands[depth] = next
		if len(next) < need-1 {
			continue
		}

		s.chain = append(s.chain, v)
		err := s.extend(next, depth+1)
		s.chain = s.chain[:depth]
		if err != nil {
			return err
		}
	}
	return nil
}

// record validates the full chain and appends it to the local results.
func (s *searcher) record() error {
	c, err := NewOfColor(s.g, s.color, s.chain)
	if err != nil {
		s.stop.Store(true)
		return err
	}
	s.found = append(s.found, c)
	if s.first {
		s.stop.Store(true)
	}
	return nil
}

// FindSerial enumerates the K-cliques of color c on the calling goroutine.
//
// Used for small graphs and as the reference the pool is checked against.
// Returns nil when k > N.
func FindSerial(g *graph.Graph, c graph.Color, k int, strategy Strategy) ([]Clique, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: clique size %d", ErrInvalidConfig, k)
	}
	n := g.N()
	if k > n {
		return nil, nil
	}

	var stop atomic.Bool
	s := newSearcher(n, k)
	s.reset(context.Background(), g, c, &stop, strategy == First)
	for start := 0; start <= n-k; start++ {
		if stop.Load() {
			break
		}
		if err := s.searchFrom(start); err != nil {
			return nil, err
		}
	}
	return s.found, nil
}
