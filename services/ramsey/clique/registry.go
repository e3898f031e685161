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
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Registry is the multiset of cliques recorded during the current round.
//
// Insertion order is not meaningful. Detection never emits the same vertex
// set twice, so the registry does not deduplicate.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	cliques []Clique
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add records one clique.
func (r *Registry) Add(c Clique) {
	r.mu.Lock()
	r.cliques = append(r.cliques, c)
	r.mu.Unlock()
}

// AddAll records a batch of cliques under a single lock acquisition.
func (r *Registry) AddAll(cs []Clique) {
	if len(cs) == 0 {
		return
	}
	r.mu.Lock()
	r.cliques = append(r.cliques, cs...)
	r.mu.Unlock()
}

// Len returns the number of recorded cliques.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cliques)
}

// Clear removes every clique.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.cliques = nil
	r.mu.Unlock()
}

// Prune removes the cliques of color c that contain edge e and returns how
// many were removed. Call it after flipping e away from c; the remaining
// cliques then still match the graph.
func (r *Registry) Prune(c graph.Color, e graph.Edge) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.cliques)
	r.cliques = slices.DeleteFunc(r.cliques, func(cl Clique) bool {
		return cl.color == c && cl.Contains(e)
	})
	return before - len(r.cliques)
}

// All returns a copy of the recorded cliques.
func (r *Registry) All() []Clique {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.cliques)
}

// OfColor returns the recorded cliques of color c.
func (r *Registry) OfColor(c graph.Color) []Clique {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Clique
	for _, cl := range r.cliques {
		if cl.color == c {
			out = append(out, cl)
		}
	}
	return out
}

// CountByColor returns the number of Red and Blue cliques.
func (r *Registry) CountByColor() (red, blue int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cl := range r.cliques {
		if cl.color == graph.Red {
			red++
		} else {
			blue++
		}
	}
	return red, blue
}

// Random returns a uniformly chosen clique.
func (r *Registry) Random(rng *rand.Rand) (Clique, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.cliques) == 0 {
		return Clique{}, ErrEmptyRegistry
	}
	return r.cliques[rng.IntN(len(r.cliques))], nil
}

// RandomOfColor returns a uniformly chosen clique of color c.
func (r *Registry) RandomOfColor(rng *rand.Rand, c graph.Color) (Clique, error) {
	matching := r.OfColor(c)
	if len(matching) == 0 {
		return Clique{}, fmt.Errorf("%w: no %s cliques", ErrEmptyRegistry, c)
	}
	return matching[rng.IntN(len(matching))], nil
}

// EdgeCount pairs an edge with the number of recorded cliques containing it.
type EdgeCount struct {
	Edge  graph.Edge
	Count int
}

// EdgeFrequencies ranks the edges of color c by how many recorded cliques
// of that color contain them.
//
// Description:
//
//	Builds a frequency multiset over the edges of every clique of color c
//	and returns it sorted by count, highest first. Equal counts are ordered
//	by edge (U, then V) so the result is deterministic; callers that need
//	unbiased tie-breaking pick among equal counts themselves.
//
// Outputs:
//
//	[]EdgeCount - Ranked edges. Empty if no clique has color c.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) EdgeFrequencies(c graph.Color) []EdgeCount {
	freq := make(map[graph.Edge]int)
	for _, cl := range r.OfColor(c) {
		for _, e := range cl.Edges() {
			freq[e]++
		}
	}

	ranked := make([]EdgeCount, 0, len(freq))
	for e, n := range freq {
		ranked = append(ranked, EdgeCount{Edge: e, Count: n})
	}
	slices.SortFunc(ranked, func(a, b EdgeCount) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		if a.Edge.U != b.Edge.U {
			return cmp.Compare(a.Edge.U, b.Edge.U)
		}
		return cmp.Compare(a.Edge.V, b.Edge.V)
	})
	return ranked
}
