// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the two-colored complete graph searched for
// Ramsey counterexamples.
//
// Vertices are the integers 0..N-1. Every unordered pair of distinct vertices
// owns exactly one edge in a shared arena; vertex rows hold arena indices,
// never edge copies, so the u-v and v-u lookups resolve to the same slot.
//
// # Ownership Model
//
// A Graph has a single owner at any time:
//   - The search controller owns it between rounds.
//   - Clique detection borrows it read-only; any number of goroutines may
//     call EdgeColor, Connected and Degree concurrently.
//   - Mutation borrows it exclusively; Flip and SetColor are the only writers.
//
// The two borrow modes never overlap, so the graph carries no locks.
//
// # Thread Safety
//
// Read methods are safe for concurrent use while no writer is active.
// Write methods are NOT safe for concurrent use.
package graph

import (
	"fmt"
	"math/rand/v2"
)

// Edge identifies an unordered vertex pair. U is always less than V.
type Edge struct {
	U int `json:"u"`
	V int `json:"v"`
}

// NewEdge returns the normalized edge for the pair (u, v).
func NewEdge(u, v int) Edge {
	if u > v {
		u, v = v, u
	}
	return Edge{U: u, V: v}
}

// String returns "u-v".
func (e Edge) String() string {
	return fmt.Sprintf("%d-%d", e.U, e.V)
}

// Graph is a complete graph on N vertices with every edge colored Red or Blue.
type Graph struct {
	n int

	// index maps u*n+v to the arena slot of edge {u,v}; -1 on the diagonal.
	index []int32

	// ends and colors form the edge arena, one slot per unordered pair.
	ends   []Edge
	colors []Color

	red int
}

// New creates a complete graph on n vertices with every edge Blue.
//
// Description:
//
//	Allocates the edge arena (n*(n-1)/2 slots) and the dense n*n index used
//	for O(1) lookups by vertex id. Slots are numbered row-major over the
//	upper triangle, which is also the loader string order.
//
// Inputs:
//
//	n - Number of vertices. Must be at least 2.
//
// Outputs:
//
//	*Graph - The new graph.
//	error - ErrInvalidSize if n < 2.
func New(n int) (*Graph, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidSize, n)
	}

	edgeCount := n * (n - 1) / 2
	g := &Graph{
		n:      n,
		index:  make([]int32, n*n),
		ends:   make([]Edge, edgeCount),
		colors: make([]Color, edgeCount),
	}

	slot := int32(0)
	for u := 0; u < n; u++ {
		g.index[u*n+u] = -1
		for v := u + 1; v < n; v++ {
			g.index[u*n+v] = slot
			g.index[v*n+u] = slot
			g.ends[slot] = Edge{U: u, V: v}
			slot++
		}
	}
	return g, nil
}

// Generate creates a balanced random coloring of the complete graph on n vertices.
//
// Description:
//
//	Exactly floor(E/2) edges are Red and the rest Blue, where E = n(n-1)/2.
//	Red slots are the first floor(E/2) positions of a uniform permutation of
//	the arena, so every balanced coloring is equally likely.
//
// Inputs:
//
//	n - Number of vertices. Must be at least 2.
//	rng - Random source. Must not be nil.
//
// Outputs:
//
//	*Graph - The generated graph.
//	error - ErrInvalidSize if n < 2.
func Generate(n int, rng *rand.Rand) (*Graph, error) {
	g, err := New(n)
	if err != nil {
		return nil, err
	}

	perm := rng.Perm(len(g.colors))
	for _, slot := range perm[:len(g.colors)/2] {
		g.colors[slot] = Red
	}
	g.red = len(g.colors) / 2
	return g, nil
}

// N returns the number of vertices.
func (g *Graph) N() int {
	return g.n
}

// EdgeCount returns N(N-1)/2.
func (g *Graph) EdgeCount() int {
	return len(g.colors)
}

// Edges returns all edges in arena order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.ends))
	copy(out, g.ends)
	return out
}

// EdgeColor returns the color of edge {u,v}.
//
// u and v must be distinct vertices in [0, N); other inputs panic like an
// out-of-range slice index.
func (g *Graph) EdgeColor(u, v int) Color {
	return g.colors[g.index[u*g.n+v]]
}

// Connected reports whether u and v are joined by an edge of color c.
//
// This is the clique search hot path. Same preconditions as EdgeColor.
func (g *Graph) Connected(u, v int, c Color) bool {
	return g.colors[g.index[u*g.n+v]] == c
}

// SetColor sets the color of edge {u,v}.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) SetColor(u, v int, c Color) {
	slot := g.index[u*g.n+v]
	g.setSlot(slot, c)
}

// Flip toggles the color of edge {u,v} and returns the new color.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) Flip(u, v int) Color {
	slot := g.index[u*g.n+v]
	next := g.colors[slot].Opposite()
	g.setSlot(slot, next)
	return next
}

func (g *Graph) setSlot(slot int32, c Color) {
	prev := g.colors[slot]
	if prev == c {
		return
	}
	if c == Red {
		g.red++
	} else {
		g.red--
	}
	g.colors[slot] = c
}

// ColorCounts returns the number of Red and Blue edges.
//
// The counts are maintained on every write, so this is O(1).
func (g *Graph) ColorCounts() (red, blue int) {
	return g.red, len(g.colors) - g.red
}

// Count returns the number of edges of color c.
func (g *Graph) Count(c Color) int {
	if c == Red {
		return g.red
	}
	return len(g.colors) - g.red
}

// RandomEdgeOfColor samples an edge of color c uniformly at random.
//
// Description:
//
//	Draws vertex pairs uniformly from the dense N*N index and rejects
//	diagonal pairs and pairs of the wrong color. Each edge is reachable
//	from exactly two ordered pairs, so acceptance is uniform over edges.
//
// Inputs:
//
//	rng - Random source. Must not be nil.
//	c - Color to sample.
//
// Outputs:
//
//	Edge - The sampled edge, normalized so U < V.
//	error - ErrNoEdgeOfColor if the graph has no edge of color c.
func (g *Graph) RandomEdgeOfColor(rng *rand.Rand, c Color) (Edge, error) {
	if g.Count(c) == 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrNoEdgeOfColor, c)
	}
	for {
		u := rng.IntN(g.n)
		v := rng.IntN(g.n)
		if u == v || !g.Connected(u, v, c) {
			continue
		}
		return NewEdge(u, v), nil
	}
}

// Degree returns the number of edges of color c incident to v.
func (g *Graph) Degree(v int, c Color) int {
	row := g.index[v*g.n : (v+1)*g.n]
	degree := 0
	for u, slot := range row {
		if u != v && g.colors[slot] == c {
			degree++
		}
	}
	return degree
}

// Neighbors returns the vertices joined to v by an edge of color c, ascending.
func (g *Graph) Neighbors(v int, c Color) []int {
	out := make([]int, 0, g.n/2)
	for u := 0; u < g.n; u++ {
		if u != v && g.Connected(u, v, c) {
			out = append(out, u)
		}
	}
	return out
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		n:      g.n,
		index:  g.index, // immutable after New
		ends:   g.ends,  // immutable after New
		colors: make([]Color, len(g.colors)),
		red:    g.red,
	}
	copy(c.colors, g.colors)
	return c
}

// CopyFrom overwrites this graph's coloring with other's.
//
// Returns ErrSizeMismatch if the graphs have different vertex counts.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) CopyFrom(other *Graph) error {
	if other.n != g.n {
		return fmt.Errorf("%w: have %d, got %d", ErrSizeMismatch, g.n, other.n)
	}
	copy(g.colors, other.colors)
	g.red = other.red
	return nil
}

// Equal reports whether both graphs have the same order and identical coloring.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || g.n != other.n {
		return false
	}
	for i := range g.colors {
		if g.colors[i] != other.colors[i] {
			return false
		}
	}
	return true
}

// Symmetric reports whether the u-v and v-u lookups resolve to the same
// arena slot for every pair.
func (g *Graph) Symmetric() bool {
	for u := 0; u < g.n; u++ {
		for v := u + 1; v < g.n; v++ {
			if g.index[u*g.n+v] != g.index[v*g.n+u] {
				return false
			}
		}
	}
	return true
}
