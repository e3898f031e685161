// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clique finds monochromatic K-cliques in a colored complete graph.
//
// The package has three layers:
//   - Clique: an immutable, validated vertex tuple.
//   - Registry: the thread-safe multiset of cliques from the current round.
//   - Detector: backtracking search spread over a fixed worker pool that
//     claims start vertices from an atomic counter.
//
// # Thread Safety
//
// Clique values are immutable and safe to share. Registry is safe for
// concurrent use. Detector serializes rounds; do not call Detect
// concurrently on the same Detector.
package clique

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Clique is a set of vertices pairwise joined by edges of one color.
type Clique struct {
	vertices []int
	color    graph.Color
}

// New validates vertices against g and returns the clique they form.
//
// Description:
//
//	The color is taken from the first pair and every other pair is checked
//	against it. Vertex order is preserved; detection emits ascending ids.
//
// Inputs:
//
//	g - Graph to validate against.
//	vertices - At least two distinct vertex ids in [0, N). Copied.
//
// Outputs:
//
//	Clique - The validated clique.
//	error - ErrInvalidClique describing the first violation.
func New(g *graph.Graph, vertices []int) (Clique, error) {
	if len(vertices) < 2 {
		return Clique{}, fmt.Errorf("%w: need at least 2 vertices, got %d", ErrInvalidClique, len(vertices))
	}
	n := g.N()
	for i, v := range vertices {
		if v < 0 || v >= n {
			return Clique{}, fmt.Errorf("%w: vertex %d out of range [0,%d)", ErrInvalidClique, v, n)
		}
		for _, w := range vertices[:i] {
			if w == v {
				return Clique{}, fmt.Errorf("%w: vertex %d repeated", ErrInvalidClique, v)
			}
		}
	}

	color := g.EdgeColor(vertices[0], vertices[1])
	for i := 0; i < len(vertices); i++ {
		for j := i + 1; j < len(vertices); j++ {
			if !g.Connected(vertices[i], vertices[j], color) {
				return Clique{}, fmt.Errorf("%w: edge %d-%d is %s, expected %s",
					ErrInvalidClique, vertices[i], vertices[j], color.Opposite(), color)
			}
		}
	}

	return Clique{vertices: slices.Clone(vertices), color: color}, nil
}

// NewOfColor is New plus a check that the clique has color c.
func NewOfColor(g *graph.Graph, c graph.Color, vertices []int) (Clique, error) {
	cl, err := New(g, vertices)
	if err != nil {
		return Clique{}, err
	}
	if cl.color != c {
		return Clique{}, fmt.Errorf("%w: clique %v is %s, expected %s", ErrInvalidClique, vertices, cl.color, c)
	}
	return cl, nil
}

// Vertices returns a copy of the vertex ids.
func (c Clique) Vertices() []int {
	return slices.Clone(c.vertices)
}

// Color returns the shared edge color.
func (c Clique) Color() graph.Color {
	return c.color
}

// Size returns the number of vertices.
func (c Clique) Size() int {
	return len(c.vertices)
}

// Edges returns every edge inside the clique, normalized so U < V.
func (c Clique) Edges() []graph.Edge {
	out := make([]graph.Edge, 0, len(c.vertices)*(len(c.vertices)-1)/2)
	for i := 0; i < len(c.vertices); i++ {
		for j := i + 1; j < len(c.vertices); j++ {
			out = append(out, graph.NewEdge(c.vertices[i], c.vertices[j]))
		}
	}
	return out
}

// Contains reports whether both endpoints of e are clique vertices.
func (c Clique) Contains(e graph.Edge) bool {
	return slices.Contains(c.vertices, e.U) && slices.Contains(c.vertices, e.V)
}

// Key identifies the clique by color and sorted vertex set, e.g. "RED:1,4,9".
func (c Clique) Key() string {
	sorted := slices.Clone(c.vertices)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return c.color.String() + ":" + strings.Join(parts, ",")
}

// String returns "RED[1 4 9]".
func (c Clique) String() string {
	return fmt.Sprintf("%s%v", c.color, c.vertices)
}
