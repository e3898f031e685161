// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mutate perturbs a coloring to break the cliques found by detection.
//
// Every mutation flips exactly one Red edge to Blue and one Blue edge to Red,
// so the global color balance never changes. Strategies only choose the
// pair; the Engine validates and applies it.
package mutate

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Type names a mutation strategy.
type Type int

const (
	// Random flips one uniformly random edge of each color.
	Random Type = iota

	// Targeted flips an edge inside a recorded clique plus a random edge of
	// the opposite color.
	Targeted

	// Balanced flips the edge between the highest-ranked vertices of a
	// recorded clique plus an opposite-color edge.
	Balanced

	// Comprehensive flips the edge of each color shared by the most
	// recorded cliques.
	Comprehensive
)

var typeNames = map[Type]string{
	Random:        "RANDOM",
	Targeted:      "TARGETED",
	Balanced:      "BALANCED",
	Comprehensive: "COMPREHENSIVE",
}

// String returns the upper-case type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType parses a type name case-insensitively.
func ParseType(s string) (Type, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == want {
			return t, nil
		}
	}
	return Random, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Pair is the two edges flipped by one mutation.
type Pair struct {
	// Red is currently Red and becomes Blue.
	Red graph.Edge

	// Blue is currently Blue and becomes Red.
	Blue graph.Edge
}

// pairOf builds a Pair from an edge of color c and an edge of the opposite color.
func pairOf(c graph.Color, e, opposite graph.Edge) Pair {
	if c == graph.Red {
		return Pair{Red: e, Blue: opposite}
	}
	return Pair{Red: opposite, Blue: e}
}

// Mutation records one applied pair and the strategy that chose it.
type Mutation struct {
	Type Type
	Pair Pair
}

// Strategy chooses the pair of edges for one mutation.
//
// Choose must not modify g or reg.
type Strategy interface {
	Type() Type
	Choose(g *graph.Graph, reg *clique.Registry, rng *rand.Rand) (Pair, error)
}

// -----------------------------------------------------------------------------
// Random
// -----------------------------------------------------------------------------

// RandomStrategy picks one uniformly random edge of each color.
type RandomStrategy struct{}

// Type returns Random.
func (RandomStrategy) Type() Type { return Random }

// Choose samples a Red edge and a Blue edge.
func (RandomStrategy) Choose(g *graph.Graph, _ *clique.Registry, rng *rand.Rand) (Pair, error) {
	red, err := g.RandomEdgeOfColor(rng, graph.Red)
	if err != nil {
		return Pair{}, err
	}
	blue, err := g.RandomEdgeOfColor(rng, graph.Blue)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Red: red, Blue: blue}, nil
}

// -----------------------------------------------------------------------------
// Targeted
// -----------------------------------------------------------------------------

// TargetedStrategy breaks a random recorded clique by flipping one of its
// edges, paired with a random edge of the opposite color.
type TargetedStrategy struct{}

// Type returns Targeted.
func (TargetedStrategy) Type() Type { return Targeted }

// Choose picks a random clique and a random vertex pair inside it.
func (TargetedStrategy) Choose(g *graph.Graph, reg *clique.Registry, rng *rand.Rand) (Pair, error) {
	cl, err := reg.Random(rng)
	if err != nil {
		return Pair{}, err
	}
	vs := cl.Vertices()
	i := rng.IntN(len(vs))
	j := rng.IntN(len(vs) - 1)
	if j >= i {
		j++
	}
	inside := graph.NewEdge(vs[i], vs[j])

	opposite, err := g.RandomEdgeOfColor(rng, cl.Color().Opposite())
	if err != nil {
		return Pair{}, err
	}
	return pairOf(cl.Color(), inside, opposite), nil
}

// -----------------------------------------------------------------------------
// Balanced
// -----------------------------------------------------------------------------

// BalancedStrategy flips the edge joining the most entrenched vertices of a
// random recorded clique.
//
// With Aggressive set, the opposite-color edge is the one joining the
// highest-degree vertex of that color to its highest-degree neighbor;
// otherwise it is random.
type BalancedStrategy struct {
	Aggressive bool
}

// Type returns Balanced.
func (BalancedStrategy) Type() Type { return Balanced }

// Choose ranks the clique's vertices and pairs the top edge with an
// opposite-color edge.
func (s BalancedStrategy) Choose(g *graph.Graph, reg *clique.Registry, rng *rand.Rand) (Pair, error) {
	cl, err := reg.Random(rng)
	if err != nil {
		return Pair{}, err
	}
	inside := CliqueEdgeOfHighestRank(g, cl, rng)

	opposite := cl.Color().Opposite()
	var other graph.Edge
	if s.Aggressive {
		other, err = EdgeOfHighestRank(g, opposite, rng)
	} else {
		other, err = g.RandomEdgeOfColor(rng, opposite)
	}
	if err != nil {
		return Pair{}, err
	}
	return pairOf(cl.Color(), inside, other), nil
}

// -----------------------------------------------------------------------------
// Comprehensive
// -----------------------------------------------------------------------------

// ComprehensiveStrategy flips, for each color, an edge shared by the most
// recorded cliques of that color.
//
// EdgeRange widens the choice to the top EdgeRange ranked edges; 1 means
// only the most frequent. A color with no recorded cliques falls back to a
// random edge of that color.
type ComprehensiveStrategy struct {
	EdgeRange int
}

// Type returns Comprehensive.
func (ComprehensiveStrategy) Type() Type { return Comprehensive }

// Choose picks one high-impact edge of each color.
func (s ComprehensiveStrategy) Choose(g *graph.Graph, reg *clique.Registry, rng *rand.Rand) (Pair, error) {
	var chosen [2]graph.Edge
	for i, c := range []graph.Color{graph.Red, graph.Blue} {
		ranked := reg.EdgeFrequencies(c)
		if len(ranked) == 0 {
			e, err := g.RandomEdgeOfColor(rng, c)
			if err != nil {
				return Pair{}, err
			}
			chosen[i] = e
			continue
		}
		chosen[i] = pickRanked(ranked, s.EdgeRange, rng)
	}
	return Pair{Red: chosen[0], Blue: chosen[1]}, nil
}

// pickRanked chooses uniformly among the first window entries of ranked.
//
// The window is extended past its nominal end while counts tie with its last
// entry, so equally ranked edges are never excluded by their sort position.
func pickRanked(ranked []clique.EdgeCount, window int, rng *rand.Rand) graph.Edge {
	end := min(max(window, 1), len(ranked))
	threshold := ranked[end-1].Count
	for end < len(ranked) && ranked[end].Count == threshold {
		end++
	}
	return ranked[rng.IntN(end)].Edge
}
