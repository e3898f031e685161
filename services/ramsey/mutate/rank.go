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
	"math/rand/v2"

	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// CliqueEdgeOfHighestRank returns the clique edge whose endpoints have the
// highest degree in the clique's color.
//
// Description:
//
//	Vertices of the clique are ranked by Degree(v, color). If two or more
//	share the top degree, two of them are chosen uniformly at random.
//	Otherwise the single top vertex is paired with a vertex chosen
//	uniformly among those sharing the second-highest degree.
//
// Thread Safety: Reads g only; safe alongside other readers.
func CliqueEdgeOfHighestRank(g *graph.Graph, cl clique.Clique, rng *rand.Rand) graph.Edge {
	c := cl.Color()
	vs := cl.Vertices()

	top, second := -1, -1
	var topSet, secondSet []int
	for _, v := range vs {
		d := g.Degree(v, c)
		switch {
		case d > top:
			second, secondSet = top, topSet
			top, topSet = d, []int{v}
		case d == top:
			topSet = append(topSet, v)
		case d > second:
			second, secondSet = d, []int{v}
		case d == second:
			secondSet = append(secondSet, v)
		}
	}

	if len(topSet) >= 2 {
		i := rng.IntN(len(topSet))
		j := rng.IntN(len(topSet) - 1)
		if j >= i {
			j++
		}
		return graph.NewEdge(topSet[i], topSet[j])
	}
	return graph.NewEdge(topSet[0], secondSet[rng.IntN(len(secondSet))])
}

// EdgeOfHighestRank returns an edge of color c joining the vertex with the
// highest c-degree to its highest c-degree neighbor. Ties at either step are
// broken uniformly at random.
//
// Returns graph.ErrNoEdgeOfColor when no edge has color c.
func EdgeOfHighestRank(g *graph.Graph, c graph.Color, rng *rand.Rand) (graph.Edge, error) {
	u, deg := pickMaxDegree(g, c, allVertices(g.N()), rng)
	if deg == 0 {
		return graph.Edge{}, graph.ErrNoEdgeOfColor
	}
	v, _ := pickMaxDegree(g, c, g.Neighbors(u, c), rng)
	return graph.NewEdge(u, v), nil
}

// pickMaxDegree picks uniformly among the candidates with the largest
// c-degree and returns it with that degree.
func pickMaxDegree(g *graph.Graph, c graph.Color, candidates []int, rng *rand.Rand) (int, int) {
	best := -1
	var chosen, ties int
	for _, v := range candidates {
		d := g.Degree(v, c)
		switch {
		case d > best:
			best, chosen, ties = d, v, 1
		case d == best:
			// Reservoir sampling over the tied set.
			ties++
			if rng.IntN(ties) == 0 {
				chosen = v
			}
		}
	}
	return chosen, best
}

func allVertices(n int) []int {
	vs := make([]int, n)
	for i := range vs {
		vs[i] = i
	}
	return vs
}
