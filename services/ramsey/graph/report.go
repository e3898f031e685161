// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strconv"
	"strings"
)

// Mathematica renders the Red adjacency matrix as a Mathematica GraphPlot call.
//
// Output form:
//
//	GraphPlot[{{0, 1, 0}, {1, 0, 1}, {0, 1, 0}}, Method -> CircularEmbedding]
func (g *Graph) Mathematica() string {
	var b strings.Builder
	b.WriteString("GraphPlot[{")
	for u := 0; u < g.n; u++ {
		if u > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('{')
		for v := 0; v < g.n; v++ {
			if v > 0 {
				b.WriteString(", ")
			}
			if u != v && g.EdgeColor(u, v) == Red {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('}')
	}
	b.WriteString("}, Method -> CircularEmbedding]")
	return b.String()
}

// AdjacencyList renders one line per vertex listing its neighbors of color c.
//
//	0: 2 3 5
//	1: 4
func (g *Graph) AdjacencyList(c Color) string {
	var b strings.Builder
	for v := 0; v < g.n; v++ {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(':')
		for _, u := range g.Neighbors(v, c) {
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(u))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// CountSummary returns "[RED:r] [BLUE:b]".
func (g *Graph) CountSummary() string {
	red, blue := g.ColorCounts()
	return "[RED:" + strconv.Itoa(red) + "] [BLUE:" + strconv.Itoa(blue) + "]"
}

// Distribution returns the degree of every vertex in color c, indexed by vertex.
func (g *Graph) Distribution(c Color) []int {
	out := make([]int, g.n)
	for v := range out {
		out[v] = g.Degree(v, c)
	}
	return out
}

// DistributionString renders Distribution as "[d0,d1,...]".
func (g *Graph) DistributionString(c Color) string {
	degrees := g.Distribution(c)
	parts := make([]string, len(degrees))
	for i, d := range degrees {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// DistributionSummary sums color-c degrees over the first N/2 vertices and
// over the remaining vertices.
//
// A balanced coloring has roughly equal halves; a large skew hints that
// mutations keep hitting the same region of the graph.
func (g *Graph) DistributionSummary(c Color) (firstHalf, secondHalf int) {
	half := g.n / 2
	for v := 0; v < g.n; v++ {
		d := g.Degree(v, c)
		if v < half {
			firstHalf += d
		} else {
			secondHalf += d
		}
	}
	return firstHalf, secondHalf
}

// DistributionSummaryString returns "[first:second]".
func (g *Graph) DistributionSummaryString(c Color) string {
	first, second := g.DistributionSummary(c)
	return "[" + strconv.Itoa(first) + ":" + strconv.Itoa(second) + "]"
}
