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
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func triangleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(5)
	require.NoError(t, err)
	// Red triangle 0-1-2, everything else Blue.
	g.SetColor(0, 1, graph.Red)
	g.SetColor(0, 2, graph.Red)
	g.SetColor(1, 2, graph.Red)
	return g
}

func TestNew_Valid(t *testing.T) {
	g := triangleGraph(t)

	c, err := New(g, []int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, graph.Red, c.Color())
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []int{2, 0, 1}, c.Vertices())
	assert.Equal(t, "RED:0,1,2", c.Key())
	assert.ElementsMatch(t, []graph.Edge{{U: 0, V: 2}, {U: 1, V: 2}, {U: 0, V: 1}}, c.Edges())

	blue, err := New(g, []int{3, 4})
	require.NoError(t, err)
	assert.Equal(t, graph.Blue, blue.Color())
}

func TestNew_Invalid(t *testing.T) {
	g := triangleGraph(t)

	tests := []struct {
		name     string
		vertices []int
	}{
		{"too small", []int{1}},
		{"out of range", []int{0, 5}},
		{"negative", []int{-1, 2}},
		{"repeated", []int{0, 1, 0}},
		{"mixed colors", []int{0, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(g, tt.vertices)
			assert.ErrorIs(t, err, ErrInvalidClique)
		})
	}

	_, err := NewOfColor(g, graph.Blue, []int{0, 1, 2})
	assert.ErrorIs(t, err, ErrInvalidClique)
}

func TestClique_VerticesAreCopied(t *testing.T) {
	g := triangleGraph(t)
	in := []int{0, 1, 2}
	c, err := New(g, in)
	require.NoError(t, err)

	in[0] = 4
	out := c.Vertices()
	out[1] = 4
	assert.Equal(t, []int{0, 1, 2}, c.Vertices())
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	g := triangleGraph(t)
	c, err := New(g, []int{0, 1, 2})
	require.NoError(t, err)

	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if j%2 == 0 {
					reg.Add(c)
				} else {
					reg.AddAll([]Clique{c})
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, reg.Len())

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Sampling(t *testing.T) {
	g := triangleGraph(t)
	reg := NewRegistry()
	rng := testRNG(1)

	_, err := reg.Random(rng)
	assert.ErrorIs(t, err, ErrEmptyRegistry)

	red, err := New(g, []int{0, 1, 2})
	require.NoError(t, err)
	blue, err := New(g, []int{2, 3, 4})
	require.NoError(t, err)
	reg.AddAll([]Clique{red, blue})

	r, b := reg.CountByColor()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, b)

	got, err := reg.RandomOfColor(rng, graph.Blue)
	require.NoError(t, err)
	assert.Equal(t, blue.Key(), got.Key())

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		c, err := reg.Random(rng)
		require.NoError(t, err)
		seen[c.Key()] = true
	}
	assert.Len(t, seen, 2)
}

func TestRegistry_EdgeFrequencies(t *testing.T) {
	g, err := graph.New(5)
	require.NoError(t, err)
	for u := 0; u < 4; u++ {
		for v := u + 1; v < 4; v++ {
			g.SetColor(u, v, graph.Red)
		}
	}
	reg := NewRegistry()
	for _, vs := range [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}} {
		c, err := New(g, vs)
		require.NoError(t, err)
		reg.Add(c)
	}

	ranked := reg.EdgeFrequencies(graph.Red)
	require.Len(t, ranked, 6)
	// 0-1, 0-2, 0-3 each appear twice; 1-2, 1-3, 2-3 once.
	assert.Equal(t, EdgeCount{Edge: graph.Edge{U: 0, V: 1}, Count: 2}, ranked[0])
	assert.Equal(t, EdgeCount{Edge: graph.Edge{U: 0, V: 2}, Count: 2}, ranked[1])
	assert.Equal(t, EdgeCount{Edge: graph.Edge{U: 0, V: 3}, Count: 2}, ranked[2])
	assert.Equal(t, 1, ranked[5].Count)

	assert.Empty(t, reg.EdgeFrequencies(graph.Blue))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("first")
	require.NoError(t, err)
	assert.Equal(t, First, s)
	assert.Equal(t, "ALL", All.String())

	_, err = ParseStrategy("some")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRegistry_Prune(t *testing.T) {
	g, err := graph.New(5)
	require.NoError(t, err)
	for u := 0; u < 4; u++ {
		for v := u + 1; v < 4; v++ {
			g.SetColor(u, v, graph.Red)
		}
	}
	reg := NewRegistry()
	for _, vs := range [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		c, err := New(g, vs)
		require.NoError(t, err)
		reg.Add(c)
	}
	blue, err := New(g, []int{0, 4})
	require.NoError(t, err)
	reg.Add(blue)

	assert.Equal(t, 0, reg.Prune(graph.Blue, graph.Edge{U: 0, V: 1}))
	assert.Equal(t, 2, reg.Prune(graph.Red, graph.Edge{U: 0, V: 1}))
	assert.Equal(t, 3, reg.Len())
	for _, c := range reg.OfColor(graph.Red) {
		assert.False(t, c.Contains(graph.Edge{U: 0, V: 1}))
	}
}
