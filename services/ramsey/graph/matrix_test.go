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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_RoundTrip(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		g, err := Generate(11, testRNG(seed))
		require.NoError(t, err)

		loaded, err := New(11)
		require.NoError(t, err)
		require.NoError(t, loaded.LoadFromMatrix(g.ToMatrix()))
		assert.True(t, g.Equal(loaded), "seed=%d", seed)
	}
}

func TestToMatrix_SymmetricZeroDiagonal(t *testing.T) {
	g, err := Generate(7, testRNG(2))
	require.NoError(t, err)

	m := g.ToMatrix()
	for u := range m {
		assert.Equal(t, uint8(0), m[u][u])
		for v := range m[u] {
			assert.Equal(t, m[u][v], m[v][u])
		}
	}
}

func TestLoadFromMatrix_Errors(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)
	g.SetColor(0, 1, Red)

	tests := []struct {
		name string
		rows [][]uint8
	}{
		{"too few rows", [][]uint8{{0, 1, 0}, {1, 0, 0}}},
		{"short row", [][]uint8{{0, 1, 0}, {1, 0}, {0, 0, 0}}},
		{"bad value", [][]uint8{{0, 2, 0}, {2, 0, 0}, {0, 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.LoadFromMatrix(tt.rows)
			assert.ErrorIs(t, err, ErrFormat)
			assert.Equal(t, Red, g.EdgeColor(0, 1), "graph must be unchanged")
		})
	}
}

func TestLoadFromMatrix_UsesUpperTriangle(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)

	rows := [][]uint8{
		{1, 1, 0},
		{0, 1, 1},
		{1, 0, 0},
	}
	require.NoError(t, g.LoadFromMatrix(rows))
	assert.Equal(t, Red, g.EdgeColor(0, 1))
	assert.Equal(t, Blue, g.EdgeColor(0, 2))
	assert.Equal(t, Red, g.EdgeColor(1, 2))
}

func TestLoadFromMatrix_IgnoresDiagonalAndLowerValues(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)

	rows := [][]uint8{
		{7, 1, 0},
		{9, 5, 1},
		{2, 3, 4},
	}
	require.NoError(t, g.LoadFromMatrix(rows))
	assert.Equal(t, Red, g.EdgeColor(0, 1))
	assert.Equal(t, Blue, g.EdgeColor(0, 2))
	assert.Equal(t, Red, g.EdgeColor(1, 2))
}

func TestReadMatrix_IgnoresDiagonalAndLowerTokens(t *testing.T) {
	input := "-1,1,0\nx,2,1\n1,1,9\n"
	rows, err := ReadMatrix(strings.NewReader(input), 3)
	require.NoError(t, err)

	g, err := FromMatrix(rows)
	require.NoError(t, err)
	assert.Equal(t, Red, g.EdgeColor(0, 1))
	assert.Equal(t, Blue, g.EdgeColor(0, 2))
	assert.Equal(t, Red, g.EdgeColor(1, 2))

	_, err = ReadMatrix(strings.NewReader("0,2,0\n1,0,1\n0,1,0\n"), 3)
	assert.ErrorIs(t, err, ErrFormat, "upper triangle is still checked")
}

func TestReadWriteMatrix(t *testing.T) {
	g, err := Generate(8, testRNG(9))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.WriteMatrix(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Len(t, strings.Split(lines[0], ","), 8)

	rows, err := ReadMatrix(&buf, 8)
	require.NoError(t, err)
	loaded, err := FromMatrix(rows)
	require.NoError(t, err)
	assert.True(t, g.Equal(loaded))
}

func TestReadMatrix_Infer(t *testing.T) {
	input := "0, 1, 0\n1, 0, 1\n\n0, 1, 0\n"
	rows, err := ReadMatrix(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	g, err := FromMatrix(rows)
	require.NoError(t, err)
	assert.Equal(t, Red, g.EdgeColor(0, 1))
	assert.Equal(t, Red, g.EdgeColor(1, 2))
	assert.Equal(t, Blue, g.EdgeColor(0, 2))
}

func TestReadMatrix_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
	}{
		{"empty", "", 3},
		{"too many columns", "0,1,0,0\n1,0,1,0\n0,1,0,0\n", 3},
		{"ragged", "0,1,0\n1,0\n0,1,0\n", 0},
		{"too few rows", "0,1,0\n1,0,1\n", 3},
		{"too many rows inferred", "0,1\n1,0\n0,0\n", 0},
		{"bad token", "0,1,0\n1,0,x\n0,1,0\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatrix(strings.NewReader(tt.input), tt.n)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "best.max")

	g, err := Generate(10, testRNG(21))
	require.NoError(t, err)
	require.NoError(t, g.SaveFile(path))

	loaded, err := LoadFile(path, 10)
	require.NoError(t, err)
	assert.True(t, g.Equal(loaded))

	// Overwrite leaves no temp files behind.
	g.Flip(0, 1)
	require.NoError(t, g.SaveFile(path))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = LoadFile(path, 9)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = LoadFile(filepath.Join(dir, "missing"), 10)
	assert.Error(t, err)
}

func TestLoaderString(t *testing.T) {
	g, err := Generate(9, testRNG(13))
	require.NoError(t, err)

	s := g.LoaderString()
	assert.Len(t, s, g.EdgeCount())
	assert.Equal(t, g.Count(Red), strings.Count(s, "1"))

	loaded, err := FromLoaderString(9, s)
	require.NoError(t, err)
	assert.True(t, g.Equal(loaded))
	assert.Equal(t, g.Count(Red), loaded.Count(Red))

	_, err = FromLoaderString(9, s[1:])
	assert.ErrorIs(t, err, ErrFormat)
	_, err = FromLoaderString(3, "01x")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReports(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)
	g.SetColor(0, 1, Red)

	assert.Equal(t, "GraphPlot[{{0, 1, 0}, {1, 0, 0}, {0, 0, 0}}, Method -> CircularEmbedding]", g.Mathematica())
	assert.Equal(t, "0: 1\n1: 0\n2:\n", g.AdjacencyList(Red))
	assert.Equal(t, "[RED:1] [BLUE:2]", g.CountSummary())
	assert.Equal(t, "[1,1,0]", g.DistributionString(Red))
	assert.Equal(t, "[1:1]", g.DistributionSummaryString(Red))
}
