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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// -----------------------------------------------------------------------------
// Matrix form
// -----------------------------------------------------------------------------

// ToMatrix returns the N*N 0/1 adjacency matrix, 1 meaning Red.
//
// The matrix is symmetric with a zero diagonal.
func (g *Graph) ToMatrix() [][]uint8 {
	rows := make([][]uint8, g.n)
	for u := range rows {
		rows[u] = make([]uint8, g.n)
		for v := 0; v < g.n; v++ {
			if u != v {
				rows[u][v] = g.EdgeColor(u, v).Bit()
			}
		}
	}
	return rows
}

// LoadFromMatrix replaces the coloring with the one described by rows.
//
// Description:
//
//	rows must have exactly N rows of exactly N values. Only the upper
//	triangle (column > row) is read and must hold 0 or 1; the diagonal and
//	lower triangle are ignored. Validation happens before any edge is written, so a
//	malformed matrix leaves the graph untouched.
//
// Inputs:
//
//	rows - The matrix, typically from ReadMatrix.
//
// Outputs:
//
//	error - ErrFormat wrapped with the offending row/column.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) LoadFromMatrix(rows [][]uint8) error {
	if len(rows) != g.n {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrFormat, g.n, len(rows))
	}
	for u, row := range rows {
		if len(row) != g.n {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrFormat, u, len(row), g.n)
		}
		for v, val := range row {
			if v > u && val > 1 {
				return fmt.Errorf("%w: row %d column %d has value %d", ErrFormat, u, v, val)
			}
		}
	}

	for u := 0; u < g.n; u++ {
		for v := u + 1; v < g.n; v++ {
			if rows[u][v] == 1 {
				g.SetColor(u, v, Red)
			} else {
				g.SetColor(u, v, Blue)
			}
		}
	}
	return nil
}

// FromMatrix builds a graph sized to the matrix.
func FromMatrix(rows [][]uint8) (*Graph, error) {
	g, err := New(len(rows))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := g.LoadFromMatrix(rows); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadMatrix parses the comma separated checkpoint format.
//
// Description:
//
//	Each line is one row of comma separated 0/1 values. Surrounding spaces
//	and blank lines are tolerated. When n > 0 the matrix must have exactly n
//	rows of n values; when n <= 0 the size is taken from the first row and
//	the remaining rows must agree with it.
//
// Inputs:
//
//	r - Source of the matrix text.
//	n - Expected vertex count, or <= 0 to infer it.
//
// Outputs:
//
//	[][]uint8 - The parsed matrix.
//	error - ErrFormat on a wrong row count, wrong column count, or an
//	        upper-triangle token that is not 0 or 1. Diagonal and
//	        lower-triangle tokens are ignored and read as 0. I/O errors are
//	        returned wrapped.
func ReadMatrix(r io.Reader, n int) ([][]uint8, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	if n > 0 {
		cr.FieldsPerRecord = n
	}

	var rows [][]uint8
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, parseErr.Line, parseErr.Err)
			}
			return nil, fmt.Errorf("read matrix: %w", err)
		}

		row := make([]uint8, len(record))
		for i, tok := range record {
			// Only the upper triangle carries colors.
			if i <= len(rows) {
				continue
			}
			switch strings.TrimSpace(tok) {
			case "0":
				row[i] = 0
			case "1":
				row[i] = 1
			default:
				return nil, fmt.Errorf("%w: row %d column %d has token %q", ErrFormat, len(rows), i, tok)
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrFormat)
	}
	if n <= 0 {
		n = len(rows[0])
	}
	if len(rows) != n {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrFormat, n, len(rows))
	}
	return rows, nil
}

// WriteMatrix writes the graph in the comma separated checkpoint format.
func (g *Graph) WriteMatrix(w io.Writer) error {
	cw := csv.NewWriter(w)
	record := make([]string, g.n)
	for u := 0; u < g.n; u++ {
		for v := 0; v < g.n; v++ {
			if u != v && g.EdgeColor(u, v) == Red {
				record[v] = "1"
			} else {
				record[v] = "0"
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write matrix row %d: %w", u, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadFile reads a checkpoint matrix file into a new graph.
//
// n is the expected vertex count, or <= 0 to infer it from the file.
func LoadFile(path string, n int) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadMatrix(f, n)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromMatrix(rows)
}

// SaveFile writes the graph to path, replacing any existing file atomically.
//
// The matrix is written to a temporary file in the same directory and
// renamed into place, so readers never observe a partial matrix.
func (g *Graph) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := g.WriteMatrix(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Loader string form
// -----------------------------------------------------------------------------

// LoaderString returns the compact coloring: one '1' (Red) or '0' (Blue) per
// edge, row-major over the upper triangle.
func (g *Graph) LoaderString() string {
	var b strings.Builder
	b.Grow(len(g.colors))
	for _, c := range g.colors {
		if c == Red {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// LoadFromString replaces the coloring with a loader string.
//
// Returns ErrFormat if the length is not N(N-1)/2 or a character is not
// '0' or '1'. The graph is untouched on error.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) LoadFromString(data string) error {
	if len(data) != len(g.colors) {
		return fmt.Errorf("%w: loader string has %d edges, expected %d", ErrFormat, len(data), len(g.colors))
	}
	for i := 0; i < len(data); i++ {
		if data[i] != '0' && data[i] != '1' {
			return fmt.Errorf("%w: loader string position %d has %q", ErrFormat, i, data[i])
		}
	}

	red := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '1' {
			g.colors[i] = Red
			red++
		} else {
			g.colors[i] = Blue
		}
	}
	g.red = red
	return nil
}

// FromLoaderString builds a graph on n vertices from a loader string.
func FromLoaderString(n int, data string) (*Graph, error) {
	g, err := New(n)
	if err != nil {
		return nil, err
	}
	if err := g.LoadFromString(data); err != nil {
		return nil, err
	}
	return g, nil
}
