// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// ConsoleNotifier prints the solution, styled when writing to a terminal.
type ConsoleNotifier struct {
	printer *ux.Printer
}

// NewConsoleNotifier writes to w. Nil w means os.Stdout.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleNotifier{printer: ux.NewPrinter(w)}
}

// Notify prints a summary box and the Red adjacency list.
func (c *ConsoleNotifier) Notify(_ context.Context, s Solution) error {
	red, blue := s.Graph.ColorCounts()
	c.printer.Success(s.Subject())
	c.printer.KeyValue("run", s.RunID)
	c.printer.KeyValue("iteration", s.Iteration)
	c.printer.KeyValue("elapsed", s.Elapsed.Round(time.Millisecond))
	c.printer.KeyValue("edges", fmt.Sprintf("red=%d blue=%d", red, blue))
	c.printer.Box("RED adjacency", s.Graph.AdjacencyList(graph.Red))
	return nil
}

// FileNotifier writes the solution report next to the checkpoints.
type FileNotifier struct {
	dir    string
	prefix string
}

// NewFileNotifier writes reports into dir, creating it on first use.
func NewFileNotifier(dir, prefix string) *FileNotifier {
	if prefix == "" {
		prefix = "ramsey"
	}
	return &FileNotifier{dir: dir, prefix: prefix}
}

// Path returns the report path for s: <prefix>_<N>_<K>_<run>.txt.
func (f *FileNotifier) Path(s Solution) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s_%d_%d_%s.txt", f.prefix, s.N, s.K, s.RunID))
}

// Notify writes the plain-text report.
func (f *FileNotifier) Notify(_ context.Context, s Solution) error {
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return fmt.Errorf("create report directory %s: %w", f.dir, err)
	}
	if err := os.WriteFile(f.Path(s), []byte(s.Body()), 0640); err != nil {
		return fmt.Errorf("write solution report: %w", err)
	}
	return nil
}
