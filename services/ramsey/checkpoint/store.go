// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Store persists snapshots.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a new best snapshot.
	Save(ctx context.Context, s *Snapshot) error

	// SaveSolution persists a counterexample (a snapshot with zero cliques).
	SaveSolution(ctx context.Context, s *Snapshot) error

	Close() error
}

// Multi fans every call out to all of its stores and joins their errors.
type Multi []Store

// Save saves to every store.
func (m Multi) Save(ctx context.Context, s *Snapshot) error {
	var errs []error
	for _, st := range m {
		errs = append(errs, st.Save(ctx, s))
	}
	return errors.Join(errs...)
}

// SaveSolution saves the solution to every store.
func (m Multi) SaveSolution(ctx context.Context, s *Snapshot) error {
	var errs []error
	for _, st := range m {
		errs = append(errs, st.SaveSolution(ctx, s))
	}
	return errors.Join(errs...)
}

// Close closes every store.
func (m Multi) Close() error {
	var errs []error
	for _, st := range m {
		errs = append(errs, st.Close())
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// File store
// -----------------------------------------------------------------------------

// historyTimeLayout is the timestamp used in history file names,
// e.g. 20251019-142233.517.
const historyTimeLayout = "20060102-150405.000"

// FileStore writes snapshots as adjacency matrix files.
//
// Files are named <prefix>_<N>_<K> with the extensions:
//
//	.max  the current best coloring, replaced atomically on every Save
//	.chk  one per Save when history is enabled, stamped with the capture time
//	.sol  a counterexample
type FileStore struct {
	dir     string
	prefix  string
	history bool
}

// NewFileStore creates dir if needed and returns a store writing into it.
func NewFileStore(dir, prefix string, history bool) (*FileStore, error) {
	if prefix == "" {
		prefix = "ramsey"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, prefix: prefix, history: history}, nil
}

func (f *FileStore) base(n, k int) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s_%d_%d", f.prefix, n, k))
}

// BestPath returns the path of the best-coloring file for (n, k).
func (f *FileStore) BestPath(n, k int) string {
	return f.base(n, k) + ".max"
}

// SolutionPath returns the path of the solution file for (n, k).
func (f *FileStore) SolutionPath(n, k int) string {
	return f.base(n, k) + ".sol"
}

// HistoryPath returns the history file path for a capture time.
func (f *FileStore) HistoryPath(n, k int, at time.Time) string {
	return f.base(n, k) + "_" + at.Format(historyTimeLayout) + ".chk"
}

// Save replaces the .max file and, with history enabled, adds a .chk file.
func (f *FileStore) Save(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.graph.SaveFile(f.BestPath(s.N(), s.K)); err != nil {
		return fmt.Errorf("save best coloring: %w", err)
	}
	if f.history {
		if err := s.graph.SaveFile(f.HistoryPath(s.N(), s.K, s.CreatedAt)); err != nil {
			return fmt.Errorf("save history coloring: %w", err)
		}
	}
	return nil
}

// SaveSolution writes the .sol file.
func (f *FileStore) SaveSolution(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.graph.SaveFile(f.SolutionPath(s.N(), s.K)); err != nil {
		return fmt.Errorf("save solution: %w", err)
	}
	return nil
}

// LoadBest reads the .max file for (n, k).
//
// Returns ErrNotFound if no best coloring has been saved.
func (f *FileStore) LoadBest(n, k int) (*graph.Graph, error) {
	path := f.BestPath(n, k)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return graph.LoadFile(path, n)
}

// Close is a no-op; files are closed after every write.
func (f *FileStore) Close() error {
	return nil
}
