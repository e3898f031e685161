// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checkpoint captures the best coloring seen so far and persists it.
//
// A Snapshot is an independent copy of a graph and the cliques detected in
// it. The search controller keeps the best Snapshot in memory and rolls
// back from it; Stores are write-behind persistence for that snapshot, so
// a failed Save never affects rollback.
package checkpoint

import (
	"fmt"
	"slices"
	"time"

	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Meta identifies where a snapshot came from.
type Meta struct {
	RunID     string
	K         int
	Iteration int64
}

// Snapshot is an immutable copy of a coloring and its detected cliques.
type Snapshot struct {
	Meta

	// Count is the number of cliques detected in the coloring.
	Count int

	CreatedAt time.Time

	graph   *graph.Graph
	cliques []clique.Clique
}

// Capture copies g and the contents of reg.
//
// Thread Safety: The caller must not mutate g during the call.
func Capture(g *graph.Graph, reg *clique.Registry, meta Meta) *Snapshot {
	cliques := reg.All()
	return &Snapshot{
		Meta:      meta,
		Count:     len(cliques),
		CreatedAt: time.Now(),
		graph:     g.Clone(),
		cliques:   cliques,
	}
}

// N returns the vertex count of the captured graph.
func (s *Snapshot) N() int {
	return s.graph.N()
}

// Graph returns a copy of the captured graph.
func (s *Snapshot) Graph() *graph.Graph {
	return s.graph.Clone()
}

// Cliques returns the captured cliques.
func (s *Snapshot) Cliques() []clique.Clique {
	return slices.Clone(s.cliques)
}

// Coloring returns the captured coloring as a loader string.
func (s *Snapshot) Coloring() string {
	return s.graph.LoaderString()
}

// Restore overwrites g and reg with the captured state.
//
// Returns graph.ErrSizeMismatch if g has a different vertex count; g and
// reg are then untouched.
func (s *Snapshot) Restore(g *graph.Graph, reg *clique.Registry) error {
	if err := g.CopyFrom(s.graph); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	reg.Clear()
	reg.AddAll(s.cliques)
	return nil
}

// -----------------------------------------------------------------------------
// Persisted form
// -----------------------------------------------------------------------------

// CliqueRecord is the persisted form of one clique.
type CliqueRecord struct {
	Color    graph.Color `json:"color"`
	Vertices []int       `json:"vertices"`
}

// Record is the persisted form of a Snapshot.
type Record struct {
	RunID     string         `json:"run_id"`
	N         int            `json:"n"`
	K         int            `json:"k"`
	Iteration int64          `json:"iteration"`
	Count     int            `json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	Coloring  string         `json:"coloring"`
	Cliques   []CliqueRecord `json:"cliques,omitempty"`
}

// Record converts the snapshot to its persisted form.
func (s *Snapshot) Record() Record {
	rec := Record{
		RunID:     s.RunID,
		N:         s.graph.N(),
		K:         s.K,
		Iteration: s.Iteration,
		Count:     s.Count,
		CreatedAt: s.CreatedAt,
		Coloring:  s.graph.LoaderString(),
		Cliques:   make([]CliqueRecord, len(s.cliques)),
	}
	for i, c := range s.cliques {
		rec.Cliques[i] = CliqueRecord{Color: c.Color(), Vertices: c.Vertices()}
	}
	return rec
}

// FromRecord rebuilds a snapshot, validating every clique against the
// decoded coloring.
func FromRecord(rec Record) (*Snapshot, error) {
	g, err := graph.FromLoaderString(rec.N, rec.Coloring)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	cliques := make([]clique.Clique, 0, len(rec.Cliques))
	for i, cr := range rec.Cliques {
		c, err := clique.NewOfColor(g, cr.Color, cr.Vertices)
		if err != nil {
			return nil, fmt.Errorf("%w: clique %d: %w", ErrCorruptRecord, i, err)
		}
		cliques = append(cliques, c)
	}

	return &Snapshot{
		Meta:      Meta{RunID: rec.RunID, K: rec.K, Iteration: rec.Iteration},
		Count:     rec.Count,
		CreatedAt: rec.CreatedAt,
		graph:     g,
		cliques:   cliques,
	}, nil
}
