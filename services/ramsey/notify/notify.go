// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notify delivers a found counterexample to the outside world.
//
// The search only hands a Solution to a Notifier; whether it ends up on the
// console, in a file, in a mailbox or in a bucket is decided here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// ErrInvalidConfig is returned by notifier constructors for unusable settings.
var ErrInvalidConfig = errors.New("invalid notifier configuration")

// Solution is a coloring of K_N with no monochromatic K-clique.
type Solution struct {
	RunID     string
	N         int
	K         int
	Iteration int64
	Elapsed   time.Duration
	FoundAt   time.Time

	// Graph is owned by the Solution; notifiers must not modify it.
	Graph *graph.Graph
}

// Subject is a one-line summary suitable for a mail subject.
func (s Solution) Subject() string {
	return fmt.Sprintf("Ramsey counterexample found: R(%d,%d) > %d", s.K, s.K, s.N)
}

// Body is the plain-text report: run details, color counts and the Red
// adjacency list (Blue is the complement).
func (s Solution) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", s.Subject())
	fmt.Fprintf(&b, "run:        %s\n", s.RunID)
	fmt.Fprintf(&b, "iteration:  %d\n", s.Iteration)
	fmt.Fprintf(&b, "elapsed:    %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "found at:   %s\n", s.FoundAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "edges:      %s\n", s.Graph.CountSummary())
	fmt.Fprintf(&b, "coloring:   %s\n\n", s.Graph.LoaderString())
	b.WriteString("RED adjacency:\n")
	b.WriteString(s.Graph.AdjacencyList(graph.Red))
	return b.String()
}

// Notifier delivers a solution.
type Notifier interface {
	Notify(ctx context.Context, s Solution) error
}

// Multi notifies every member, continuing past failures, and joins the errors.
type Multi []Notifier

// Notify calls every notifier in order.
func (m Multi) Notify(ctx context.Context, s Solution) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
