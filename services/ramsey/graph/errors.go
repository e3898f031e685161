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

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrInvalidSize is returned when a graph is requested with fewer than
	// two vertices. A complete graph needs at least one edge to be colored.
	ErrInvalidSize = errors.New("graph needs at least two vertices")

	// ErrFormat is returned when a matrix or loader string does not describe
	// a complete graph of the expected size. The graph is left unchanged.
	ErrFormat = errors.New("malformed coloring")

	// ErrNoEdgeOfColor is returned when sampling a color that has no edges.
	// Only reachable for degenerate configurations (very small N).
	ErrNoEdgeOfColor = errors.New("no edge of requested color")

	// ErrSizeMismatch is returned when copying between graphs of different order.
	ErrSizeMismatch = errors.New("graph size mismatch")

	// ErrUnknownColor is returned when parsing a color name fails.
	ErrUnknownColor = errors.New("unknown color")
)
