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

import "errors"

// Sentinel errors for clique construction and detection.
var (
	// ErrInvalidClique is returned when a vertex tuple is not a monochromatic
	// complete subgraph of the graph it was checked against. Raised during
	// detection it indicates a broken search and fails the whole round.
	ErrInvalidClique = errors.New("not a monochromatic clique")

	// ErrEmptyRegistry is returned when sampling from a registry with no
	// cliques (of the requested color).
	ErrEmptyRegistry = errors.New("clique registry is empty")

	// ErrWorkerPanic is returned when a detection worker panicked. The
	// worker's partial results are discarded and the round fails so that
	// clique counts are never under-reported.
	ErrWorkerPanic = errors.New("detection worker panicked")

	// ErrPoolClosed is returned when a round is dispatched to a closed pool.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrInvalidConfig is returned for unusable detector settings
	// (clique size below 2, no workers).
	ErrInvalidConfig = errors.New("invalid detector configuration")

	// ErrUnknownStrategy is returned when parsing a search strategy fails.
	ErrUnknownStrategy = errors.New("unknown search strategy")
)
