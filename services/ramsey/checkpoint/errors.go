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

import "errors"

var (
	// ErrNotFound is returned when no snapshot matches a lookup.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorruptRecord is returned when a stored record does not decode to a
	// valid coloring or its cliques do not hold in that coloring.
	ErrCorruptRecord = errors.New("corrupt checkpoint record")

	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrInvalidRunID is returned for run ids that cannot be used as a key
	// segment: empty, or containing '/'.
	ErrInvalidRunID = errors.New("invalid run id")
)
