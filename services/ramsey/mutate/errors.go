// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mutate

import "errors"

// Sentinel errors for mutation.
var (
	// ErrUnknownType is returned when parsing a mutation type fails.
	ErrUnknownType = errors.New("unknown mutation type")

	// ErrUnbalancedPair is returned when a strategy proposes a pair that is
	// not exactly one Red edge and one Blue edge. Nothing is flipped.
	ErrUnbalancedPair = errors.New("mutation pair does not preserve color balance")

	// ErrInvalidConfig is returned for unusable engine settings.
	ErrInvalidConfig = errors.New("invalid mutation configuration")
)
