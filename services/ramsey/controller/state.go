// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package controller

import (
	"errors"
	"fmt"
)

// Sentinel errors for the search controller.
var (
	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid search configuration")

	// ErrIterationLimit is returned by Run when MaxIterations detections
	// complete without finding a counterexample.
	ErrIterationLimit = errors.New("iteration limit reached")
)

// State is a step of the search loop.
//
//	Detect -> Terminal                    no cliques of either color
//	Detect -> Evaluate -> Checkpoint      count <= best
//	                   -> Rollback        count >  best
//	Checkpoint | Rollback -> Mutate -> Detect
type State int

const (
	Detect State = iota
	Terminal
	Evaluate
	Checkpoint
	Rollback
	Mutate
)

var stateNames = [...]string{
	Detect:     "DETECT",
	Terminal:   "TERMINAL",
	Evaluate:   "EVALUATE",
	Checkpoint: "CHECKPOINT",
	Rollback:   "ROLLBACK",
	Mutate:     "MUTATE",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
