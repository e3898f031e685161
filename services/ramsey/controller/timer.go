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
	"sync"
	"time"
)

// Phase is a timed section of the search loop.
type Phase int

const (
	PhaseDetect Phase = iota
	PhaseMutate
	PhaseCheckpoint
	PhaseStats
	numPhases
)

var phaseNames = [numPhases]string{
	PhaseDetect:     "detect",
	PhaseMutate:     "mutate",
	PhaseCheckpoint: "checkpoint",
	PhaseStats:      "stats",
}

func (p Phase) String() string {
	if p >= 0 && p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// Timer accumulates wall time per phase.
//
// Thread Safety: Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	totals [numPhases]time.Duration
	counts [numPhases]int64
}

// Start begins timing p. Call the returned func to stop; it returns the
// elapsed time of this measurement.
//
//	defer t.Start(PhaseDetect)()
func (t *Timer) Start(p Phase) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		t.Add(p, d)
		return d
	}
}

// Add records d against p.
func (t *Timer) Add(p Phase, d time.Duration) {
	t.mu.Lock()
	t.totals[p] += d
	t.counts[p]++
	t.mu.Unlock()
	phaseDuration.WithLabelValues(p.String()).Observe(d.Seconds())
}

// Total returns the accumulated time of p.
func (t *Timer) Total(p Phase) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals[p]
}

// Totals returns the accumulated time of every phase keyed by name.
func (t *Timer) Totals() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]time.Duration, numPhases)
	for p := Phase(0); p < numPhases; p++ {
		out[p.String()] = t.totals[p]
	}
	return out
}

// Count returns how many measurements were recorded for p.
func (t *Timer) Count(p Phase) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[p]
}
