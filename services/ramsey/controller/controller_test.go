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
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ramsey/services/ramsey/checkpoint"
	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
	"github.com/AleutianAI/ramsey/services/ramsey/mutate"
	"github.com/AleutianAI/ramsey/services/ramsey/notify"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(n, k int) Config {
	return Config{
		N:        n,
		K:        k,
		Workers:  2,
		Strategy: clique.All,
		Mutation: mutate.Config{
			Primary:   mutate.Random,
			Secondary: mutate.Targeted,
			Interval:  2,
			Repeat:    1,
			EdgeRange: 1,
		},
		Seed:  1,
		RunID: "test-run",
	}
}

func newController(t *testing.T, cfg Config, deps Deps) *Controller {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = quietLogger
	}
	c, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

type recordingNotifier struct {
	mu        sync.Mutex
	solutions []notify.Solution
}

func (r *recordingNotifier) Notify(_ context.Context, s notify.Solution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solutions = append(r.solutions, s)
	return nil
}

type recordingSink struct {
	iterations []Iteration
	err        error
}

func (r *recordingSink) WriteIteration(_ context.Context, it Iteration) error {
	r.iterations = append(r.iterations, it)
	return r.err
}

type failingStore struct{ saves int }

func (f *failingStore) Save(context.Context, *checkpoint.Snapshot) error {
	f.saves++
	return errors.New("disk full")
}
func (f *failingStore) SaveSolution(context.Context, *checkpoint.Snapshot) error {
	return errors.New("disk full")
}
func (f *failingStore) Close() error { return nil }

// TestSearch_K6NeverTerminal checks that every coloring of K6 has a
// monochromatic triangle, so the search never terminates.
func TestSearch_K6NeverTerminal(t *testing.T) {
	c := newController(t, testConfig(6, 3), Deps{})

	detections := 0
	for step := 0; step < 400; step++ {
		before := c.State()
		state, err := c.Step(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, Terminal, state)
		if before == Detect {
			detections++
			assert.GreaterOrEqual(t, c.Stats().CurrentCliques, 1)
		}
	}
	assert.Greater(t, detections, 50)

	red, blue := c.Graph().ColorCounts()
	assert.Equal(t, 7, red)
	assert.Equal(t, 8, blue)
}

// TestSearch_K5ReachesTerminal runs the full loop on K5, which has a
// triangle-free coloring.
func TestSearch_K5ReachesTerminal(t *testing.T) {
	var solved *Result
	for seed := uint64(1); seed <= 20 && solved == nil; seed++ {
		cfg := testConfig(5, 3)
		cfg.Seed = seed
		cfg.MaxIterations = 5000
		notifier := &recordingNotifier{}
		c := newController(t, cfg, Deps{Notifier: notifier})

		res, err := c.Run(context.Background())
		if errors.Is(err, ErrIterationLimit) {
			continue
		}
		require.NoError(t, err)
		require.NotNil(t, res.Solution)
		assert.Equal(t, Terminal, c.State())
		require.Len(t, notifier.solutions, 1)
		assert.True(t, notifier.solutions[0].Graph.Equal(res.Solution))
		solved = res
	}
	require.NotNil(t, solved, "no seed reached a triangle-free coloring of K5")

	for _, c := range graph.Colors {
		found, err := clique.FindSerial(solved.Solution, c, 3, clique.All)
		require.NoError(t, err)
		assert.Empty(t, found)
	}
	assert.True(t, solved.Stats.Solved)
	assert.Equal(t, 0, solved.Stats.BestCliques)
}

func TestSearch_TerminalPersistsAndNotifies(t *testing.T) {
	// A Red 5-cycle has no monochromatic triangle.
	g, err := graph.New(5)
	require.NoError(t, err)
	for v := 0; v < 5; v++ {
		g.SetColor(v, (v+1)%5, graph.Red)
	}

	dir := t.TempDir()
	fs, err := checkpoint.NewFileStore(dir, "ramsey", false)
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	c := newController(t, testConfig(5, 3), Deps{Initial: g, Store: fs, Notifier: notifier})

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Iterations)
	assert.True(t, res.Solution.Equal(g))
	assert.FileExists(t, fs.SolutionPath(5, 3))

	require.Len(t, notifier.solutions, 1)
	sol := notifier.solutions[0]
	assert.Equal(t, "test-run", sol.RunID)
	assert.Equal(t, int64(1), sol.Iteration)

	// Terminal is absorbing.
	state, err := c.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Terminal, state)
	assert.Len(t, notifier.solutions, 1)
}

func TestSearch_RollbackRestoresCheckpoint(t *testing.T) {
	c := newController(t, testConfig(6, 3), Deps{})
	ctx := context.Background()
	initial := c.Graph()

	for _, want := range []State{Evaluate, Checkpoint, Mutate} {
		state, err := c.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, want, state)
	}
	require.NotNil(t, c.best)
	bestCount := c.best.Count
	bestKeys := keys(c.best.Cliques())

	// All Blue has C(6,3)=20 triangles, more than any balanced coloring.
	require.NoError(t, c.g.LoadFromString("000000000000000"))
	c.state = Detect

	for _, want := range []State{Evaluate, Rollback, Mutate} {
		state, err := c.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, want, state)
	}
	assert.Equal(t, 20, c.Stats().CurrentCliques)
	assert.Greater(t, 20, bestCount)

	assert.True(t, c.g.Equal(initial), "coloring must equal the checkpoint edge by edge")
	assert.Equal(t, bestKeys, keys(c.reg.All()))
	assert.Equal(t, int64(1), c.Stats().Rollbacks)
}

func keys(cs []clique.Clique) map[string]bool {
	out := make(map[string]bool, len(cs))
	for _, c := range cs {
		out[c.Key()] = true
	}
	return out
}

func TestSearch_IterationLimit(t *testing.T) {
	cfg := testConfig(6, 3)
	cfg.MaxIterations = 3
	sink := &recordingSink{}
	c := newController(t, cfg, Deps{Sink: sink})

	res, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrIterationLimit)
	require.NotNil(t, res)
	assert.Nil(t, res.Solution)
	assert.Equal(t, int64(3), res.Iterations)
	assert.Equal(t, int64(3), c.Stats().Iterations)

	require.Len(t, sink.iterations, 3)
	assert.Equal(t, Checkpoint, sink.iterations[0].Decision)
	for i, it := range sink.iterations {
		assert.Equal(t, int64(i+1), it.Number)
		assert.Equal(t, "test-run", it.RunID)
		assert.LessOrEqual(t, it.Best, it.Red+it.Blue)
	}
}

func TestSearch_PersistenceFailuresAreNotFatal(t *testing.T) {
	cfg := testConfig(6, 3)
	cfg.MaxIterations = 5
	store := &failingStore{}
	sink := &recordingSink{err: errors.New("influx down")}
	c := newController(t, cfg, Deps{Store: store, Sink: sink})

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.GreaterOrEqual(t, store.saves, 1)
	assert.Len(t, sink.iterations, 5)
}

func TestSearch_Cancelled(t *testing.T) {
	c := newController(t, testConfig(6, 3), Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), res.Iterations)
	assert.Equal(t, Detect, c.State())
}

func TestSearch_StatsAndTimer(t *testing.T) {
	cfg := testConfig(7, 3)
	cfg.MaxIterations = 4
	c := newController(t, cfg, Deps{})

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrIterationLimit)

	s := c.Stats()
	assert.Equal(t, "test-run", s.RunID)
	assert.Equal(t, 7, s.N)
	assert.Equal(t, int64(4), s.Iterations)
	assert.Equal(t, int64(4), s.Checkpoints+s.Rollbacks)
	assert.GreaterOrEqual(t, s.BestCliques, 1)
	assert.False(t, s.StartedAt.IsZero())
	assert.False(t, s.LastMutation.IsZero())

	var mutations int64
	for _, n := range s.Mutations {
		mutations += n
	}
	assert.Equal(t, int64(4), mutations)

	assert.Contains(t, s.PhaseSeconds, "detect")
	assert.Equal(t, int64(4), c.timer.Count(PhaseDetect))
	assert.Equal(t, int64(4), c.timer.Count(PhaseMutate))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{N: 1, K: 3, Workers: 1}, Deps{Logger: quietLogger})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := testConfig(6, 3)
	cfg.Mutation.Repeat = 0
	_, err = New(cfg, Deps{Logger: quietLogger})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, mutate.ErrInvalidConfig)

	g, err := graph.New(5)
	require.NoError(t, err)
	_, err = New(testConfig(6, 3), Deps{Logger: quietLogger, Initial: g})
	assert.ErrorIs(t, err, graph.ErrSizeMismatch)
}

func TestNew_GeneratesRunIDAndUsesRand(t *testing.T) {
	cfg := testConfig(8, 3)
	cfg.RunID = ""
	rng := rand.New(rand.NewPCG(5, 6))
	c := newController(t, cfg, Deps{Rand: rng})
	assert.Len(t, c.RunID(), 36)

	other := newController(t, cfg, Deps{Rand: rand.New(rand.NewPCG(5, 6))})
	assert.True(t, c.Graph().Equal(other.Graph()), "same random source, same initial coloring")
	assert.NotEqual(t, c.RunID(), other.RunID())
}

func TestTimer(t *testing.T) {
	var tm Timer
	tm.Add(PhaseStats, 2*time.Millisecond)
	stop := tm.Start(PhaseStats)
	d := stop()
	assert.GreaterOrEqual(t, tm.Total(PhaseStats), 2*time.Millisecond+d)
	assert.Equal(t, int64(2), tm.Count(PhaseStats))
	assert.Len(t, tm.Totals(), 4)
	assert.Equal(t, "unknown", Phase(9).String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ROLLBACK", Rollback.String())
	assert.Equal(t, "State(42)", State(42).String())
}
