// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ramsey/services/ramsey/checkpoint"
	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/controller"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
	"github.com/AleutianAI/ramsey/services/ramsey/runlock"
	"github.com/AleutianAI/ramsey/services/ramsey/telemetry"
)

// pentagon is the 5-cycle coloring of K5: both colors are 5-cycles, so
// neither contains a triangle.
const pentagon = "1001100101"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, noConfig(t), args...)
}

func executeWith(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// noConfig returns an empty config file so tests never pick up a
// ramsey.yaml from the working directory.
func noConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, "telemetry:\n  trace_exporter: none\n  metric_exporter: none\n")
}

func saveLoader(t *testing.T, dir, name string, n int, data string) string {
	t.Helper()
	g, err := graph.FromLoaderString(n, data)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, g.SaveFile(path))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errCliquesFound))
	assert.Equal(t, 3, exitCode(controller.ErrIterationLimit))
	assert.Equal(t, 130, exitCode(context.Canceled))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestGenerate_WritesBalancedMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.max")
	_, err := execute(t, "generate", "-n", "9", "--seed", "3", "-o", path)
	require.NoError(t, err)

	g, err := graph.LoadFile(path, 9)
	require.NoError(t, err)
	red, blue := g.ColorCounts()
	assert.Equal(t, 18, red)
	assert.Equal(t, 18, blue)

	again := filepath.Join(t.TempDir(), "g.max")
	_, err = execute(t, "generate", "-n", "9", "--seed", "3", "-o", again)
	require.NoError(t, err)
	h, err := graph.LoadFile(again, 9)
	require.NoError(t, err)
	assert.True(t, g.Equal(h), "same seed, same coloring")
}

func TestGenerate_Stdout(t *testing.T) {
	out, err := execute(t, "generate", "-n", "4", "--seed", "1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	clean := saveLoader(t, dir, "clean.max", 5, pentagon)
	blue := saveLoader(t, dir, "blue.max", 5, "0000000000")

	out, err := execute(t, "check", "-k", "3", clean)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: clean.max")
	assert.Contains(t, out, "red=0 blue=0")

	out, err = execute(t, "check", "-k", "3", "-j", "2", clean, blue)
	require.ErrorIs(t, err, errCliquesFound)
	assert.Contains(t, err.Error(), "1 of 2 files")
	assert.Contains(t, out, "WARN: blue.max")
	assert.Contains(t, out, "red=0 blue=10")

	_, err = execute(t, "check", "-k", "3", filepath.Join(dir, "missing.max"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckFiles_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		saveLoader(t, dir, "a.max", 5, "0000000000"),
		saveLoader(t, dir, "b.max", 5, pentagon),
		saveLoader(t, dir, "c.max", 4, "111111"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	got, err := checkFiles(context.Background(), paths, 0, 3, clique.All, 3, logger)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 10, got[0].Blue)
	assert.Equal(t, 0, got[1].Total())
	assert.Equal(t, 4, got[2].Red)
	assert.Equal(t, 4, got[2].N)

	first, err := checkFiles(context.Background(), paths[:1], 0, 3, clique.First, 1, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, first[0].Blue)
}

func TestRender(t *testing.T) {
	g, err := graph.FromLoaderString(4, "100101")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, g, formatLoader, graph.Red))
	assert.Equal(t, "100101\n", buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, g, formatSummary, graph.Red))
	assert.Contains(t, buf.String(), "N=4 [RED:3] [BLUE:3]")
	assert.Contains(t, buf.String(), "symmetric true")

	buf.Reset()
	require.NoError(t, render(&buf, g, formatCSV, graph.Red))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 4)

	assert.Error(t, render(&buf, g, "svg", graph.Red))
}

func TestRenderCmd(t *testing.T) {
	path := saveLoader(t, t.TempDir(), "p.max", 5, pentagon)
	out, err := execute(t, "render", path, "--format", "loader")
	require.NoError(t, err)
	assert.Equal(t, pentagon+"\n", out)

	_, err = execute(t, "render", path, "--color", "GREEN")
	assert.Error(t, err)
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan analysis, 16)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- watchDir(ctx, dir, 3, 20*time.Millisecond, logger, func(r analysis) {
			results <- r
		})
	}()

	// Ignored extension.
	saveLoader(t, dir, "notes.txt", 5, "0000000000")

	// Rewrite until the watcher has registered the directory.
	var got analysis
	deadline := time.After(5 * time.Second)
wait:
	for {
		saveLoader(t, dir, "ramsey_5_3.max", 5, pentagon)
		select {
		case got = <-results:
			break wait
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher reported nothing")
		}
	}
	assert.Equal(t, "ramsey_5_3.max", filepath.Base(got.Path))
	assert.Equal(t, 0, got.Total())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watchDir did not stop")
	}
}

func TestHistory(t *testing.T) {
	db := t.TempDir()
	store, err := checkpoint.OpenBadger(checkpoint.BadgerConfig{Path: db})
	require.NoError(t, err)

	g, err := graph.FromLoaderString(5, pentagon)
	require.NoError(t, err)
	ctx := context.Background()
	for i := int64(1); i <= 2; i++ {
		snap := checkpoint.Capture(g, clique.NewRegistry(), checkpoint.Meta{RunID: "run-a", K: 3, Iteration: i})
		require.NoError(t, store.Save(ctx, snap))
	}
	require.NoError(t, store.Close())

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-a")

	out, err = execute(t, "history", "--db", db, "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "#1=N=5 K=3 cliques=0")
	assert.Contains(t, out, "#2=")

	path := filepath.Join(t.TempDir(), "latest.max")
	_, err = execute(t, "history", "--db", db, "run-a", "-o", path)
	require.NoError(t, err)
	loaded, err := graph.LoadFile(path, 5)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(g))

	_, err = execute(t, "history", "--db", db, "run-a", "-o", path, "--solution")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestHistory_NoDatabase(t *testing.T) {
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "no database")
}

func searchConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Graph.N, cfg.Graph.K = 5, 3
	cfg.Search.Threads = 2
	cfg.Search.Seed = 1
	cfg.Checkpoint.Dir = t.TempDir()
	cfg.Influx.URL = ""
	cfg.Telemetry = telemetry.Config{TraceExporter: telemetry.ExporterNone, MetricExporter: telemetry.ExporterNone}
	return cfg
}

func TestRunSearch_FromFileSolvesImmediately(t *testing.T) {
	cfg := searchConfig(t)
	cfg.Graph.Launch = LaunchFile
	cfg.Graph.File = saveLoader(t, t.TempDir(), "start.max", 5, pentagon)
	cfg.Checkpoint.BadgerDir = filepath.Join(cfg.Checkpoint.Dir, "db")
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := runSearch(context.Background(), cfg, "run-solve", &out, logger)
	require.NoError(t, err)
	require.NotNil(t, res.Solution)
	assert.Equal(t, int64(1), res.Iterations)
	assert.Contains(t, out.String(), "search finished")

	assert.FileExists(t, filepath.Join(cfg.Checkpoint.Dir, "ramsey_5_3.sol"))
	_, err = runlock.Holder(cfg.Checkpoint.Dir)
	assert.ErrorIs(t, err, runlock.ErrNoHolder, "lock released after the run")

	store, err := checkpoint.OpenBadger(checkpoint.BadgerConfig{Path: cfg.Checkpoint.BadgerDir})
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Solution(context.Background(), "run-solve")
	require.NoError(t, err)
	assert.Equal(t, pentagon, rec.Coloring)
}

func TestRunSearch_LockedDirectory(t *testing.T) {
	cfg := searchConfig(t)
	held, err := runlock.Acquire(cfg.Checkpoint.Dir, "other-run")
	require.NoError(t, err)
	defer held.Release()

	_, err = runSearch(context.Background(), cfg, "", io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, runlock.ErrLocked)
}

func TestRunSearch_RejectsRunIDWithSlash(t *testing.T) {
	cfg := searchConfig(t)
	_, err := runSearch(context.Background(), cfg, "team/run-1", io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, checkpoint.ErrInvalidRunID)
	assert.NoFileExists(t, filepath.Join(cfg.Checkpoint.Dir, runlock.FileName), "rejected before the lock is taken")
}

func TestSearchCmd_IterationLimit(t *testing.T) {
	cfg := writeConfig(t, "checkpoint:\n  dir: "+t.TempDir()+"\ntelemetry:\n  metric_exporter: none\n")
	// Every coloring of K6 has a monochromatic triangle.
	out, err := executeWith(t, cfg, "search", "-n", "6", "-k", "3", "-t", "1", "--seed", "2",
		"--max-iterations", "3", "--run-id", "k6")
	assert.Contains(t, out, "search stopped without a counterexample")
	assert.ErrorIs(t, err, controller.ErrIterationLimit)
	assert.Equal(t, 3, exitCode(err))
}
