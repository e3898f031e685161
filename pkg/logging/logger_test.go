// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedNow() time.Time { return day }

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "ramsey_288_8_2025-03-14.log", FileName("ramsey", 288, 8, day))
	assert.Equal(t, "check_2025-03-14.log", FileName("check", 0, 0, day))
}

func TestNew_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Stderr: &buf})
	require.NoError(t, err)
	defer l.Close()

	l.Slog().Debug("hidden")
	l.Slog().Info("search started", slog.Int("n", 17))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"search started\"")
	assert.Contains(t, out, "n=17")
	assert.Contains(t, out, "service=ramsey")
	assert.Empty(t, l.Path())
}

func TestNew_JSONStderr(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Stderr: &buf, JSON: true, Level: slog.LevelDebug, Service: "check"})
	require.NoError(t, err)

	l.Slog().Debug("probe", slog.String("file", "a.max"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "probe", rec["msg"])
	assert.Equal(t, "check", rec["service"])
	assert.Equal(t, "a.max", rec["file"])
}

func TestNew_FileAndStderr(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l, err := New(Config{LogDir: dir, N: 17, K: 4, Stderr: &buf, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ramsey_17_4_2025-03-14.log"), l.Path())
	l.Slog().With(slog.String("run_id", "r1")).Warn("checkpoint not persisted")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.Contains(t, buf.String(), "checkpoint not persisted")

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "r1", rec["run_id"])
	assert.Equal(t, "ramsey", rec["service"])
}

func TestNew_QuietWritesFileOnly(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Config{LogDir: dir, Quiet: true, Stderr: &buf, Now: fixedNow})
	require.NoError(t, err)

	l.Slog().Info("one")
	l.Slog().Info("two")
	require.NoError(t, l.Close())

	assert.Empty(t, buf.String())
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestNew_QuietWithoutDirKeepsStderr(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Quiet: true, Stderr: &buf})
	require.NoError(t, err)
	l.Slog().Info("still visible")
	assert.Contains(t, buf.String(), "still visible")
}

func TestNew_AppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l, err := New(Config{LogDir: dir, Quiet: true, Now: fixedNow})
		require.NoError(t, err)
		l.Slog().Info("run")
		require.NoError(t, l.Close())
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName("ramsey", 0, 0, day)))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `"msg":"run"`))
}

func TestNew_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err := New(Config{LogDir: filepath.Join(file, "logs")})
	assert.Error(t, err)
}

func TestMultiHandler_Group(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Config{LogDir: dir, Stderr: &buf, Now: fixedNow})
	require.NoError(t, err)
	l.Slog().WithGroup("round").Info("done", slog.Int("red", 3))
	require.NoError(t, l.Close())

	assert.Contains(t, buf.String(), "round.red=3")
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"round":{"red":3}`)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), expandPath("~/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
}
