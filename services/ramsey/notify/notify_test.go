// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// pentagon returns the triangle-free coloring of K5: a Red 5-cycle.
func pentagon(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(5)
	require.NoError(t, err)
	for v := 0; v < 5; v++ {
		g.SetColor(v, (v+1)%5, graph.Red)
	}
	return g
}

func testSolution(t *testing.T) Solution {
	return Solution{
		RunID:     "run-1",
		N:         5,
		K:         3,
		Iteration: 17,
		Elapsed:   1500 * time.Millisecond,
		FoundAt:   time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC),
		Graph:     pentagon(t),
	}
}

func TestSolution_Body(t *testing.T) {
	s := testSolution(t)
	body := s.Body()

	assert.Equal(t, "Ramsey counterexample found: R(3,3) > 5", s.Subject())
	assert.Contains(t, body, "run:        run-1")
	assert.Contains(t, body, "iteration:  17")
	assert.Contains(t, body, "[RED:5] [BLUE:5]")
	assert.Contains(t, body, "0: 1 4\n")
	assert.Contains(t, body, s.Graph.LoaderString())
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	require.NoError(t, n.Notify(context.Background(), testSolution(t)))

	out := buf.String()
	assert.Contains(t, out, "OK: Ramsey counterexample found")
	assert.Contains(t, out, "iteration=17")
	assert.Contains(t, out, "edges=red=5 blue=5")
	assert.Contains(t, out, "RED adjacency:")
}

func TestFileNotifier(t *testing.T) {
	dir := t.TempDir()
	n := NewFileNotifier(dir+"/reports", "")
	s := testSolution(t)
	require.NoError(t, n.Notify(context.Background(), s))

	data, err := os.ReadFile(n.Path(s))
	require.NoError(t, err)
	assert.Equal(t, s.Body(), string(data))
	assert.Contains(t, n.Path(s), "ramsey_5_3_run-1.txt")
}

func TestEmailNotifier_Send(t *testing.T) {
	password := []byte("hunter2")
	n, err := NewEmailNotifier(EmailConfig{
		Host:     "smtp.example.com",
		Username: "bot",
		From:     "bot@example.com",
		To:       []string{"a@example.com", "b@example.com"},
	}, password)
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), testSolution(t)))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: Ramsey counterexample found: R(3,3) > 5\r\n")
	assert.Contains(t, msg, "\r\n\r\nRamsey counterexample found")
	assert.NotContains(t, msg, "hunter2")
}

func TestEmailNotifier_NoPasswordNoAuth(t *testing.T) {
	n, err := NewEmailNotifier(EmailConfig{Host: "localhost", Port: 25, From: "x@y", To: []string{"z@y"}}, nil)
	require.NoError(t, err)

	var gotAuth smtp.Auth
	called := false
	n.send = func(addr string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		called = true
		gotAuth = a
		assert.Equal(t, "localhost:25", addr)
		return nil
	}
	require.NoError(t, n.Notify(context.Background(), testSolution(t)))
	assert.True(t, called)
	assert.Nil(t, gotAuth)
}

func TestEmailNotifier_InvalidConfig(t *testing.T) {
	_, err := NewEmailNotifier(EmailConfig{Host: "h", From: "f"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(context.Context, Solution) error {
	r.calls++
	return r.err
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	boom := errors.New("smtp down")
	first := &recordingNotifier{err: boom}
	second := &recordingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), testSolution(t))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, Multi{second}.Notify(context.Background(), testSolution(t)))
}

func TestObjectName(t *testing.T) {
	s := testSolution(t)
	assert.Equal(t, "solutions/run-1/ramsey_5_3.sol", ObjectName("solutions", s, "sol"))
	assert.Equal(t, "run-1/ramsey_5_3.txt", ObjectName("", s, "txt"))
}

func TestNewGCSNotifier_InvalidConfig(t *testing.T) {
	_, err := NewGCSNotifier(context.Background(), GCSConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGCSNotifier(context.Background(), GCSConfig{Bucket: "b", CredentialsFile: "/does/not/exist.json"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
