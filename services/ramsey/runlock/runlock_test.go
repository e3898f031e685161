// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package runlock

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "run-a")
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), l.Info().PID)
	assert.FileExists(t, l.Path())

	holder, err := Holder(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-a", holder.RunID)
	assert.Equal(t, os.Getpid(), holder.PID)
	assert.False(t, holder.AcquiredAt.IsZero())

	require.NoError(t, l.Release())
	assert.ErrorIs(t, l.Release(), ErrReleased)

	_, err = Holder(dir)
	assert.ErrorIs(t, err, ErrNoHolder)

	again, err := Acquire(dir, "run-b")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquire_Contended(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "first")
	require.NoError(t, err)
	defer l.Release()

	_, err = Acquire(dir, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	require.NotNil(t, locked.Holder)
	assert.Equal(t, "first", locked.Holder.RunID)
	assert.Contains(t, err.Error(), "run first")
}

func TestAcquire_OneWinner(t *testing.T) {
	dir := t.TempDir()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		held  []*Lock
		fails int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Acquire(dir, "racer")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails++
				return
			}
			held = append(held, l)
		}()
	}
	wg.Wait()

	require.Len(t, held, 1)
	assert.Equal(t, 7, fails)
	require.NoError(t, held[0].Release())
}

func TestAcquire_CreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/checkpoints"
	l, err := Acquire(dir, "x")
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.DirExists(t, dir)
}

func TestHolder_Missing(t *testing.T) {
	_, err := Holder(t.TempDir())
	assert.ErrorIs(t, err, ErrNoHolder)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, ProcessAlive(os.Getpid()))
	assert.False(t, ProcessAlive(0))
	assert.False(t, ProcessAlive(-1))
}
