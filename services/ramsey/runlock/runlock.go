// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package runlock keeps two searches from writing the same checkpoint
// directory.
//
// The lock is an advisory OS lock (flock on Unix, LockFileEx on Windows) on
// a file inside the directory. The OS drops it when the holder exits, so a
// crashed run never leaves the directory locked. The file also records who
// holds it.
package runlock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the lock file created inside the locked directory.
const FileName = "ramsey.lock"

var (
	// ErrLocked is returned by Acquire when another holder has the lock.
	ErrLocked = errors.New("directory is locked by another run")

	// ErrReleased is returned when releasing a lock twice.
	ErrReleased = errors.New("lock already released")

	// ErrNoHolder is returned by Holder when the lock file is empty or
	// missing.
	ErrNoHolder = errors.New("no lock holder recorded")
)

// Info describes the holder of a lock.
type Info struct {
	PID        int       `json:"pid"`
	RunID      string    `json:"run_id"`
	Host       string    `json:"host"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// LockedError reports the current holder. It matches ErrLocked with
// errors.Is.
type LockedError struct {
	Dir    string
	Holder *Info // nil if the lock file could not be read
}

func (e *LockedError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("%s: %v", e.Dir, ErrLocked)
	}
	return fmt.Sprintf("%s: %v (run %s, pid %d, since %s)",
		e.Dir, ErrLocked, e.Holder.RunID, e.Holder.PID, e.Holder.AcquiredAt.Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// Lock is a held directory lock.
//
// Thread Safety: Release is safe to call from any goroutine.
type Lock struct {
	mu   sync.Mutex
	f    *os.File
	path string
	info Info
}

// Acquire takes the lock on dir without blocking.
//
// Inputs:
//
//	dir - Directory to lock. Created if missing.
//	runID - Recorded in the lock file for diagnostics.
//
// Outputs:
//
//	*Lock - The held lock. Call Release when done.
//	error - *LockedError (matches ErrLocked) if another holder exists.
func Acquire(dir, runID string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, errWouldBlock) {
			holder, _ := Holder(dir)
			return nil, &LockedError{Dir: dir, Holder: holder}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	host, _ := os.Hostname()
	l := &Lock{
		f:    f,
		path: path,
		info: Info{PID: os.Getpid(), RunID: runID, Host: host, AcquiredAt: time.Now().UTC()},
	}
	if err := l.writeInfo(); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *Lock) writeInfo() error {
	data, err := json.Marshal(l.info)
	if err != nil {
		return fmt.Errorf("encode lock info: %w", err)
	}
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.WriteAt(append(data, '\n'), 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return l.f.Sync()
}

// Info returns the holder record written by this lock.
func (l *Lock) Info() Info {
	return l.info
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release clears the holder record and drops the lock. The file stays:
// unlinking it would let a waiter lock an orphaned inode.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrReleased
	}
	err := errors.Join(l.f.Truncate(0), unlockFile(l.f), l.f.Close())
	l.f = nil
	return err
}

// Holder reads the holder record of dir's lock file. It does not check
// whether the lock is currently held; pair it with ProcessAlive for that.
func Holder(dir string) (*Info, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoHolder
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoHolder
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode lock info: %w", err)
	}
	return &info, nil
}

// ProcessAlive reports whether a process with pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return processAlive(pid)
}
