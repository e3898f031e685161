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

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	snapshot/<run>/<iteration, 16 zero-padded digits>  -> Record JSON
//	solution/<run>                                     -> Record JSON
//
// Zero padding keeps a run's snapshots in iteration order under a prefix scan.
const (
	snapshotPrefix = "snapshot/"
	solutionPrefix = "solution/"
)

// ValidateRunID reports whether runID can name a run in the key layout.
func ValidateRunID(runID string) error {
	if runID == "" || strings.Contains(runID, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

func snapshotKey(runID string, iteration int64) []byte {
	return fmt.Appendf(nil, "%s%s/%016d", snapshotPrefix, runID, iteration)
}

func runPrefix(runID string) []byte {
	return []byte(snapshotPrefix + runID + "/")
}

func solutionKey(runID string) []byte {
	return []byte(solutionPrefix + runID)
}

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is the value log GC period. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a value log rewrite.
	GCDiscardRatio float64

	// Logger receives Badger's internal log lines. Nil silences them.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns durable settings for a database at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// badgerLogger routes Badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// BadgerStore keeps the checkpoint history of every run in an embedded
// BadgerDB, so past runs can be listed and resumed.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	stopGC    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenBadger opens (or creates) the checkpoint database.
//
// Description:
//
//	Opens BadgerDB with a single version per key and, when GCInterval is
//	set on a persistent database, starts a goroutine that periodically
//	runs value log garbage collection until Close.
//
// Inputs:
//
//	cfg - Database settings. Path is required unless InMemory is set.
//
// Outputs:
//
//	*BadgerStore - The open store. Call Close when done.
//	error - Non-nil if the directory or database cannot be opened.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &BadgerStore{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing worth collecting.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("checkpoint value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *BadgerStore) put(ctx context.Context, key []byte, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(snap.Record())
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrStoreClosed
	}
	return err
}

// Save appends the snapshot to its run's history.
func (s *BadgerStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ValidateRunID(snap.RunID); err != nil {
		return err
	}
	if err := s.put(ctx, snapshotKey(snap.RunID, snap.Iteration), snap); err != nil {
		return fmt.Errorf("save checkpoint %s/%d: %w", snap.RunID, snap.Iteration, err)
	}
	return nil
}

// SaveSolution records the run's counterexample.
func (s *BadgerStore) SaveSolution(ctx context.Context, snap *Snapshot) error {
	if err := ValidateRunID(snap.RunID); err != nil {
		return err
	}
	if err := s.put(ctx, solutionKey(snap.RunID), snap); err != nil {
		return fmt.Errorf("save solution %s: %w", snap.RunID, err)
	}
	return nil
}

func decodeRecord(item *badger.Item) (Record, error) {
	var rec Record
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: key %s: %w", ErrCorruptRecord, item.Key(), err)
	}
	return rec, nil
}

// History returns every snapshot saved for runID, oldest first.
func (s *BadgerStore) History(ctx context.Context, runID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := runPrefix(runID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec, err := decodeRecord(it.Item())
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent snapshot saved for runID.
//
// Returns ErrNotFound if the run has no snapshots.
func (s *BadgerStore) Latest(ctx context.Context, runID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := runPrefix(runID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		it.Seek(append(prefix, 0xff))
		if !it.ValidForPrefix(prefix) {
			return fmt.Errorf("%w: run %s", ErrNotFound, runID)
		}
		var err error
		rec, err = decodeRecord(it.Item())
		return err
	})
	return rec, err
}

// Solution returns the counterexample recorded for runID.
//
// Returns ErrNotFound if the run has not found one.
func (s *BadgerStore) Solution(ctx context.Context, runID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(solutionKey(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no solution for run %s", ErrNotFound, runID)
		}
		if err != nil {
			return err
		}
		rec, err = decodeRecord(item)
		return err
	})
	return rec, err
}

// Runs lists the ids of every run with at least one snapshot, in key order.
func (s *BadgerStore) Runs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var runs []string
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(snapshotPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), snapshotPrefix)
			run, _, ok := strings.Cut(rest, "/")
			if !ok {
				continue
			}
			if len(runs) == 0 || runs[len(runs)-1] != run {
				runs = append(runs, run)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close stops value log GC and closes the database. Safe to call twice.
func (s *BadgerStore) Close() error {
	s.closeOnce.Do(func() {
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
