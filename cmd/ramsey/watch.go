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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/clique"
)

// watchedExt lists the checkpoint file extensions the watcher analyses.
var watchedExt = map[string]bool{".max": true, ".chk": true, ".sol": true}

func newWatchCmd(a *app) *cobra.Command {
	var (
		k        int
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Re-check checkpoint files as a search writes them",
		Long: `Watches DIR (default: checkpoint.dir from the config) and counts the
K-cliques of every .max, .chk and .sol file created or rewritten there.
Runs until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Checkpoint.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("k") {
				k = a.cfg.Graph.K
			}
			logger, err := a.startLogger(cmd, 0, 0)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := ux.NewPrinter(cmd.OutOrStdout())
			p.Info(fmt.Sprintf("watching %s for K=%d cliques", dir, k))
			err = watchDir(ctx, dir, k, debounce, logger, func(r analysis) {
				printAnalysis(p, r)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "clique size (default from config)")
	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "wait this long after the last write before analysing")
	return cmd
}

// watchDir analyses checkpoint files in dir after each burst of writes and
// passes the results to onResult. Files that fail to load are logged and
// skipped. It returns when ctx is done.
func watchDir(ctx context.Context, dir string, k int, debounce time.Duration, logger *slog.Logger, onResult func(analysis)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !watchedExt[filepath.Ext(event.Name)] {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timerC = nil
			for path := range pending {
				delete(pending, path)
				r, err := analyse(path, 0, k, clique.All)
				if err != nil {
					logger.Warn("skipping unreadable checkpoint",
						slog.String("file", path),
						slog.String("error", err.Error()),
					)
					continue
				}
				onResult(r)
			}
		}
	}
}
