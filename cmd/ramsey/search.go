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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/checkpoint"
	"github.com/AleutianAI/ramsey/services/ramsey/controller"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
	"github.com/AleutianAI/ramsey/services/ramsey/notify"
	"github.com/AleutianAI/ramsey/services/ramsey/runlock"
	"github.com/AleutianAI/ramsey/services/ramsey/sink"
	"github.com/AleutianAI/ramsey/services/ramsey/status"
	"github.com/AleutianAI/ramsey/services/ramsey/telemetry"
)

type searchFlags struct {
	n, k, threads int
	seed          uint64
	maxIterations int64
	file          string
	statusAddr    string
	runID         string
}

func (f *searchFlags) apply(cmd *cobra.Command, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed("n") {
		cfg.Graph.N = f.n
	}
	if changed("k") {
		cfg.Graph.K = f.k
	}
	if changed("threads") {
		cfg.Search.Threads = f.threads
	}
	if changed("seed") {
		cfg.Search.Seed = f.seed
	}
	if changed("max-iterations") {
		cfg.Search.MaxIterations = f.maxIterations
	}
	if changed("file") {
		cfg.Graph.Launch = LaunchFile
		cfg.Graph.File = f.file
	}
	if changed("status-addr") {
		cfg.Status.Addr = f.statusAddr
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the counterexample search",
		Long: `Runs detect, evaluate, checkpoint or rollback, and mutate until a coloring
with no monochromatic K-clique is found. Flags override the config file.

Exit status is 0 when a counterexample is found, 3 when max_iterations is
reached and 130 when interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, &a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			logger, err := a.startLogger(cmd, a.cfg.Graph.N, a.cfg.Graph.K)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			_, err = runSearch(ctx, a.cfg, f.runID, cmd.OutOrStdout(), logger)
			return err
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.n, "n", "n", 0, "vertices of the complete graph")
	fl.IntVarP(&f.k, "k", "k", 0, "forbidden clique size")
	fl.IntVarP(&f.threads, "threads", "t", 0, "detection worker threads")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed (0 = time based)")
	fl.Int64Var(&f.maxIterations, "max-iterations", 0, "stop after this many detections (0 = unbounded)")
	fl.StringVarP(&f.file, "file", "f", "", "start from this matrix file instead of a random coloring")
	fl.StringVar(&f.statusAddr, "status-addr", "", "serve the status API on this address, e.g. :8090")
	fl.StringVar(&f.runID, "run-id", "", "run identifier (default: random UUID)")
	return cmd
}

// runSearch wires the stores, notifiers, sink and status server around a
// controller and runs it.
func runSearch(ctx context.Context, cfg Config, runID string, out io.Writer, logger *slog.Logger) (*controller.Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := checkpoint.ValidateRunID(runID); err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("run_id", runID))

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	if cfg.Checkpoint.Lock {
		lock, err := runlock.Acquire(cfg.Checkpoint.Dir, runID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("release checkpoint lock failed", slog.String("error", err.Error()))
			}
		}()
	}

	stores, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("close checkpoint stores failed", slog.String("error", err.Error()))
		}
	}()

	notifiers, closeNotifiers, err := buildNotifiers(ctx, cfg, out, logger)
	if err != nil {
		return nil, err
	}
	defer closeNotifiers()

	var iterSink controller.IterationSink
	if cfg.Influx.Enabled() {
		s, err := sink.NewInfluxSink(cfg.Influx, logger)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		if err := s.Ping(ctx); err != nil {
			logger.Warn("influxdb not reachable, iteration points may be dropped", slog.String("error", err.Error()))
		}
		iterSink = s
	}

	var initial *graph.Graph
	if cfg.Graph.Launch == LaunchFile {
		initial, err = graph.LoadFile(cfg.Graph.File, cfg.Graph.N)
		if err != nil {
			return nil, fmt.Errorf("launch from file: %w", err)
		}
		logger.Info("loaded initial coloring",
			slog.String("file", cfg.Graph.File),
			slog.String("edges", initial.CountSummary()),
		)
	}

	ctrl, err := controller.New(controller.Config{
		N:             cfg.Graph.N,
		K:             cfg.Graph.K,
		Workers:       cfg.Search.Threads,
		Strategy:      cfg.Strategy(),
		Mutation:      cfg.MutateConfig(),
		MaxIterations: cfg.Search.MaxIterations,
		LogInterval:   cfg.Search.LogInterval,
		Seed:          cfg.Search.Seed,
		RunID:         runID,
	}, controller.Deps{
		Logger:   logger,
		Store:    stores,
		Notifier: notifiers,
		Sink:     iterSink,
		Initial:  initial,
	})
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	var result *controller.Result
	g.Go(func() error {
		defer cancelRun()
		var err error
		result, err = ctrl.Run(runCtx)
		return err
	})
	if cfg.Status.Addr != "" {
		srv := status.NewServer(cfg.Status, ctrl, logger)
		g.Go(func() error {
			return srv.ListenAndServe(runCtx)
		})
	}
	err = g.Wait()

	printResult(ux.NewPrinter(out), result)
	return result, err
}

func openStores(cfg Config, logger *slog.Logger) (checkpoint.Multi, error) {
	files, err := checkpoint.NewFileStore(cfg.Checkpoint.Dir, cfg.Checkpoint.Prefix, cfg.Checkpoint.History)
	if err != nil {
		return nil, err
	}
	stores := checkpoint.Multi{files}
	if cfg.Checkpoint.BadgerDir != "" {
		bcfg := checkpoint.DefaultBadgerConfig(cfg.Checkpoint.BadgerDir)
		bcfg.Logger = logger
		db, err := checkpoint.OpenBadger(bcfg)
		if err != nil {
			return nil, err
		}
		stores = append(stores, db)
	}
	return stores, nil
}

func buildNotifiers(ctx context.Context, cfg Config, out io.Writer, logger *slog.Logger) (notify.Multi, func(), error) {
	dir := cfg.Notify.FileDir
	if dir == "" {
		dir = cfg.Checkpoint.Dir
	}
	notifiers := notify.Multi{
		notify.NewConsoleNotifier(out),
		notify.NewFileNotifier(dir, cfg.Checkpoint.Prefix),
	}
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close notifier failed", slog.String("error", err.Error()))
			}
		}
	}

	if cfg.Notify.Email.Host != "" {
		email, err := notify.NewEmailNotifier(cfg.EmailNotifierConfig(), []byte(os.Getenv(smtpPasswordEnv)))
		if err != nil {
			return nil, closeAll, err
		}
		notifiers = append(notifiers, email)
	}
	if cfg.Notify.GCS.Bucket != "" {
		gcs, err := notify.NewGCSNotifier(ctx, cfg.GCSNotifierConfig(), logger)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, gcs.Close)
		notifiers = append(notifiers, gcs)
	}
	return notifiers, closeAll, nil
}

func printResult(p *ux.Printer, r *controller.Result) {
	if r == nil {
		return
	}
	if r.Solution == nil {
		p.Warning("search stopped without a counterexample")
	} else {
		p.Success("search finished")
	}
	p.KeyValue("run", r.RunID)
	p.KeyValue("iterations", r.Iterations)
	p.KeyValue("elapsed", r.Elapsed.Round(time.Millisecond))
	p.KeyValue("best cliques", r.Stats.BestCliques)
	p.KeyValue("cliques", p.CliqueCounts(r.Stats.RedCliques, r.Stats.BlueCliques))
}
