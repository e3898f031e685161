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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/checkpoint"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		dbPath   string
		out      string
		solution bool
	)
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Inspect snapshots in the checkpoint database",
		Long: `Without RUN_ID, lists the runs recorded in the database. With RUN_ID,
lists that run's snapshots; --out writes its latest snapshot (or, with
--solution, its counterexample) as a matrix file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.cfg.Checkpoint.BadgerDir
			}
			if dbPath == "" {
				return fmt.Errorf("no database: set checkpoint.badger_dir or --db")
			}
			logger, err := a.startLogger(cmd, 0, 0)
			if err != nil {
				return err
			}
			defer a.close()

			bcfg := checkpoint.DefaultBadgerConfig(dbPath)
			bcfg.GCInterval = 0
			bcfg.Logger = logger
			store, err := checkpoint.OpenBadger(bcfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			p := ux.NewPrinter(cmd.OutOrStdout())
			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				p.Title(fmt.Sprintf("%d runs", len(runs)))
				for _, id := range runs {
					p.Info(id)
				}
				return nil
			}

			runID := args[0]
			if out != "" {
				get := store.Latest
				if solution {
					get = store.Solution
				}
				rec, err := get(ctx, runID)
				if err != nil {
					return err
				}
				snap, err := checkpoint.FromRecord(rec)
				if err != nil {
					return err
				}
				if err := snap.Graph().SaveFile(out); err != nil {
					return err
				}
				p.Success(fmt.Sprintf("wrote iteration %d of %s to %s", rec.Iteration, runID, out))
				return nil
			}

			records, err := store.History(ctx, runID)
			if err != nil {
				return err
			}
			p.Title(fmt.Sprintf("run %s: %d snapshots", runID, len(records)))
			for _, r := range records {
				p.KeyValue(fmt.Sprintf("#%d", r.Iteration),
					fmt.Sprintf("N=%d K=%d cliques=%d %s", r.N, r.K, r.Count, r.CreatedAt.Format(time.RFC3339)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database directory (default: checkpoint.badger_dir)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a snapshot of RUN_ID as a matrix file")
	cmd.Flags().BoolVar(&solution, "solution", false, "with --out, write the counterexample instead of the latest snapshot")
	return cmd
}
