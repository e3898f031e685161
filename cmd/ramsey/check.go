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
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// analysis is the clique count of one matrix file.
type analysis struct {
	Path     string
	N        int
	K        int
	Red      int
	Blue     int
	Summary  string
	Duration time.Duration
}

func (a analysis) Total() int {
	return a.Red + a.Blue
}

// analyse loads path and counts K-cliques of both colors. n <= 0 infers
// the vertex count from the file.
func analyse(path string, n, k int, strategy clique.Strategy) (analysis, error) {
	start := time.Now()
	g, err := graph.LoadFile(path, n)
	if err != nil {
		return analysis{}, err
	}
	res := analysis{Path: path, N: g.N(), K: k, Summary: g.CountSummary()}
	for _, c := range graph.Colors {
		found, err := clique.FindSerial(g, c, k, strategy)
		if err != nil {
			return analysis{}, fmt.Errorf("%s: %w", path, err)
		}
		if c == graph.Red {
			res.Red = len(found)
		} else {
			res.Blue = len(found)
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

func printAnalysis(p *ux.Printer, a analysis) {
	line := fmt.Sprintf("%s  N=%d K=%d  %s  %s  (%s)",
		filepath.Base(a.Path), a.N, a.K, a.Summary, p.CliqueCounts(a.Red, a.Blue), a.Duration.Round(time.Millisecond))
	if a.Total() == 0 {
		p.Success(line)
	} else {
		p.Warning(line)
	}
}

type checkFlags struct {
	n, k     int
	jobs     int
	strategy string
}

func newCheckCmd(a *app) *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Count monochromatic K-cliques in matrix files",
		Long: `Loads every file as an adjacency matrix and counts the K-cliques of each
color. Exits with status 2 if any file contains one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := a.cfg.Graph.K
			if cmd.Flags().Changed("k") {
				k = f.k
			}
			strategy, err := clique.ParseStrategy(f.strategy)
			if err != nil {
				return err
			}
			logger, err := a.startLogger(cmd, 0, 0)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := checkFiles(cmd.Context(), args, f.n, k, strategy, f.jobs, logger)
			if err != nil {
				return err
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			failed := 0
			for _, r := range results {
				printAnalysis(p, r)
				if r.Total() > 0 {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w in %d of %d files", errCliquesFound, failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&f.n, "n", "n", 0, "expected vertex count (0 = infer from file)")
	cmd.Flags().IntVarP(&f.k, "k", "k", 0, "clique size (default from config)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 4, "files analysed concurrently")
	cmd.Flags().StringVar(&f.strategy, "strategy", "ALL", "ALL counts every clique, FIRST stops at one per color")
	return cmd
}

// checkFiles analyses paths concurrently, at most jobs at a time. Results
// keep the order of paths.
func checkFiles(ctx context.Context, paths []string, n, k int, strategy clique.Strategy, jobs int, logger *slog.Logger) ([]analysis, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]analysis, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := analyse(path, n, k, strategy)
			if err != nil {
				return err
			}
			logger.Debug("file analysed",
				slog.String("file", path),
				slog.Int("red", r.Red),
				slog.Int("blue", r.Blue),
				slog.Duration("duration", r.Duration),
			)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
