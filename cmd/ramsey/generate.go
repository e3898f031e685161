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
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		n    int
		seed uint64
		out  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a balanced random coloring as a matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("n") {
				n = a.cfg.Graph.N
			}
			g, err := graph.Generate(n, newRand(seed))
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return g.WriteMatrix(cmd.OutOrStdout())
			}
			if err := g.SaveFile(out); err != nil {
				return err
			}
			ux.NewPrinter(cmd.ErrOrStderr()).Success(fmt.Sprintf("wrote %s %s", out, g.CountSummary()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "vertices (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// newRand returns a seeded source; seed 0 is time based.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
}
