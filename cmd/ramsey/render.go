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
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// Render formats.
const (
	formatCSV         = "csv"
	formatMathematica = "mathematica"
	formatAdjacency   = "adjacency"
	formatLoader      = "loader"
	formatSummary     = "summary"
)

func newRenderCmd(_ *app) *cobra.Command {
	var (
		format string
		color  string
	)
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Print a matrix file in another format",
		Long: `Formats:
  csv          the adjacency matrix
  mathematica  GraphPlot of the RED edges
  adjacency    neighbor list of --color
  loader       upper-triangle 0/1 string
  summary      edge counts and --color degree distribution`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.LoadFile(args[0], 0)
			if err != nil {
				return err
			}
			c, err := graph.ParseColor(color)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g, format, c)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatSummary, "csv, mathematica, adjacency, loader or summary")
	cmd.Flags().StringVar(&color, "color", "RED", "color for adjacency and summary")
	return cmd
}

func render(w io.Writer, g *graph.Graph, format string, c graph.Color) error {
	var err error
	switch format {
	case formatCSV:
		return g.WriteMatrix(w)
	case formatMathematica:
		_, err = fmt.Fprintln(w, g.Mathematica())
	case formatAdjacency:
		_, err = io.WriteString(w, g.AdjacencyList(c))
	case formatLoader:
		_, err = fmt.Fprintln(w, g.LoaderString())
	case formatSummary:
		_, err = fmt.Fprintf(w, "N=%d %s\n%s degrees %s\nhalves %s\nsymmetric %t\n",
			g.N(), g.CountSummary(), c, g.DistributionString(c), g.DistributionSummaryString(c), g.Symmetric())
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return err
}
