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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ramsey/pkg/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg    Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "ramsey",
		Short: "Search for Ramsey counterexamples",
		Long: `ramsey two-colors the edges of the complete graph K_N and mutates the
coloring until neither color contains a K-clique. A coloring without one
proves R(K,K) > N.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "ramsey.yaml", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "log to stderr as JSON")

	cmd.AddCommand(
		newSearchCmd(a),
		newGenerateCmd(a),
		newCheckCmd(a),
		newRenderCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}

// loadConfig reads the config file. An explicit --config must exist; the
// default path is optional.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logJSON {
		cfg.Log.JSON = true
	}
	a.cfg = cfg
	return nil
}

// startLogger opens the run logger and installs it as the slog default.
// n and k name the log file; pass zero for commands that are not a run.
// Callers defer a.close().
func (a *app) startLogger(cmd *cobra.Command, n, k int) (*slog.Logger, error) {
	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	service := "ramsey"
	if cmd.Name() != "search" {
		service = "ramsey-" + cmd.Name()
	}
	l, err := logging.New(logging.Config{
		Level:   level,
		LogDir:  a.cfg.Log.Dir,
		Service: service,
		N:       n,
		K:       k,
		JSON:    a.cfg.Log.JSON,
		Quiet:   a.cfg.Log.Quiet,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}
	a.logger = l
	slog.SetDefault(l.Slog())
	return l.Slog(), nil
}

func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	err := a.logger.Close()
	a.logger = nil
	return err
}
