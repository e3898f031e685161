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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/ramsey/services/ramsey/clique"
	"github.com/AleutianAI/ramsey/services/ramsey/mutate"
	"github.com/AleutianAI/ramsey/services/ramsey/notify"
	"github.com/AleutianAI/ramsey/services/ramsey/sink"
	"github.com/AleutianAI/ramsey/services/ramsey/status"
	"github.com/AleutianAI/ramsey/services/ramsey/telemetry"
)

// Launch types.
const (
	LaunchGenerate = "GENERATE_RANDOM"
	LaunchFile     = "OPEN_FROM_FILE"
)

// smtpPasswordEnv holds the SMTP password; it is never read from the file.
const smtpPasswordEnv = "RAMSEY_SMTP_PASSWORD"

// Config is the ramsey.yaml schema.
type Config struct {
	Graph      GraphConfig      `yaml:"graph"`
	Search     SearchConfig     `yaml:"search"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Log        LogConfig        `yaml:"log"`
	Notify     NotifyConfig     `yaml:"notify"`
	Status     status.Config    `yaml:"status"`
	Influx     sink.Config      `yaml:"influx"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
}

// GraphConfig selects the problem size and the starting coloring.
type GraphConfig struct {
	N      int    `yaml:"n" validate:"min=2"`
	K      int    `yaml:"k" validate:"min=2"`
	Launch string `yaml:"launch" validate:"oneof=GENERATE_RANDOM OPEN_FROM_FILE"`
	File   string `yaml:"file"`
}

// SearchConfig tunes the search loop.
type SearchConfig struct {
	Threads       int           `yaml:"threads" validate:"min=1,max=1024"`
	Strategy      string        `yaml:"strategy" validate:"oneof=ALL FIRST"`
	MaxIterations int64         `yaml:"max_iterations" validate:"min=0"`
	Seed          uint64        `yaml:"seed"`
	LogInterval   time.Duration `yaml:"log_interval"`
}

// MutationConfig configures the mutation engine.
type MutationConfig struct {
	Primary    string `yaml:"primary" validate:"oneof=RANDOM TARGETED BALANCED COMPREHENSIVE"`
	Secondary  string `yaml:"secondary" validate:"oneof=RANDOM TARGETED BALANCED COMPREHENSIVE"`
	Count      int    `yaml:"count" validate:"min=1"`
	Interval   int    `yaml:"interval" validate:"min=0"`
	EdgeRange  int    `yaml:"edge_range" validate:"min=1"`
	Aggressive bool   `yaml:"aggressive"`
}

// CheckpointConfig places checkpoint files and the snapshot database.
type CheckpointConfig struct {
	Dir     string `yaml:"dir" validate:"required"`
	Prefix  string `yaml:"prefix" validate:"required"`
	History bool   `yaml:"history"`

	// BadgerDir enables the snapshot history database. Empty disables it.
	BadgerDir string `yaml:"badger_dir"`

	// Lock takes an exclusive lock on Dir for the duration of a search.
	Lock bool `yaml:"lock"`
}

// LogConfig configures the run logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
	Quiet bool   `yaml:"quiet"`
}

// NotifyConfig lists the solution notifiers. Console is always on.
type NotifyConfig struct {
	// FileDir writes a text report. Empty uses the checkpoint dir.
	FileDir string `yaml:"file_dir"`

	Email EmailConfig `yaml:"email"`
	GCS   GCSConfig   `yaml:"gcs"`
}

// EmailConfig enables email when Host is set.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" validate:"min=0,max=65535"`
	Username string   `yaml:"username"`
	From     string   `yaml:"from" validate:"omitempty,email"`
	To       []string `yaml:"to" validate:"dive,email"`
}

// GCSConfig enables solution upload when Bucket is set.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultConfig returns the stock search settings: R(8,8) > 288 with six
// detection threads.
func DefaultConfig() Config {
	return Config{
		Graph: GraphConfig{N: 288, K: 8, Launch: LaunchGenerate},
		Search: SearchConfig{
			Threads:     6,
			Strategy:    "ALL",
			LogInterval: 10 * time.Second,
		},
		Mutation: MutationConfig{
			Primary:   "BALANCED",
			Secondary: "COMPREHENSIVE",
			Count:     1,
			Interval:  2,
			EdgeRange: 1,
		},
		Checkpoint: CheckpointConfig{
			Dir:    "checkpoints",
			Prefix: "ramsey",
			Lock:   true,
		},
		Log:       LogConfig{Level: "info"},
		Influx:    sink.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadConfig reads path over DefaultConfig and validates the result. A
// missing file is an error only when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// normalize upper-cases the enum settings, which parse case-insensitively.
func (c *Config) normalize() {
	for _, s := range []*string{
		&c.Graph.Launch,
		&c.Search.Strategy,
		&c.Mutation.Primary,
		&c.Mutation.Secondary,
	} {
		*s = strings.ToUpper(strings.TrimSpace(*s))
	}
}

// Validate runs the struct tag rules and the cross-field checks. Enum
// settings are compared case-insensitively.
func (c Config) Validate() error {
	c.normalize()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var problems []string
	if c.Graph.K > c.Graph.N {
		problems = append(problems, fmt.Sprintf("graph.k (%d) exceeds graph.n (%d)", c.Graph.K, c.Graph.N))
	}
	if c.Graph.Launch == LaunchFile && c.Graph.File == "" {
		problems = append(problems, "graph.launch OPEN_FROM_FILE requires graph.file")
	}
	if c.Notify.Email.Host != "" && (c.Notify.Email.From == "" || len(c.Notify.Email.To) == 0) {
		problems = append(problems, "notify.email needs from and to when host is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Strategy parses Search.Strategy.
func (c Config) Strategy() clique.Strategy {
	s, _ := clique.ParseStrategy(c.Search.Strategy)
	return s
}

// MutateConfig converts Mutation to the engine configuration.
func (c Config) MutateConfig() mutate.Config {
	primary, _ := mutate.ParseType(c.Mutation.Primary)
	secondary, _ := mutate.ParseType(c.Mutation.Secondary)
	return mutate.Config{
		Primary:    primary,
		Secondary:  secondary,
		Interval:   c.Mutation.Interval,
		Repeat:     c.Mutation.Count,
		EdgeRange:  c.Mutation.EdgeRange,
		Aggressive: c.Mutation.Aggressive,
	}
}

// EmailNotifierConfig converts Notify.Email.
func (c Config) EmailNotifierConfig() notify.EmailConfig {
	e := c.Notify.Email
	return notify.EmailConfig{Host: e.Host, Port: e.Port, Username: e.Username, From: e.From, To: e.To}
}

// GCSNotifierConfig converts Notify.GCS.
func (c Config) GCSNotifierConfig() notify.GCSConfig {
	g := c.Notify.GCS
	return notify.GCSConfig{Bucket: g.Bucket, Prefix: g.Prefix, CredentialsFile: g.CredentialsFile}
}
