// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package sink writes per-iteration search statistics to InfluxDB.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/ramsey/services/ramsey/controller"
)

// DefaultMeasurement is the measurement iteration points are written to.
const DefaultMeasurement = "ramsey_iterations"

var (
	// ErrInvalidConfig is returned for a config missing URL, org or bucket.
	ErrInvalidConfig = errors.New("invalid influxdb sink configuration")

	// ErrUnhealthy is returned by Ping when the server does not report pass.
	ErrUnhealthy = errors.New("influxdb unhealthy")
)

// Config locates the InfluxDB bucket.
type Config struct {
	URL         string `yaml:"url" validate:"omitempty,url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// DefaultConfig reads INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and
// INFLUXDB_BUCKET. URL stays empty when unset, which disables the sink.
func DefaultConfig() Config {
	return Config{
		URL:         os.Getenv("INFLUXDB_URL"),
		Token:       os.Getenv("INFLUXDB_TOKEN"),
		Org:         getEnvOr("INFLUXDB_ORG", "ramsey"),
		Bucket:      getEnvOr("INFLUXDB_BUCKET", "search"),
		Measurement: DefaultMeasurement,
	}
}

// Enabled reports whether cfg names a server.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// InfluxSink is a controller.IterationSink backed by the blocking write API.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
	logger      *slog.Logger
}

// NewInfluxSink creates the client. No connection is made until the first
// write or Ping.
func NewInfluxSink(cfg Config, logger *slog.Logger) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: url=%q org=%q bucket=%q", ErrInvalidConfig, cfg.URL, cfg.Org, cfg.Bucket)
	}
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultMeasurement
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
		logger:      logger.With(slog.String("component", "influx_sink")),
	}, nil
}

// Ping checks the server health endpoint.
func (s *InfluxSink) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("%w: status=%s %s", ErrUnhealthy, health.Status, msg)
	}
	return nil
}

// WriteIteration writes one point for it.
func (s *InfluxSink) WriteIteration(ctx context.Context, it controller.Iteration) error {
	if err := s.writeAPI.WritePoint(ctx, Point(s.measurement, it)); err != nil {
		return fmt.Errorf("write iteration %d: %w", it.Number, err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
	s.logger.Debug("influx sink closed")
}

// Point converts it to a line-protocol point tagged by run, graph size and
// decision.
func Point(measurement string, it controller.Iteration) *write.Point {
	return influxdb2.NewPointWithMeasurement(measurement).
		AddTag("run_id", it.RunID).
		AddTag("n", strconv.Itoa(it.N)).
		AddTag("k", strconv.Itoa(it.K)).
		AddTag("decision", it.Decision.String()).
		AddField("iteration", it.Number).
		AddField("red", it.Red).
		AddField("blue", it.Blue).
		AddField("total", it.Red+it.Blue).
		AddField("best", it.Best).
		AddField("detect_seconds", it.DetectFor.Seconds()).
		SetTime(it.Time)
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var _ controller.IterationSink = (*InfluxSink)(nil)
