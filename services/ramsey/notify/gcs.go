// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures solution uploads to Google Cloud Storage.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to object names, e.g. "ramsey/solutions".
	Prefix string

	// CredentialsFile is a service account key. Empty uses Application
	// Default Credentials.
	CredentialsFile string
}

// GCSNotifier uploads the solution matrix and its report to a bucket.
type GCSNotifier struct {
	client *storage.Client
	cfg    GCSConfig
	logger *slog.Logger
}

// NewGCSNotifier creates the storage client.
func NewGCSNotifier(ctx context.Context, cfg GCSConfig, logger *slog.Logger) (*GCSNotifier, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: gcs bucket is required", ErrInvalidConfig)
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("%w: service account key %s: %w", ErrInvalidConfig, cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSNotifier{client: client, cfg: cfg, logger: logger}, nil
}

// ObjectName returns the object path for s with the given extension,
// <prefix>/<run>/ramsey_<N>_<K>.<ext>.
func ObjectName(prefix string, s Solution, ext string) string {
	return path.Join(prefix, s.RunID, fmt.Sprintf("ramsey_%d_%d.%s", s.N, s.K, ext))
}

// Notify uploads the CSV matrix (.sol) and the text report (.txt).
func (g *GCSNotifier) Notify(ctx context.Context, s Solution) error {
	bucket := g.client.Bucket(g.cfg.Bucket)

	solName := ObjectName(g.cfg.Prefix, s, "sol")
	w := bucket.Object(solName).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if err := s.Graph.WriteMatrix(w); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", solName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", solName, err)
	}

	reportName := ObjectName(g.cfg.Prefix, s, "txt")
	w = bucket.Object(reportName).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write([]byte(s.Body())); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", reportName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", reportName, err)
	}

	g.logger.Info("solution uploaded",
		slog.String("bucket", g.cfg.Bucket),
		slog.String("object", solName),
	)
	return nil
}

// Close releases the storage client.
func (g *GCSNotifier) Close() error {
	return g.client.Close()
}
