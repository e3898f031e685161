// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package logging builds the run logger for the ramsey tools.
//
// Records go to stderr (text or JSON) and, when a log directory is set, to
// an append-only JSON file per run configuration:
//
//	{service}_{N}_{K}_{YYYY-MM-DD}.log
//
// Console and file output can be combined or used alone:
//
//	LogDir == ""          stderr only
//	LogDir set            stderr and file
//	LogDir set, Quiet     file only
//
// Logger wraps *slog.Logger; components receive logger.Slog() and never
// see this package.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrUnknownLevel is returned by ParseLevel.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel maps debug, info, warn(ing) and error (any case) to a slog
// level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Config configures New. The zero value logs Info and above to stderr as
// text.
type Config struct {
	Level slog.Level

	// LogDir enables the JSON log file. A leading ~ expands to the home
	// directory.
	LogDir string

	// Service is added to every record and prefixes the file name.
	// Default "ramsey".
	Service string

	// N and K name the file of a search run. Zero omits them.
	N, K int

	// JSON switches stderr output to JSON. The file is always JSON.
	JSON bool

	// Quiet drops stderr output when a log file is configured.
	Quiet bool

	// Stderr overrides os.Stderr.
	Stderr io.Writer

	// Now overrides time.Now for the file date.
	Now func() time.Time
}

// Logger is the run logger.
//
// Thread Safety: Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	path string

	mu   sync.Mutex
	file *os.File
}

// New builds the logger and opens the log file if configured.
//
// Outputs:
//
//	*Logger - Call Close to flush and close the file.
//	error - Non-nil if the log directory or file cannot be created.
func New(cfg Config) (*Logger, error) {
	if cfg.Service == "" {
		cfg.Service = "ramsey"
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	l := &Logger{}
	var handlers []slog.Handler

	if cfg.LogDir != "" {
		dir := expandPath(cfg.LogDir)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		l.path = filepath.Join(dir, FileName(cfg.Service, cfg.N, cfg.K, cfg.Now()))
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
	}

	if !cfg.Quiet || l.file == nil {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(cfg.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(cfg.Stderr, opts))
		}
	}

	var handler slog.Handler = &multiHandler{handlers: handlers}
	if len(handlers) == 1 {
		handler = handlers[0]
	}
	handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	l.slog = slog.New(handler)
	return l, nil
}

// FileName returns the log file name for a service and run shape.
func FileName(service string, n, k int, day time.Time) string {
	var b strings.Builder
	b.WriteString(service)
	if n > 0 && k > 0 {
		fmt.Fprintf(&b, "_%d_%d", n, k)
	}
	b.WriteByte('_')
	b.WriteString(day.Format("2006-01-02"))
	b.WriteString(".log")
	return b.String()
}

// Slog returns the underlying logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Path returns the log file path, or "" when file logging is off.
func (l *Logger) Path() string {
	return l.path
}

// Close syncs and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := errors.Join(l.file.Sync(), l.file.Close())
	l.file = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// multiHandler fans records out to every enabled handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every handler even if one fails.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
