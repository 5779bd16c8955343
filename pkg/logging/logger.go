// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for Aleutian components.
//
// Built on the standard library slog package: JSON output to stderr by
// default, with optional file logging. Install the returned logger as the
// process default with slog.SetDefault.
//
// Basic usage:
//
//	logger, closeFn, err := logging.New(logging.Config{
//	    Level:   slog.LevelInfo,
//	    Service: "vision",
//	    LogDir:  "/var/log/aleutian",
//	})
//	if err != nil { ... }
//	defer closeFn()
//	slog.SetDefault(logger)
//
// This package does NOT automatically redact sensitive data; callers must
// ensure PII, tokens and secrets are not logged.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level to emit. Default: slog.LevelInfo.
	Level slog.Leveler

	// Service names the component; it is attached to every record and used
	// in the log file name.
	Service string

	// LogDir enables file logging when non-empty. The directory is created
	// if needed; log files are named "<service>_<date>.log".
	LogDir string

	// Writer overrides the default stderr destination. Mainly for tests.
	Writer io.Writer
}

// New builds a JSON slog.Logger from the config.
//
// Outputs:
//
//	*slog.Logger - The configured logger.
//	func() error - Closes the log file, if one was opened. Never nil.
//	error - Non-nil if the log directory or file cannot be created.
func New(cfg Config) (*slog.Logger, func() error, error) {
	out := cfg.Writer
	if out == nil {
		out = os.Stderr
	}

	closeFn := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0750); err != nil {
			return nil, nil, fmt.Errorf("create log directory %s: %w", cfg.LogDir, err)
		}

		name := fmt.Sprintf("%s_%s.log", serviceOr(cfg.Service), time.Now().UTC().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}

		out = io.MultiWriter(out, f)
		closeFn = f.Close
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger, closeFn, nil
}

// Default returns a stderr JSON logger at Info level for the given service.
func Default(service string) *slog.Logger {
	logger, _, _ := New(Config{Service: service})
	return logger
}

func serviceOr(service string) string {
	if service == "" {
		return "aleutian"
	}
	return service
}
