// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package util

import (
	"log/slog"
	"os"
)

// Logger defaults to an info-level stdout logger so library code (the
// command gateway, the timeout supervisor) can call Debug safely even
// in an embedder or test that never calls InitLogger. InitLogger
// replaces it with one honoring QUILL_DEBUG.
var Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// InitLogger initializes the global logger with appropriate log level.
// Set QUILL_DEBUG=1 to enable debug logging.
func InitLogger() {
	level := slog.LevelInfo

	if os.Getenv("QUILL_DEBUG") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	Logger = slog.New(handler)
}

// Debug logs a debug message (only shown when QUILL_DEBUG is set).
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
