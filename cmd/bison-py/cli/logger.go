// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// EnvDebug enables debug-level logging when set to a non-empty value.
const EnvDebug = "BISONPY_DEBUG"

// NewLogger builds the logger for CLI commands. Output is
// human-readable text when stderr is a terminal and JSON otherwise,
// so piped output stays machine-parseable.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(EnvDebug) != "" {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
