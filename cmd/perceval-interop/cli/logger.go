// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger commands run with:
// text format when stderr is a terminal, JSON when it is piped or
// redirected (CI, scripts). Commands add their own context via With:
//
//	logger = logger.With("command", "notebooks/refresh", "dir", dir)
func NewCommandLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}
