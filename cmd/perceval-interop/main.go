// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like doctor) return a
		// cli.ExitError with the desired exit code. Don't print a
		// redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return commands.Root().Execute(ctx, os.Args[1:])
}
