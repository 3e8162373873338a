// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package payload implements the "payload" CLI subcommands for
// building and inspecting platform envelopes offline.
package payload

import "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"

// Command returns the "payload" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "payload",
		Summary: "Build and inspect payload envelopes",
		Description: `Work with payload envelopes without touching the platform.

Envelopes built here are what "job submit --payload" consumes; pack and
unpack apply and strip the compression envelope used for serialized
documents in CI artifacts.`,
		Subcommands: []*cli.Command{
			GenerateCommand(),
			InspectCommand(),
			PackCommand(),
			UnpackCommand(),
		},
	}
}
