// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package commands builds the complete perceval-interop command tree.
// The binary's main imports this package; tests import it too so the
// whole tree can be walked and validated without building the binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	authcmd "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/auth"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	doctorcmd "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/doctor"
	jobcmd "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/job"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/notebooks"
	payloadcmd "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/payload"
	platformcmd "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/platform"
	"github.com/Quandela/Perceval-Interop/lib/version"
)

// Root builds and returns the complete perceval-interop command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "perceval-interop",
		Description: `Perceval interop tooling: documentation notebooks and the Quandela Cloud.

Keep the tutorial notebook tree clean and reproducible, generate and
inspect platform payloads, and submit, track, and fetch remote jobs.`,
		Subcommands: []*cli.Command{
			doctorcmd.Command(),
			notebooks.Command(),
			jobcmd.Command(),
			platformcmd.Command(),
			payloadcmd.Command(),
			authcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("perceval-interop %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Diagnose the working environment (start here when lost)",
				Command:     "perceval-interop doctor",
			},
			{
				Description: "Store a platform token",
				Command:     "perceval-interop auth login",
			},
			{
				Description: "Check the documentation notebooks are committed clean",
				Command:     "perceval-interop notebooks check",
			},
			{
				Description: "Re-execute every documentation notebook in place",
				Command:     "perceval-interop notebooks refresh",
			},
			{
				Description: "Submit a sampling job and wait for the results",
				Command:     "perceval-interop job submit --command probs --platform sim:ascella --wait",
			},
			{
				Description: "Follow a running job",
				Command:     "perceval-interop job watch last",
			},
			{
				Description: "Show what a platform supports",
				Command:     "perceval-interop platform specs qpu:ascella",
			},
		},
	}
}
