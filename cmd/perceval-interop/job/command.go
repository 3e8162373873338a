// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package job implements the "job" subcommand group: submitting
// payload envelopes to the Quandela Cloud, tracking them in the local
// ledger, and fetching status and results.
package job

import "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"

// Command returns the "job" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "job",
		Summary: "Submit and track platform jobs",
		Description: `Submit payload envelopes to the Quandela Cloud and track the
resulting jobs.

Submitted jobs are recorded in a local ledger, so later commands accept
a job name or an unambiguous id prefix instead of the full platform id.
The reference "last" means the most recent submission.`,
		Subcommands: []*cli.Command{
			SubmitCommand(),
			StatusCommand(),
			ResultsCommand(),
			CancelCommand(),
			RerunCommand(),
			ListCommand(),
			WatchCommand(),
		},
	}
}
