// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebooks

import "github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"

// Command returns the "notebooks" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "notebooks",
		Summary: "Documentation notebook maintenance",
		Description: `Maintain the documentation notebooks.

The refresh workflow keeps committed notebooks clean and their stored
results reproducible: outputs are cleared, every notebook is re-executed
top to bottom, and machine-specific metadata is stripped before the
result is committed. The check command is the CI gate that rejects
notebooks committed without a refresh.`,
		Subcommands: []*cli.Command{
			RefreshCommand(),
			ListCommand(),
			CheckCommand(),
			ShowCommand(),
		},
	}
}
