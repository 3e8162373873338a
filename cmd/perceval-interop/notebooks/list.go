// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/notebook"
)

type listParams struct {
	cli.JSONOutput
	Dir string `flag:"dir" desc:"Notebook directory (default: configured notebooks dir)"`
}

// listEntry summarizes one notebook for the list view.
type listEntry struct {
	Name            string `json:"name"`
	Cells           int    `json:"cells"`
	CodeCells       int    `json:"code_cells"`
	HasOutputs      bool   `json:"has_outputs"`
	ExecutionCounts bool   `json:"has_execution_counts"`
	Clean           bool   `json:"clean"`
}

// ListCommand returns the "notebooks list" command.
func ListCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List documentation notebooks",
		Usage:   "perceval-interop notebooks list [--dir <path>] [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("notebooks list: unexpected arguments: %v", args)
			}
			dir, err := resolveDir(params.Dir)
			if err != nil {
				return err
			}
			entries, err := collectEntries(dir)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(entries); done {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No notebooks found.")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "NAME\tCELLS\tCODE\tSTATE\n")
			for _, entry := range entries {
				state := "clean"
				if !entry.Clean {
					state = "needs refresh"
				}
				fmt.Fprintf(writer, "%s\t%d\t%d\t%s\n",
					entry.Name, entry.Cells, entry.CodeCells, state)
			}
			writer.Flush()
			return nil
		},
	}
}

// resolveDir applies the configured notebook directory when no
// explicit --dir was given.
func resolveDir(flagDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Notebooks.Dir, nil
}

// collectEntries loads every notebook under dir and summarizes it.
func collectEntries(dir string) ([]listEntry, error) {
	names, err := notebook.Scan(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]listEntry, 0, len(names))
	for _, name := range names {
		doc, err := notebook.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		entry := listEntry{
			Name:            name,
			Cells:           len(doc.Cells),
			CodeCells:       doc.CodeCellCount(),
			HasOutputs:      doc.HasOutputs(),
			ExecutionCounts: doc.HasExecutionCounts(),
		}
		entry.Clean = !entry.HasOutputs && !entry.ExecutionCounts && len(doc.StrayMetadata()) == 0
		entries = append(entries, entry)
	}
	return entries, nil
}
