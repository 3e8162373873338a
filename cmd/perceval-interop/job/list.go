// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
)

type jobListParams struct {
	cli.JSONOutput
	Limit int `flag:"limit" desc:"Maximum entries to show (0 = all)" default:"20"`
}

// ListCommand returns the "job list" command.
func ListCommand() *cli.Command {
	var params jobListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List submitted jobs from the local ledger",
		Usage:   "perceval-interop job list [--limit <n>] [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("job list: unexpected arguments: %v", args)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			entries, err := ledger.Open(cfg.LedgerPath()).List()
			if err != nil {
				return err
			}
			if params.Limit > 0 && len(entries) > params.Limit {
				entries = entries[:params.Limit]
			}

			if done, err := params.EmitJSON(entries); done {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No jobs submitted yet.")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "ID\tNAME\tPLATFORM\tSTATUS\tSUBMITTED\n")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					shortID(entry.JobID),
					entry.Name,
					entry.Platform,
					entry.LastStatus.Name(),
					entry.CreatedAt.Local().Format(time.DateTime),
				)
			}
			writer.Flush()
			return nil
		},
	}
}

// shortID abbreviates a job id for table display. Resolution by
// prefix means the abbreviation stays usable as an argument.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
