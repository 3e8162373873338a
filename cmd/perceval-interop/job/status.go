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
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

type statusParams struct {
	cloud.Connection
	cli.JSONOutput
}

// StatusCommand returns the "job status" command.
func StatusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show the status of a job",
		Usage:   "perceval-interop job status <id|name|prefix> [--json]",
		Examples: []cli.Example{
			{
				Description: "Status by job name from the ledger",
				Command:     "perceval-interop job status sample_count",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("job status: exactly one job reference required\n\nUsage: perceval-interop job status <id|name|prefix>")
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}
			jobID, entry, err := resolveJob(session.Ledger, args[0])
			if err != nil {
				return err
			}

			status, err := session.Client.JobStatus(ctx, jobID)
			if err != nil {
				return err
			}
			if entry != nil {
				if err := session.Ledger.Update(jobID, status.Status); err != nil {
					logger.Warn("ledger status update failed", "job_id", jobID, "error", err)
				}
			}

			if done, err := params.EmitJSON(status); done {
				return err
			}
			printStatus(status, entry)
			return nil
		},
	}
}

// printStatus renders a job status block for the terminal.
func printStatus(status *remote.JobStatus, entry *ledger.Entry) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Job:\t%s\n", status.ID)
	if entry != nil {
		fmt.Fprintf(writer, "Name:\t%s\n", entry.Name)
		fmt.Fprintf(writer, "Platform:\t%s\n", entry.Platform)
		fmt.Fprintf(writer, "Submitted:\t%s\n", entry.CreatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(writer, "Status:\t%s\n", formatStatusLine(status))
	if status.StatusMessage != "" {
		fmt.Fprintf(writer, "Message:\t%s\n", status.StatusMessage)
	}
	if status.Duration > 0 {
		fmt.Fprintf(writer, "Duration:\t%ds\n", status.Duration)
	}
	writer.Flush()
}

// formatStatusLine renders "RUNNING (42%)", with the progress part
// omitted for terminal states.
func formatStatusLine(status *remote.JobStatus) string {
	line := status.Status.Name()
	if !status.Status.Terminal() && status.Progress > 0 {
		line += fmt.Sprintf(" (%.0f%%)", status.Progress*100)
	}
	if !status.Status.Terminal() && status.ProgressMessage != "" {
		line += " " + status.ProgressMessage
	}
	return line
}
