// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

type cancelParams struct {
	cloud.Connection
}

// CancelCommand returns the "job cancel" command.
func CancelCommand() *cli.Command {
	var params cancelParams
	return &cli.Command{
		Name:    "cancel",
		Summary: "Request cancellation of a running job",
		Usage:   "perceval-interop job cancel <id|name|prefix>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("cancel", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("job cancel: exactly one job reference required\n\nUsage: perceval-interop job cancel <id|name|prefix>")
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}
			jobID, entry, err := resolveJob(session.Ledger, args[0])
			if err != nil {
				return err
			}

			if err := session.Client.CancelJob(ctx, jobID); err != nil {
				return err
			}
			if entry != nil {
				if err := session.Ledger.Update(jobID, remote.StatusCancelRequested); err != nil {
					logger.Warn("ledger status update failed", "job_id", jobID, "error", err)
				}
			}
			fmt.Printf("Cancellation of job %s requested.\n", jobID)
			return nil
		},
	}
}

type rerunParams struct {
	cloud.Connection
	cli.JSONOutput
	Wait bool `flag:"wait" desc:"Wait for the new job and print the results"`
}

// RerunCommand returns the "job rerun" command.
func RerunCommand() *cli.Command {
	var params rerunParams
	return &cli.Command{
		Name:    "rerun",
		Summary: "Run a fresh copy of a finished job",
		Description: `Ask the platform to run a fresh copy of an existing job.

The new job keeps the original's payload on the platform side; locally
it is recorded as a new ledger entry carrying the original's name and
platform so both submissions stay addressable.`,
		Usage: "perceval-interop job rerun <id|name|prefix> [--wait]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("rerun", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("job rerun: exactly one job reference required\n\nUsage: perceval-interop job rerun <id|name|prefix>")
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}
			jobID, entry, err := resolveJob(session.Ledger, args[0])
			if err != nil {
				return err
			}

			newJob, err := remote.AttachJob(session.Client, jobID).Rerun(ctx)
			if err != nil {
				return err
			}
			logger.Info("job rerun", "job_id", jobID, "new_job_id", newJob.ID())

			newEntry := ledger.Entry{
				JobID:      newJob.ID(),
				CreatedAt:  time.Now(),
				LastStatus: remote.StatusWaiting,
			}
			if entry != nil {
				newEntry.Name = entry.Name
				newEntry.Platform = entry.Platform
				newEntry.Command = entry.Command
				newEntry.PayloadDigest = entry.PayloadDigest
			}
			if err := session.Ledger.Append(newEntry); err != nil {
				logger.Warn("job not recorded in ledger", "job_id", newJob.ID(), "error", err)
			}

			if params.Wait {
				return waitAndPrint(ctx, session, newJob, logger)
			}
			if done, err := params.EmitJSON(map[string]string{
				"job_id":          newJob.ID(),
				"original_job_id": jobID,
			}); done {
				return err
			}
			fmt.Printf("Job %s rerunning as %s.\n", jobID, newJob.ID())
			return nil
		},
	}
}
