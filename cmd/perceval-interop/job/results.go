// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

type resultsParams struct {
	cloud.Connection
	Raw bool   `flag:"raw" desc:"Print the wire-form results instead of decoded JSON"`
	Out string `flag:"out" desc:"Write results to a file instead of stdout"`
}

// ResultsCommand returns the "job results" command.
func ResultsCommand() *cli.Command {
	var params resultsParams
	return &cli.Command{
		Name:    "results",
		Summary: "Fetch the results of a finished job",
		Description: `Fetch and decode the results document of a completed job.

Results come back as the platform's serialized wire form; by default
they are deserialized and printed as JSON. --raw skips the decoding and
emits the wire form unchanged, which is what a payload round-trip or a
bug report wants.`,
		Usage: "perceval-interop job results <id|name|prefix> [--raw] [--out <file>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("results", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("job results: exactly one job reference required\n\nUsage: perceval-interop job results <id|name|prefix>")
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}
			jobID, _, err := resolveJob(session.Ledger, args[0])
			if err != nil {
				return err
			}

			results, err := session.Client.JobResults(ctx, jobID)
			if err != nil {
				return err
			}

			output, err := renderResults(results, params.Raw)
			if err != nil {
				return err
			}
			if params.Out != "" {
				if err := os.WriteFile(params.Out, output, 0o644); err != nil {
					return fmt.Errorf("job results: writing %s: %w", params.Out, err)
				}
				fmt.Printf("Results of job %s written to %s.\n", jobID, params.Out)
				return nil
			}
			os.Stdout.Write(output)
			return nil
		},
	}
}

// renderResults produces the output bytes: the wire form verbatim, or
// the decoded document as indented JSON. Both end with a newline.
func renderResults(results *remote.JobResults, raw bool) ([]byte, error) {
	if raw {
		return append([]byte(results.Results), '\n'), nil
	}
	decoded, err := results.Decode()
	if err != nil {
		return nil, err
	}
	output, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("job results: encoding decoded results: %w", err)
	}
	return append(output, '\n'), nil
}
