// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/payload"
)

type inspectParams struct {
	cli.JSONOutput
}

// inspectDocument is the JSON shape of "payload inspect --json".
type inspectDocument struct {
	Platform       string         `json:"platform"`
	PcvlVersion    string         `json:"pcvl_version"`
	Command        string         `json:"command"`
	JobName        string         `json:"job_name"`
	MaxShots       int            `json:"max_shots,omitempty"`
	MaxSamples     int            `json:"max_samples,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	ExperimentSize int            `json:"experiment_size"`
}

// InspectCommand returns the "payload inspect" command.
func InspectCommand() *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "Summarize an envelope file",
		Description: `Parse an envelope file, decompressing any packing layer, validate
its shape, and print a summary. "-" reads from stdin.`,
		Usage: "perceval-interop payload inspect <file> [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("payload inspect: exactly one file required\n\nUsage: perceval-interop payload inspect <file>")
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			envelope, err := payload.Decode(string(data))
			if err != nil {
				return err
			}
			if err := envelope.Validate(); err != nil {
				return err
			}

			parameters, _ := envelope.Payload["parameters"].(map[string]any)
			document := inspectDocument{
				Platform:       envelope.PlatformName,
				PcvlVersion:    envelope.PcvlVersion,
				Command:        envelope.Command(),
				JobName:        envelope.JobName(),
				MaxShots:       envelope.MaxShots(),
				MaxSamples:     envelope.MaxSamples(),
				Parameters:     parameters,
				ExperimentSize: len(envelope.ExperimentBody()),
			}

			if done, err := params.EmitJSON(document); done {
				return err
			}
			printInspect(&document)
			return nil
		},
	}
}

// printInspect renders the envelope summary for the terminal.
func printInspect(document *inspectDocument) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Platform:\t%s\n", valueOrDash(document.Platform))
	fmt.Fprintf(writer, "Pcvl version:\t%s\n", valueOrDash(document.PcvlVersion))
	fmt.Fprintf(writer, "Command:\t%s\n", document.Command)
	fmt.Fprintf(writer, "Job name:\t%s\n", document.JobName)
	if document.MaxShots > 0 {
		fmt.Fprintf(writer, "Max shots:\t%d\n", document.MaxShots)
	}
	if document.MaxSamples > 0 {
		fmt.Fprintf(writer, "Max samples:\t%d\n", document.MaxSamples)
	}
	if len(document.Parameters) > 0 {
		encoded, err := json.Marshal(document.Parameters)
		if err == nil {
			fmt.Fprintf(writer, "Parameters:\t%s\n", encoded)
		}
	}
	fmt.Fprintf(writer, "Experiment:\t%d bytes\n", document.ExperimentSize)
	writer.Flush()
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("payload: reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("payload: reading %s: %w", path, err)
	}
	return data, nil
}
