// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package platform implements the "platform" subcommand group.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/fuzzy"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

// Command returns the "platform" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "platform",
		Summary: "Inspect Quandela Cloud platforms",
		Subcommands: []*cli.Command{
			SpecsCommand(),
		},
	}
}

type specsParams struct {
	cloud.Connection
	cli.JSONOutput
}

// specsDocument is the JSON shape of "platform specs --json". Perfs
// is present only for physical platforms, matching what the metadata
// bridge exposes.
type specsDocument struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	WaitingJobs int            `json:"waiting_jobs"`
	Description string         `json:"description,omitempty"`
	Specs       map[string]any `json:"specs"`
	Perfs       map[string]any `json:"perfs,omitempty"`
}

// SpecsCommand returns the "platform specs" command.
func SpecsCommand() *cli.Command {
	var params specsParams
	return &cli.Command{
		Name:    "specs",
		Summary: "Show a platform's capabilities",
		Description: `Fetch and display a platform's details: its hardware
specification document and, for physical QPUs, the live performance
metrics. Simulators have no performance section.`,
		Usage: "perceval-interop platform specs [<name>] [--json]",
		Examples: []cli.Example{
			{
				Description: "Specs of the configured default platform",
				Command:     "perceval-interop platform specs",
			},
			{
				Description: "Specs of a physical QPU",
				Command:     "perceval-interop platform specs qpu:ascella",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("specs", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("platform specs: at most one platform name\n\nUsage: perceval-interop platform specs [<name>]")
			}
			session, err := params.ConnectPublic(logger)
			if err != nil {
				return err
			}
			name := session.PlatformName(params.Platform)
			if len(args) == 1 {
				name = args[0]
			}

			details, err := session.Client.PlatformDetails(ctx, name)
			if err != nil {
				if remote.IsNotFound(err) {
					return unknownPlatformError(name, session.Config.Cloud.KnownPlatforms)
				}
				return err
			}

			document := specsDocument{
				Name:        details.Name,
				Type:        details.Type,
				Status:      details.Status,
				WaitingJobs: details.WaitingJobs,
				Description: details.Description,
				Specs:       details.Specs,
			}
			if details.ProcessorType() == remote.ProcessorPhysical {
				document.Perfs = details.Perfs
			}

			if done, err := params.EmitJSON(document); done {
				return err
			}
			printSpecs(&document)
			return nil
		},
	}
}

// unknownPlatformError builds the not-found error, with close names
// from the known-platform list when any match.
func unknownPlatformError(name string, known []string) error {
	suggestions := fuzzy.Rank(known, name)
	if len(suggestions) == 0 {
		return fmt.Errorf("platform specs: platform %q not found", name)
	}
	names := make([]string, 0, 3)
	for _, match := range suggestions {
		names = append(names, match.Text)
		if len(names) == 3 {
			break
		}
	}
	return fmt.Errorf("platform specs: platform %q not found; did you mean: %s?",
		name, strings.Join(names, ", "))
}

// printSpecs renders the details for the terminal.
func printSpecs(document *specsDocument) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Platform:\t%s\n", document.Name)
	fmt.Fprintf(writer, "Type:\t%s\n", document.Type)
	if document.Status != "" {
		fmt.Fprintf(writer, "Status:\t%s\n", document.Status)
	}
	fmt.Fprintf(writer, "Waiting jobs:\t%d\n", document.WaitingJobs)
	if document.Description != "" {
		fmt.Fprintf(writer, "Description:\t%s\n", document.Description)
	}
	writer.Flush()

	printSection("Specs", document.Specs)
	if document.Perfs != nil {
		printSection("Performance", document.Perfs)
	}
}

// printSection renders one key/value document section with sorted keys.
func printSection(title string, values map[string]any) {
	if len(values) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		fmt.Fprintf(writer, "  %s:\t%s\n", key, formatSpecValue(values[key]))
	}
	writer.Flush()
}

// formatSpecValue renders a spec value on one line. Scalars print
// directly; structured values fall back to compact JSON.
func formatSpecValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
