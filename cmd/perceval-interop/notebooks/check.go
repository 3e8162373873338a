// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebooks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/notebook"
)

type checkParams struct {
	cli.JSONOutput
	Dir string `flag:"dir" desc:"Notebook directory (default: configured notebooks dir)"`
}

// checkFinding lists what is wrong with one notebook.
type checkFinding struct {
	Name     string   `json:"name"`
	Problems []string `json:"problems"`
}

// CheckCommand returns the "notebooks check" command.
func CheckCommand() *cli.Command {
	var params checkParams
	return &cli.Command{
		Name:    "check",
		Summary: "Verify notebooks were committed clean",
		Description: `Verify that every documentation notebook is in refreshed form.

A clean notebook has no stored outputs, no execution counts, and no
volatile metadata keys. This is the CI gate: it exits non-zero and
names each offending notebook when someone commits one without running
'perceval-interop notebooks refresh' first.`,
		Usage: "perceval-interop notebooks check [--dir <path>] [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("check", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("notebooks check: unexpected arguments: %v", args)
			}
			dir, err := resolveDir(params.Dir)
			if err != nil {
				return err
			}
			findings, total, err := checkNotebooks(dir)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(findings); done {
				if err != nil {
					return err
				}
				if len(findings) > 0 {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}

			if len(findings) == 0 {
				fmt.Printf("%d notebooks clean.\n", total)
				return nil
			}
			for _, finding := range findings {
				fmt.Printf("%s:\n", finding.Name)
				for _, problem := range finding.Problems {
					fmt.Printf("  - %s\n", problem)
				}
			}
			fmt.Printf("\n%d of %d notebooks need 'perceval-interop notebooks refresh'.\n",
				len(findings), total)
			return &cli.ExitError{Code: 1}
		},
	}
}

// checkNotebooks inspects every notebook under dir and reports the
// ones that are not in refreshed form. The total count of scanned
// notebooks is returned alongside the findings.
func checkNotebooks(dir string) ([]checkFinding, int, error) {
	names, err := notebook.Scan(dir)
	if err != nil {
		return nil, 0, err
	}
	var findings []checkFinding
	for _, name := range names {
		doc, err := notebook.Load(filepath.Join(dir, name))
		if err != nil {
			findings = append(findings, checkFinding{
				Name:     name,
				Problems: []string{fmt.Sprintf("not parseable: %v", err)},
			})
			continue
		}
		var problems []string
		if doc.HasOutputs() {
			problems = append(problems, "stored outputs")
		}
		if doc.HasExecutionCounts() {
			problems = append(problems, "execution counts")
		}
		if stray := doc.StrayMetadata(); len(stray) > 0 {
			problems = append(problems, "stray metadata keys: "+strings.Join(stray, ", "))
		}
		if len(problems) > 0 {
			findings = append(findings, checkFinding{Name: name, Problems: problems})
		}
	}
	return findings, len(names), nil
}
