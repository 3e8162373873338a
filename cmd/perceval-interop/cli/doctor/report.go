// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package doctor

import (
	"fmt"
	"os"
	"strings"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
)

// tally is the count of each status class across a result set.
type tally struct {
	failed  int
	fixable int
	fixed   int
}

func tallyResults(results []Result) tally {
	var t tally
	for _, result := range results {
		switch result.Status {
		case StatusFail:
			t.failed++
			if result.FixHint != "" {
				t.fixable++
			}
		case StatusFixed:
			t.fixed++
		}
	}
	return t
}

// PrintChecklist writes the human-readable checklist to stdout and
// returns a [cli.ExitError] with code 1 when any check failed, so CI
// runs of doctor exit non-zero.
func PrintChecklist(results []Result, fixMode, dryRun bool, outcome Outcome) error {
	for _, result := range results {
		label := strings.ToUpper(string(result.Status))
		fmt.Fprintf(os.Stdout, "[%-5s]  %-40s  %s\n", label, result.Name, result.Message)

		if dryRun && result.Status == StatusFail && result.FixHint != "" {
			fmt.Fprintf(os.Stdout, "         %-40s  would fix: %s\n", "", result.FixHint)
		}
	}
	fmt.Fprintln(os.Stdout)

	counts := tallyResults(results)
	if counts.failed == 0 {
		if counts.fixed > 0 {
			fmt.Fprintf(os.Stdout, "%d issue(s) repaired.\n", counts.fixed)
		} else {
			fmt.Fprintln(os.Stdout, "All checks passed.")
		}
		return nil
	}

	switch {
	case dryRun && counts.fixable > 0:
		fmt.Fprintf(os.Stdout, "%d issue(s) would be repaired. Run without --dry-run to apply.\n", counts.fixable)
	case !fixMode && counts.fixable > 0:
		fmt.Fprintf(os.Stdout, "Run with --fix to repair %d issue(s).\n", counts.fixable)
	default:
		fmt.Fprintln(os.Stdout, "Some checks failed.")
	}
	if outcome.PermissionDenied {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, "Some fixes failed due to insufficient permissions.")
	}
	return &cli.ExitError{Code: 1}
}

// BuildJSON assembles the --json document from results and the fix
// outcome.
func BuildJSON(results []Result, dryRun bool, outcome Outcome) JSONOutput {
	return JSONOutput{
		Checks:           results,
		OK:               tallyResults(results).failed == 0,
		DryRun:           dryRun,
		PermissionDenied: outcome.PermissionDenied,
	}
}

// MarkRepaired flips to fixed every result that passes now but was
// failing before the fix pass. A fix can clear more checks than the
// one carrying it (creating the data dir also makes it writable), and
// those should report FIXED rather than silently showing PASS.
func MarkRepaired(results []Result, repairedNames map[string]bool) {
	for i := range results {
		if results[i].Status == StatusPass && repairedNames[results[i].Name] {
			results[i].Status = StatusFixed
		}
	}
}
