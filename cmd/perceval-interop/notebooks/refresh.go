// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/jupyter"
	"github.com/Quandela/Perceval-Interop/lib/notebook"
)

type refreshParams struct {
	Dir     string        `flag:"dir" desc:"Notebook directory (default: configured notebooks dir)"`
	Timeout time.Duration `flag:"timeout" desc:"Per-invocation execution timeout (default: configured timeout)"`
}

// refreshReport is the outcome of refreshing a single notebook.
type refreshReport struct {
	Name        string
	Before      string
	After       string
	Changed     bool
	FailedSteps []string
}

// RefreshCommand returns the "notebooks refresh" command.
func RefreshCommand() *cli.Command {
	var params refreshParams
	return &cli.Command{
		Name:    "refresh",
		Summary: "Clear, re-execute, and strip all notebooks",
		Description: `Refresh every documentation notebook in place.

Each notebook goes through three nbconvert passes: outputs are cleared,
the notebook is executed top to bottom, and volatile metadata (kernel
state, widget caches, execution counts) is stripped. All three passes
run for every notebook even when an earlier one fails, so a single
broken notebook does not leave the rest of the set half-refreshed.

The command exits with the status of the last failing nbconvert
invocation, which makes a refresh usable directly as a CI step.`,
		Usage: "perceval-interop notebooks refresh [--dir <path>] [--timeout <duration>]",
		Examples: []cli.Example{
			{
				Description: "Refresh the configured notebook directory",
				Command:     "perceval-interop notebooks refresh",
			},
			{
				Description: "Refresh a checkout with a generous execution budget",
				Command:     "perceval-interop notebooks refresh --dir docs/source/notebooks --timeout 30m",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("refresh", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("notebooks refresh: unexpected arguments: %v", args)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir := params.Dir
			if dir == "" {
				dir = cfg.Notebooks.Dir
			}
			timeout := params.Timeout
			if timeout <= 0 {
				timeout = cfg.ExecutionTimeout()
			}

			lock, err := jupyter.AcquireRefreshLock(dir)
			if errors.Is(err, jupyter.ErrRefreshRunning) {
				return fmt.Errorf("notebooks refresh: another refresh is already running for %s (remove the lock file if it is stale)", dir)
			}
			if err != nil {
				return err
			}
			defer lock.Release()

			reports, exitStatus, err := runRefresh(ctx, dir, timeout, logger)
			if err != nil {
				return err
			}
			for _, report := range reports {
				fmt.Printf("  %s\n", formatReport(report))
			}
			if exitStatus != 0 {
				return &cli.ExitError{Code: exitStatus}
			}
			return nil
		},
	}
}

// runRefresh applies the three-pass refresh to every notebook under
// dir. It returns a per-notebook report plus the exit status of the
// last failing nbconvert invocation, zero when everything passed.
// Failures in individual notebooks are reported, not fatal; the error
// return is reserved for problems with the directory itself.
func runRefresh(ctx context.Context, dir string, timeout time.Duration, logger *slog.Logger) ([]refreshReport, int, error) {
	names, err := notebook.Scan(dir)
	if err != nil {
		return nil, 0, err
	}
	if len(names) == 0 {
		return nil, 0, fmt.Errorf("notebooks refresh: no notebooks found under %s", dir)
	}

	tool := jupyter.NewTool(dir)
	steps := []struct {
		name string
		run  func(context.Context, string) error
	}{
		{"clear-outputs", tool.ClearOutputs},
		{"execute", tool.Execute},
		{"strip-metadata", tool.StripMetadata},
	}

	exitStatus := 0
	reports := make([]refreshReport, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		report := refreshReport{Name: name}
		report.Before, err = notebook.DigestFile(path)
		if err != nil {
			return nil, 0, err
		}

		for _, step := range steps {
			stepCtx, cancel := context.WithTimeout(ctx, timeout)
			stepErr := step.run(stepCtx, name)
			cancel()
			if stepErr != nil {
				logger.Error("notebook refresh step failed",
					"notebook", name,
					"step", step.name,
					"error", stepErr)
				report.FailedSteps = append(report.FailedSteps, step.name)
				exitStatus = jupyter.ExitCode(stepErr)
			}
		}

		report.After, err = notebook.DigestFile(path)
		if err != nil {
			return nil, 0, err
		}
		report.Changed = report.Before != report.After
		reports = append(reports, report)
	}
	return reports, exitStatus, nil
}

// formatReport renders one notebook's outcome for the terminal.
func formatReport(report refreshReport) string {
	if len(report.FailedSteps) > 0 {
		return fmt.Sprintf("%s: failed (%s)", report.Name, strings.Join(report.FailedSteps, ", "))
	}
	if report.Changed {
		return fmt.Sprintf("%s: changed (%s -> %s)", report.Name, shortDigest(report.Before), shortDigest(report.After))
	}
	return fmt.Sprintf("%s: unchanged (%s)", report.Name, shortDigest(report.Before))
}

func shortDigest(digest string) string {
	if len(digest) > 8 {
		return digest[:8]
	}
	return digest
}
