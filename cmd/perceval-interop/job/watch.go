// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

type watchParams struct {
	cloud.Connection
	Interval time.Duration `flag:"interval" desc:"Status polling period (default: configured poll interval)"`
}

// WatchCommand returns the "job watch" command.
func WatchCommand() *cli.Command {
	var params watchParams
	return &cli.Command{
		Name:    "watch",
		Summary: "Watch a job until it finishes",
		Description: `Poll a job's status until it reaches a terminal state.

On a terminal this is a live single-line view with a spinner and the
current progress. When stdout is not a terminal (CI logs, pipes) each
status change is printed as its own line instead.

Watching is observational: quitting the watch does not cancel the job.`,
		Usage: "perceval-interop job watch <id|name|prefix> [--interval <duration>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("watch", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("job watch: exactly one job reference required\n\nUsage: perceval-interop job watch <id|name|prefix>")
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}
			jobID, entry, err := resolveJob(session.Ledger, args[0])
			if err != nil {
				return err
			}
			interval := params.Interval
			if interval <= 0 {
				interval = session.Config.PollInterval()
			}

			var final *remote.JobStatus
			if term.IsTerminal(int(os.Stdout.Fd())) {
				final, err = watchTUI(ctx, session.Client, jobID, interval)
			} else {
				final, err = watchPlain(ctx, session.Client, jobID, interval, os.Stdout)
			}
			if err != nil {
				return err
			}

			if entry != nil && final != nil {
				if err := session.Ledger.Update(jobID, final.Status); err != nil {
					logger.Warn("ledger status update failed", "job_id", jobID, "error", err)
				}
			}
			if final != nil && final.Status.Terminal() {
				fmt.Printf("Job %s finished: %s.\n", jobID, final.Status.Name())
			} else {
				fmt.Printf("Job %s still running; watch stopped.\n", jobID)
			}
			return nil
		},
	}
}

// watchTUI runs the live spinner view until the job is terminal or
// the user quits. The last observed status is returned.
func watchTUI(ctx context.Context, client *remote.Client, jobID string, interval time.Duration) (*remote.JobStatus, error) {
	model := newWatchModel(ctx, client, jobID, interval)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("job watch: %w", err)
	}
	final := finalModel.(watchModel)
	return final.latest, final.err
}

// watchPlain is the non-terminal fallback: one line per status change.
func watchPlain(ctx context.Context, client *remote.Client, jobID string, interval time.Duration, out io.Writer) (*remote.JobStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastLine string
	for {
		status, err := client.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if line := formatStatusLine(status); line != lastLine {
			fmt.Fprintf(out, "job %s: %s\n", jobID, line)
			lastLine = line
		}
		if status.Status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

type watchStatusMsg struct{ status *remote.JobStatus }
type watchErrMsg struct{ err error }
type watchPollMsg struct{}

// watchModel is the bubbletea model for the live watch view.
type watchModel struct {
	spinner  spinner.Model
	jobID    string
	interval time.Duration
	fetch    func() tea.Msg
	latest   *remote.JobStatus
	err      error
	quitting bool
}

func newWatchModel(ctx context.Context, client *remote.Client, jobID string, interval time.Duration) watchModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	return watchModel{
		spinner:  spin,
		jobID:    jobID,
		interval: interval,
		fetch: func() tea.Msg {
			status, err := client.JobStatus(ctx, jobID)
			if err != nil {
				return watchErrMsg{err}
			}
			return watchStatusMsg{status}
		},
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case watchStatusMsg:
		m.latest = msg.status
		if msg.status.Status.Terminal() {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return watchPollMsg{} })

	case watchPollMsg:
		return m, m.fetch

	case watchErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil || m.quitting {
		return ""
	}
	if m.latest == nil {
		return fmt.Sprintf("%s job %s: fetching status\n", m.spinner.View(), m.jobID)
	}
	if m.latest.Status.Terminal() {
		return ""
	}
	return fmt.Sprintf("%s job %s: %s\n", m.spinner.View(), m.jobID, formatStatusLine(m.latest))
}
