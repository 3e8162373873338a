// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the CLI tree: either a group dispatching to
// Subcommands or a leaf with a Run function (a group may also carry a
// Run as its fallback action).
type Command struct {
	// Name is what the user types to select this command.
	Name string

	// Summary is the one-liner shown in the parent's command listing.
	Summary string

	// Description is the long help text. Falls back to Summary.
	Description string

	// Usage overrides the synthesized usage line when set.
	Usage string

	// Examples are printed at the end of the help output.
	Examples []Example

	// Flags builds this command's flag set. Called lazily; nil means
	// the command takes no flags.
	Flags func() *pflag.FlagSet

	// Subcommands are dispatched by the first positional argument.
	Subcommands []*Command

	// Run executes the command with the positional arguments left
	// after flag parsing.
	Run func(ctx context.Context, args []string, logger *slog.Logger) error

	// parent links back up the tree so errors and help can print the
	// full command path. Set during dispatch.
	parent *Command
}

// Example is one worked command line in the help output.
type Example struct {
	// Description explains what the example does.
	Description string
	// Command is the literal command line.
	Command string
}

// Execute dispatches args through the command tree and runs the
// selected command. The context flows through to Run; the logger is
// created once here and shared down the tree.
func (c *Command) Execute(ctx context.Context, args []string) error {
	return c.execute(ctx, args, NewCommandLogger())
}

func (c *Command) execute(ctx context.Context, args []string, logger *slog.Logger) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(os.Stderr)
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub := c.findSubcommand(args[0])
		if sub == nil {
			return c.unknownCommandError(args[0])
		}
		sub.parent = c
		return sub.execute(ctx, args[1:], logger)
	}

	// A pure group reached without a subcommand can only show help.
	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(os.Stderr)
		if len(args) == 0 {
			return fmt.Errorf("subcommand required")
		}
		return fmt.Errorf("subcommand required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		rest, err := c.parseFlags(args)
		if err != nil {
			return err
		}
		args = rest
	}

	if c.Run != nil {
		return c.Run(ctx, args, logger)
	}

	c.PrintHelp(os.Stderr)
	return fmt.Errorf("no action defined for %q", c.fullName())
}

func (c *Command) findSubcommand(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

func (c *Command) unknownCommandError(name string) error {
	if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
		return fmt.Errorf("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
			name, suggestion, c.fullName())
	}
	return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage.",
		name, c.fullName())
}

// parseFlags runs the command's flag set over args and returns the
// positional remainder. Parse errors come back formatted with a
// typo suggestion when one is close and a pointer to --help; pflag's
// own output is suppressed in favor of these.
func (c *Command) parseFlags(args []string) ([]string, error) {
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)

	err := flagSet.Parse(args)
	if err == nil {
		return flagSet.Args(), nil
	}

	message := err.Error()
	if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
		// Suggest against a fresh flag set: the failed parse may have
		// half-consumed the first one.
		if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
			return nil, fmt.Errorf("%s (did you mean %s?)\n\nRun '%s --help' for usage.",
				message, suggestion, c.fullName())
		}
	}
	return nil, fmt.Errorf("%s\n\nRun '%s --help' for usage.", message, c.fullName())
}

// PrintHelp writes the command's full help text to w.
func (c *Command) PrintHelp(w io.Writer) {
	c.helpIntro(w)
	c.helpUsage(w)
	c.helpSubcommands(w)
	c.helpFlags(w)
	c.helpExamples(w)
	c.helpFooter(w)
}

func (c *Command) helpIntro(w io.Writer) {
	switch {
	case c.Description != "":
		fmt.Fprintf(w, "%s\n\n", c.Description)
	case c.Summary != "":
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}
}

func (c *Command) helpUsage(w io.Writer) {
	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}
}

func (c *Command) helpSubcommands(w io.Writer) {
	if len(c.Subcommands) == 0 {
		return
	}
	fmt.Fprintf(w, "\nCommands:\n")
	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, sub := range c.Subcommands {
		fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
	}
	table.Flush()
}

func (c *Command) helpFlags(w io.Writer) {
	if c.Flags == nil {
		return
	}
	flagSet := c.Flags()
	var defaults strings.Builder
	flagSet.SetOutput(&defaults)
	flagSet.PrintDefaults()
	if defaults.Len() > 0 {
		fmt.Fprintf(w, "\nFlags:\n%s", defaults.String())
	}
}

func (c *Command) helpExamples(w io.Writer) {
	if len(c.Examples) == 0 {
		return
	}
	fmt.Fprintf(w, "\nExamples:\n")
	for _, example := range c.Examples {
		if example.Description != "" {
			fmt.Fprintf(w, "  # %s\n", example.Description)
		}
		fmt.Fprintf(w, "  %s\n", example.Command)
		if example.Description != "" {
			fmt.Fprintln(w)
		}
	}
}

func (c *Command) helpFooter(w io.Writer) {
	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", c.fullName())
	}
}

// fullName is the space-joined path from the root command down to this
// one.
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
