// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/commands"
)

// TestCommandTreeWellFormed walks the full production command tree and
// validates the properties help rendering and dispatch rely on: every
// command is named, every non-root command has a summary, every leaf
// has a Run function, and sibling names are unique.
func TestCommandTreeWellFormed(t *testing.T) {
	root := commands.Root()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if command.Name == "" {
			t.Errorf("%s: command with empty name", name)
		}
		if command != root && command.Summary == "" {
			t.Errorf("%s: missing summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor subcommands", name)
		}

		seen := make(map[string]bool)
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

// TestCommandTreeCoversGroups pins the top-level surface: renaming or
// dropping a group is a compatibility break for scripts and CI.
func TestCommandTreeCoversGroups(t *testing.T) {
	root := commands.Root()
	got := make(map[string]bool)
	for _, sub := range root.Subcommands {
		got[sub.Name] = true
	}
	for _, want := range []string{"doctor", "notebooks", "job", "platform", "payload", "auth", "version"} {
		if !got[want] {
			t.Errorf("top-level command %q missing", want)
		}
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := commands.Root().Execute(context.Background(), []string{"notebok"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "notebooks") {
		t.Errorf("error %q should suggest the close command name", err)
	}
}

func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := append(append([]string(nil), path...), command.Name)
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
