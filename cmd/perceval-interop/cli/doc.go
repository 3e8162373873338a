// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package cli provides the command-line framework for the perceval-interop
// unified CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in the commands package
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Command parameters are usually declared as a struct with flag/desc/
// default tags and bound via [FlagsFromParams]; structs embedding
// [JSONOutput] gain a --json flag and the [JSONOutput.EmitJSON] helper.
// Run functions receive a context (canceled on interrupt) and a logger
// from [NewCommandLogger].
package cli
