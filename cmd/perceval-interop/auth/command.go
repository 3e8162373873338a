// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package auth implements the "auth" subcommands managing the
// platform token: sealed storage at login, masked display, removal.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/token"
)

// Command returns the "auth" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "auth",
		Summary: "Manage the platform access token",
		Description: `Manage the Quandela Cloud access token.

Login seals the token to a locally-generated age identity; the token
never touches disk in clear text. CI environments that cannot keep an
identity file can point the configuration's cloud.token_file at a
plaintext token instead, or set ` + token.EnvToken + `.`,
		Subcommands: []*cli.Command{
			LoginCommand(),
			ShowCommand(),
			LogoutCommand(),
		},
	}
}

type loginParams struct {
	Token     string `flag:"token" desc:"Token value (prefer --token-file or the prompt, which keep it out of shell history)"`
	TokenFile string `flag:"token-file" desc:"Read the token from a file, '-' to force the prompt"`
}

// LoginCommand returns the "auth login" command.
func LoginCommand() *cli.Command {
	var params loginParams
	return &cli.Command{
		Name:    "login",
		Summary: "Store the platform token",
		Description: `Store the platform access token in the sealed local store.

The token is encrypted to a fresh age identity; both files are written
under the config directory with owner-only permissions. Get a token
from https://cloud.quandela.com in the account settings.`,
		Usage: "perceval-interop auth login [--token <value> | --token-file <path>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("login", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("auth login: unexpected arguments: %v", args)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.EnsurePaths(); err != nil {
				return err
			}

			value, err := readToken(&params)
			if err != nil {
				return err
			}
			store := cloud.TokenStore(cfg)
			if err := store.Save(value); err != nil {
				return err
			}
			logger.Info("token sealed", "path", store.SealedPath)
			fmt.Printf("Token %s sealed to %s.\n", token.Mask(value), store.SealedPath)
			return nil
		},
	}
}

// readToken obtains the token value: the flag, a file, or an
// interactive no-echo prompt.
func readToken(params *loginParams) (string, error) {
	if params.Token != "" {
		return params.Token, nil
	}
	if params.TokenFile != "" && params.TokenFile != "-" {
		data, err := os.ReadFile(params.TokenFile)
		if err != nil {
			return "", fmt.Errorf("auth login: reading %s: %w", params.TokenFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return "", fmt.Errorf("auth login: no terminal for the token prompt (use --token-file)")
	}
	fmt.Fprint(os.Stderr, "Platform token: ")
	tokenBytes, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("auth login: reading token: %w", err)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

type showParams struct {
	cli.JSONOutput
	Reveal bool `flag:"reveal" desc:"Print the full token instead of the masked form"`
}

// ShowCommand returns the "auth show" command.
func ShowCommand() *cli.Command {
	var params showParams
	return &cli.Command{
		Name:    "show",
		Summary: "Show the stored token (masked)",
		Usage:   "perceval-interop auth show [--reveal] [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("auth show: unexpected arguments: %v", args)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			value, source, err := cloud.TokenStore(cfg).Resolve()
			if err != nil {
				return err
			}

			display := token.Mask(value)
			if params.Reveal {
				display = value
			}
			if done, err := params.EmitJSON(map[string]string{
				"token":  display,
				"source": source,
			}); done {
				return err
			}
			fmt.Printf("Token:  %s\n", display)
			fmt.Printf("Source: %s\n", source)
			return nil
		},
	}
}

// LogoutCommand returns the "auth logout" command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:    "logout",
		Summary: "Remove the sealed token",
		Description: `Remove the sealed token and its age identity. Plaintext token
files named by the configuration are left alone; they belong to the
environment that provisioned them.`,
		Usage: "perceval-interop auth logout",
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("auth logout: unexpected arguments: %v", args)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store := cloud.TokenStore(cfg)
			hadToken := store.HasSealed()
			if err := store.Clear(); err != nil {
				return err
			}
			if hadToken {
				fmt.Println("Sealed token removed.")
			} else {
				fmt.Println("No sealed token stored.")
			}
			return nil
		},
	}
}
