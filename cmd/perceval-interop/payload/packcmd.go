// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package payload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

type packParams struct {
	Kind string `flag:"kind" desc:"Compression kind: raw, zip, zstd, lz4 (default: by size)"`
	Out  string `flag:"out" desc:"Write to a file instead of stdout"`
}

// PackCommand returns the "payload pack" command.
func PackCommand() *cli.Command {
	var params packParams
	return &cli.Command{
		Name:    "pack",
		Summary: "Wrap a document in a compression envelope",
		Description: `Wrap a serialized document in the :PCVL: compression envelope.

Without --kind the compression is chosen by size, the same rule the
serializer applies to embedded documents. "-" reads from stdin.`,
		Usage: "perceval-interop payload pack <file> [--kind <kind>] [--out <file>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("pack", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("payload pack: exactly one file required\n\nUsage: perceval-interop payload pack <file>")
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			var packed string
			if params.Kind == "" {
				packed, err = serial.PackAuto(data)
			} else {
				var kind serial.Kind
				kind, err = serial.ParseKind(params.Kind)
				if err == nil {
					packed, err = serial.Pack(data, kind)
				}
			}
			if err != nil {
				return err
			}
			return writeOutput(params.Out, packed)
		},
	}
}

type unpackParams struct {
	Out string `flag:"out" desc:"Write to a file instead of stdout"`
}

// UnpackCommand returns the "payload unpack" command.
func UnpackCommand() *cli.Command {
	var params unpackParams
	return &cli.Command{
		Name:    "unpack",
		Summary: "Strip a compression envelope",
		Description: `Strip the :PCVL: compression envelope from a document and print
the decoded content. Unpacking a document that carries no envelope is
an error. "-" reads from stdin.`,
		Usage: "perceval-interop payload unpack <file> [--out <file>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("unpack", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("payload unpack: exactly one file required\n\nUsage: perceval-interop payload unpack <file>")
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			decoded, err := serial.Unpack(strings.TrimSpace(string(data)))
			if err != nil {
				return err
			}
			return writeOutput(params.Out, string(decoded))
		},
	}
}

// writeOutput writes content to the given path, or to stdout with a
// trailing newline when path is empty.
func writeOutput(path, content string) error {
	if path == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("payload: writing %s: %w", path, err)
	}
	return nil
}
