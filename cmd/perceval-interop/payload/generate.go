// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

type generateParams struct {
	Command    string `flag:"command" desc:"Payload command (required, e.g. sample_count)"`
	Params     string `flag:"params" desc:"Command parameters as a JSONC document"`
	Platform   string `flag:"platform" desc:"Target platform name (default: configured platform)"`
	MaxShots   int    `flag:"max-shots" desc:"Shot budget"`
	MaxSamples int    `flag:"max-samples" desc:"Sample budget"`
	Compress   string `flag:"compress" desc:"Compression envelope: zip, zstd, lz4, or none" default:"none"`
	Out        string `flag:"out" desc:"Write the envelope to a file instead of stdout"`
}

// GenerateCommand returns the "payload generate" command.
func GenerateCommand() *cli.Command {
	var params generateParams
	return &cli.Command{
		Name:    "generate",
		Summary: "Build an envelope from flags",
		Description: `Build a payload envelope and print its wire form.

The output is exactly what "job submit --payload" accepts. With
--compress the whole document is wrapped in a compression envelope,
which keeps large parameter sets small in CI artifacts.`,
		Usage: "perceval-interop payload generate --command <cmd> [flags]",
		Examples: []cli.Example{
			{
				Description: "A sampling envelope, zstd-compressed",
				Command:     "perceval-interop payload generate --command sample_count --max-shots 10000 --compress zstd --out envelope.pcvl",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("generate", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("payload generate: unexpected arguments: %v", args)
			}
			if params.Command == "" {
				return fmt.Errorf("payload generate: --command is required")
			}

			parameters, err := parseParams(params.Params)
			if err != nil {
				return err
			}
			platformName := params.Platform
			if platformName == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				platformName = cfg.Cloud.Platform
			}

			var opts []payload.Option
			if params.MaxShots > 0 {
				opts = append(opts, payload.WithMaxShots(params.MaxShots))
			}
			if params.MaxSamples > 0 {
				opts = append(opts, payload.WithMaxSamples(params.MaxSamples))
			}
			envelope, err := payload.Generate(params.Command, nil, parameters, platformName, opts...)
			if err != nil {
				return err
			}

			document, err := encodeEnvelope(envelope, params.Compress)
			if err != nil {
				return err
			}
			if params.Out != "" {
				if err := os.WriteFile(params.Out, []byte(document), 0o644); err != nil {
					return fmt.Errorf("payload generate: writing %s: %w", params.Out, err)
				}
				return nil
			}
			fmt.Println(document)
			return nil
		},
	}
}

// encodeEnvelope produces the wire form, optionally wrapped whole in a
// compression envelope.
func encodeEnvelope(envelope *payload.Envelope, compress string) (string, error) {
	document, err := envelope.Encode()
	if err != nil {
		return "", err
	}
	if compress == "" || compress == "none" {
		return document, nil
	}
	kind, err := serial.ParseKind(compress)
	if err != nil {
		return "", fmt.Errorf("payload generate: %w", err)
	}
	return serial.Pack([]byte(document), kind)
}

// parseParams decodes a JSONC parameter document into the parameters
// map, tolerating comments and trailing commas.
func parseParams(document string) (map[string]any, error) {
	if document == "" {
		return nil, nil
	}
	var parameters map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(document)), &parameters); err != nil {
		return nil, fmt.Errorf("payload: --params is not a JSON object: %w", err)
	}
	return parameters, nil
}
