// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

type submitParams struct {
	cloud.Connection
	cli.JSONOutput
	Payload    string `flag:"payload" desc:"Pre-built envelope file (raw or packed)"`
	Command    string `flag:"command" desc:"Payload command (e.g. sample_count)"`
	Params     string `flag:"params" desc:"Command parameters as a JSONC document"`
	Name       string `flag:"name" desc:"Job name (default: the payload command)"`
	MaxShots   int    `flag:"max-shots" desc:"Shot budget"`
	MaxSamples int    `flag:"max-samples" desc:"Sample budget"`
	Wait       bool   `flag:"wait" desc:"Wait for completion and print the results"`
}

// SubmitCommand returns the "job submit" command.
func SubmitCommand() *cli.Command {
	var params submitParams
	return &cli.Command{
		Name:    "submit",
		Summary: "Submit a job to the platform",
		Description: `Submit a payload envelope as a platform job.

The envelope comes either from --payload (a pre-built envelope file,
raw JSON or compression-packed) or is generated from --command and
--params. Submitted jobs are recorded in the local ledger; --wait polls
until the job finishes and prints the decoded results.`,
		Usage: "perceval-interop job submit [--payload <file> | --command <cmd>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Submit a pre-built envelope and wait for results",
				Command:     "perceval-interop job submit --payload envelope.json --wait",
			},
			{
				Description: "Submit a generated sampling job",
				Command:     `perceval-interop job submit --command sample_count --max-shots 10000 --params '{"min_detected_photons": 2}'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("submit", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("job submit: unexpected arguments: %v", args)
			}
			session, err := params.Connect(logger)
			if err != nil {
				return err
			}

			envelope, err := buildEnvelope(&params, session)
			if err != nil {
				return err
			}
			if err := envelope.ValidateForSubmit(); err != nil {
				return err
			}

			processor := remote.NewProcessor(session.Client, envelope.PlatformName)
			job, err := processor.NewJob(envelope, params.Name)
			if err != nil {
				return err
			}
			if err := job.Submit(ctx); err != nil {
				return err
			}
			logger.Info("job submitted",
				"job_id", job.ID(), "name", job.Name(), "platform", envelope.PlatformName)

			if err := recordSubmission(session.Ledger, job, envelope); err != nil {
				// The job is live on the platform; a ledger problem
				// must not make the submission look failed.
				logger.Warn("job not recorded in ledger", "job_id", job.ID(), "error", err)
			}

			if params.Wait {
				return waitAndPrint(ctx, session, job, logger)
			}

			if done, err := params.EmitJSON(map[string]string{
				"job_id":   job.ID(),
				"name":     job.Name(),
				"platform": envelope.PlatformName,
				"command":  envelope.Command(),
			}); done {
				return err
			}
			fmt.Printf("Job %s submitted to %s as %q.\n", job.ID(), envelope.PlatformName, job.Name())
			return nil
		},
	}
}

// buildEnvelope produces the submission envelope from either a
// pre-built payload file or the generation flags.
func buildEnvelope(params *submitParams, session *cloud.Session) (*payload.Envelope, error) {
	if params.Payload != "" {
		if params.Command != "" || params.Params != "" {
			return nil, fmt.Errorf("job submit: --payload and --command/--params are mutually exclusive")
		}
		data, err := os.ReadFile(params.Payload)
		if err != nil {
			return nil, fmt.Errorf("job submit: reading payload file: %w", err)
		}
		envelope, err := payload.Decode(string(data))
		if err != nil {
			return nil, err
		}
		// An explicit --platform overrides the file; the configured
		// default only fills a file that names no platform at all.
		if params.Platform != "" {
			envelope.PlatformName = params.Platform
		} else if envelope.PlatformName == "" {
			envelope.PlatformName = session.Config.Cloud.Platform
		}
		return envelope, nil
	}

	if params.Command == "" {
		return nil, fmt.Errorf("job submit: either --payload or --command is required")
	}
	parameters, err := parseParams(params.Params)
	if err != nil {
		return nil, err
	}
	var opts []payload.Option
	if params.MaxShots > 0 {
		opts = append(opts, payload.WithMaxShots(params.MaxShots))
	}
	if params.MaxSamples > 0 {
		opts = append(opts, payload.WithMaxSamples(params.MaxSamples))
	}
	return payload.Generate(params.Command, nil, parameters,
		session.PlatformName(params.Platform), opts...)
}

// parseParams decodes the --params document. The accepted syntax is
// JSONC, so inline comments and trailing commas survive copy-paste
// from configuration examples.
func parseParams(document string) (map[string]any, error) {
	if document == "" {
		return nil, nil
	}
	var parameters map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(document)), &parameters); err != nil {
		return nil, fmt.Errorf("job submit: --params is not a JSON object: %w", err)
	}
	return parameters, nil
}

// recordSubmission appends the submitted job to the ledger.
func recordSubmission(ldg *ledger.Ledger, job *remote.Job, envelope *payload.Envelope) error {
	encoded, err := envelope.Encode()
	if err != nil {
		return err
	}
	sum := blake3.Sum256([]byte(encoded))
	return ldg.Append(ledger.Entry{
		JobID:         job.ID(),
		Name:          job.Name(),
		Platform:      envelope.PlatformName,
		Command:       envelope.Command(),
		CreatedAt:     time.Now(),
		LastStatus:    remote.StatusWaiting,
		PayloadDigest: hex.EncodeToString(sum[:]),
	})
}

// waitAndPrint polls the job to completion, records the final status,
// and prints the decoded results as JSON.
func waitAndPrint(ctx context.Context, session *cloud.Session, job *remote.Job, logger *slog.Logger) error {
	result, execErr := job.ExecuteSync(ctx)

	// Record whatever terminal state the platform reports, whether the
	// execution succeeded or not.
	if status, err := job.Status(ctx); err == nil {
		if err := session.Ledger.Update(job.ID(), status.Status); err != nil {
			logger.Warn("ledger status update failed", "job_id", job.ID(), "error", err)
		}
	}
	if execErr != nil {
		return execErr
	}
	return cli.WriteJSON(result)
}
