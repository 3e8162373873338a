// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package jupyter provides typed access to the jupyter CLI for the
// documentation notebook tooling. The refresh workflow is three
// nbconvert invocations per notebook, strictly in order: clear the
// stored outputs, execute the notebook in place, then strip the
// notebook-level metadata so the committed file is reproducible. All
// commands run in a specific working directory — callers always say
// which notebook tree they mean.
package jupyter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Tool runs jupyter commands in a specific directory.
type Tool struct {
	dir string
}

// NewTool returns a Tool running jupyter commands with the given
// working directory.
func NewTool(dir string) *Tool {
	return &Tool{dir: dir}
}

// Dir returns the tool's working directory.
func (t *Tool) Dir() string {
	return t.dir
}

// Run executes a jupyter command and returns stdout. Stderr is
// captured separately and included in error messages on failure.
func (t *Tool) Run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "jupyter", args...)
	command.Dir = t.dir
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("jupyter %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), t.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ClearOutputs removes all stored cell outputs from the notebook file,
// in place. This is the first refresh step: execution starts from a
// blank slate so stale outputs can never survive a kernel that skips
// cells.
func (t *Tool) ClearOutputs(ctx context.Context, file string) error {
	_, err := t.Run(ctx, "nbconvert", "--ClearOutputPreprocessor.enabled=True", "--inplace", file)
	return err
}

// Execute runs the notebook top to bottom and writes the results back
// into the file. This is the second refresh step.
func (t *Tool) Execute(ctx context.Context, file string) error {
	_, err := t.Run(ctx, "nbconvert", "--to", "notebook", "--execute", "--inplace", file)
	return err
}

// StripMetadata removes notebook-level metadata (kernel versions,
// execution timing) from the file, in place. This is the third refresh
// step: it keeps the committed notebooks byte-stable across machines.
func (t *Tool) StripMetadata(ctx context.Context, file string) error {
	_, err := t.Run(ctx, "nbconvert", "--ClearMetadataPreprocessor.enabled=True", "--to", "notebook", "--inplace", file)
	return err
}

// Version probes `jupyter --version` and returns its output. Used by
// the doctor command to report what is installed.
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := t.Run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ExitCode extracts the tool's own exit status from an error returned
// by Run. Returns 0 for nil, the process exit code when the tool ran
// and failed, and 1 for errors where no process status exists (jupyter
// missing from PATH, context cancellation).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
