// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package jupyter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// installJupyterShim creates a fake jupyter executable in a temp
// directory and prepends that directory to PATH. The script body runs
// with the invocation args in "$@".
func installJupyterShim(t *testing.T, script string) {
	t.Helper()

	directory := t.TempDir()
	shimPath := filepath.Join(directory, "jupyter")
	if err := os.WriteFile(shimPath, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write jupyter shim: %v", err)
	}
	t.Setenv("PATH", directory+":"+os.Getenv("PATH"))
}

func TestToolRun(t *testing.T) {
	installJupyterShim(t, `echo "jupyter-core 5.7.2"`)

	tool := NewTool(t.TempDir())
	out, err := tool.Run(context.Background(), "--version")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out, "jupyter-core 5.7.2") {
		t.Errorf("Run() stdout = %q", out)
	}
}

func TestToolRunErrorIncludesContext(t *testing.T) {
	installJupyterShim(t, `echo "no such kernel" >&2; exit 3`)

	dir := t.TempDir()
	tool := NewTool(dir)
	_, err := tool.Run(context.Background(), "nbconvert", "--execute", "walkthrough.ipynb")
	if err == nil {
		t.Fatal("expected error from failing tool")
	}

	message := err.Error()
	for _, want := range []string{"jupyter nbconvert --execute walkthrough.ipynb", dir, "no such kernel"} {
		if !strings.Contains(message, want) {
			t.Errorf("error %q missing %q", message, want)
		}
	}
	if code := ExitCode(err); code != 3 {
		t.Errorf("ExitCode() = %d, want 3", code)
	}
}

func TestRefreshStepsInvokeNbconvert(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "calls.log")
	installJupyterShim(t, fmt.Sprintf(`echo "$@" >> %s`, logFile))

	tool := NewTool(t.TempDir())
	ctx := context.Background()

	if err := tool.ClearOutputs(ctx, "demo.ipynb"); err != nil {
		t.Fatalf("ClearOutputs() error: %v", err)
	}
	if err := tool.Execute(ctx, "demo.ipynb"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if err := tool.StripMetadata(ctx, "demo.ipynb"); err != nil {
		t.Fatalf("StripMetadata() error: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	calls := strings.Split(strings.TrimSpace(string(data)), "\n")

	want := []string{
		"nbconvert --ClearOutputPreprocessor.enabled=True --inplace demo.ipynb",
		"nbconvert --to notebook --execute --inplace demo.ipynb",
		"nbconvert --ClearMetadataPreprocessor.enabled=True --to notebook --inplace demo.ipynb",
	}
	if len(calls) != len(want) {
		t.Fatalf("call count = %d, want %d: %v", len(calls), len(want), calls)
	}
	for index, wantCall := range want {
		if calls[index] != wantCall {
			t.Errorf("call %d = %q, want %q", index, calls[index], wantCall)
		}
	}
}

func TestVersion(t *testing.T) {
	installJupyterShim(t, `echo "jupyter core     : 5.7.2"`)

	tool := NewTool(t.TempDir())
	version, err := tool.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if version != "jupyter core     : 5.7.2" {
		t.Errorf("Version() = %q", version)
	}
}

func TestVersionMissingTool(t *testing.T) {
	// PATH with no jupyter at all.
	t.Setenv("PATH", t.TempDir())

	tool := NewTool(t.TempDir())
	if _, err := tool.Version(context.Background()); err == nil {
		t.Fatal("expected error when jupyter is not installed")
	}
}

func TestExitCode(t *testing.T) {
	if code := ExitCode(nil); code != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", code)
	}
	if code := ExitCode(errors.New("plain error")); code != 1 {
		t.Errorf("ExitCode(plain) = %d, want 1", code)
	}
}

func TestRunHonorsContext(t *testing.T) {
	installJupyterShim(t, `sleep 10`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tool := NewTool(t.TempDir())
	if _, err := tool.Run(ctx, "nbconvert", "--execute", "slow.ipynb"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
