// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package doctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli/doctor"
	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/bridge"
	"github.com/Quandela/Perceval-Interop/lib/codec"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/jupyter"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/notebook"
	"github.com/Quandela/Perceval-Interop/lib/remote"
	"github.com/Quandela/Perceval-Interop/lib/token"
)

// commandParams holds the parameters for the doctor command.
type commandParams struct {
	cli.JSONOutput

	// Fix repairs fixable failures (currently: missing directories).
	Fix bool `flag:"fix" desc:"repair fixable issues"`

	// DryRun previews repairs without making changes.
	DryRun bool `flag:"dry-run" desc:"with --fix, show what would be repaired without doing it"`

	// Offline skips every check that talks to the platform API.
	Offline bool `flag:"offline" desc:"skip platform API reachability checks"`
}

// apiProbeTimeout bounds the platform reachability check. Deliberately
// shorter than the configured request timeout: doctor should report
// "unreachable" quickly rather than hang on a dead URL.
const apiProbeTimeout = 5 * time.Second

// Command returns the top-level "perceval-interop doctor" command for
// diagnosing the working environment.
func Command() *cli.Command {
	var params commandParams

	return &cli.Command{
		Name:    "doctor",
		Summary: "Diagnose the working environment end-to-end",
		Description: `Check everything perceval-interop needs: configuration, notebook tooling,
the documentation notebook tree, the platform token, optional Python
bridge extras, and platform API reachability. Requires no flags —
discovers everything automatically and reports what's working and what's
broken.

For each failure, prints the specific command to fix it. Missing
directories are repaired in place with --fix.`,
		Usage: "perceval-interop doctor [flags]",
		Examples: []cli.Example{
			{
				Description: "Check environment health",
				Command:     "perceval-interop doctor",
			},
			{
				Description: "Repair fixable issues",
				Command:     "perceval-interop doctor --fix",
			},
			{
				Description: "Check without touching the network",
				Command:     "perceval-interop doctor --offline",
			},
			{
				Description: "Machine-readable output for CI",
				Command:     "perceval-interop doctor --json",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if params.DryRun && !params.Fix {
				return fmt.Errorf("--dry-run requires --fix")
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			return runDoctor(ctx, params, logger)
		},
	}
}

// checkState accumulates discovered state across checks so later checks
// can use results from earlier ones without repeating work.
type checkState struct {
	// cfg is set once the configuration loads successfully.
	cfg *config.Config

	// tokenValue is the resolved platform token, set when one is stored.
	tokenValue string
}

func runDoctor(ctx context.Context, params commandParams, logger *slog.Logger) error {
	results := runChecks(ctx, params, logger)

	var outcome doctor.Outcome
	if params.Fix {
		failedNames := make(map[string]bool)
		for _, result := range results {
			if result.Status == doctor.StatusFail {
				failedNames[result.Name] = true
			}
		}

		outcome = doctor.ExecuteFixes(ctx, results, params.DryRun)
		if outcome.FixedCount > 0 {
			// Re-run the checks: a fix can clear failures beyond the
			// one that carried it (creating the data dir also makes it
			// writable). MarkRepaired keeps the repaired rows visible
			// as FIXED instead of silently flipping to PASS.
			results = runChecks(ctx, params, logger)
			doctor.MarkRepaired(results, failedNames)
		}
	}

	if done, err := params.EmitJSON(doctor.BuildJSON(results, params.DryRun, outcome)); done {
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Status == doctor.StatusFail {
				return &cli.ExitError{Code: 1}
			}
		}
		return nil
	}

	checklistError := doctor.PrintChecklist(results, params.Fix, params.DryRun, outcome)
	printGuidance(results)
	return checklistError
}

// runChecks executes every check section in order and returns the
// combined results.
func runChecks(ctx context.Context, params commandParams, logger *slog.Logger) []doctor.Result {
	var state checkState
	var results []doctor.Result

	// Section 1: Configuration and directories.
	results = append(results, checkConfiguration(&state)...)

	// Section 2: Notebook tooling.
	results = append(results, checkJupyter(ctx)...)

	// Section 3: Documentation notebooks.
	results = append(results, checkNotebookTree(&state)...)

	// Section 4: Platform token.
	results = append(results, checkToken(&state)...)

	// Section 5: Python bridge extras.
	results = append(results, checkPythonExtras(ctx)...)

	// Section 6: Platform API.
	results = append(results, checkPlatformAPI(ctx, &state, params.Offline, logger)...)

	return results
}

// --- Section 1: Configuration and directories ---

func checkConfiguration(state *checkState) []doctor.Result {
	cfg, err := config.Load()
	if err != nil {
		return []doctor.Result{doctor.Fail("configuration",
			fmt.Sprintf("%v — fix the file or unset %s", err, config.EnvConfigPath))}
	}
	state.cfg = cfg

	source := "defaults"
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		source = path
	} else if path := filepath.Join(cfg.Paths.ConfigDir, "config.yaml"); fileExists(path) {
		source = path
	}
	results := []doctor.Result{doctor.Pass("configuration",
		fmt.Sprintf("valid (%s)", source))}

	results = append(results, checkDataDir(cfg))
	results = append(results, checkLedger(cfg))
	return results
}

// checkDataDir verifies the data directory exists and is writable. The
// ledger lives there; submission fails without it. Creating it is the
// one repair doctor performs itself.
func checkDataDir(cfg *config.Config) doctor.Result {
	dir := cfg.Paths.DataDir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return doctor.FailWithFix("data directory",
				fmt.Sprintf("%s does not exist", dir),
				fmt.Sprintf("create %s", dir),
				func(context.Context) error {
					return os.MkdirAll(dir, 0o755)
				})
		}
		return doctor.Fail("data directory", fmt.Sprintf("stat %s: %v", dir, err))
	}
	if !info.IsDir() {
		return doctor.Fail("data directory", fmt.Sprintf("%s exists but is not a directory", dir))
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return doctor.Fail("data directory", fmt.Sprintf("%s is not writable: %v", dir, err))
	}
	probe.Close()
	os.Remove(probe.Name())

	return doctor.Pass("data directory", fmt.Sprintf("%s writable", dir))
}

// checkLedger reads the job ledger back. Every job subcommand starts
// from this file, and when it is corrupt the decode error alone rarely
// shows what went wrong; the CBOR diagnostic of the file contents
// usually does.
func checkLedger(cfg *config.Config) doctor.Result {
	entries, err := ledger.Open(cfg.LedgerPath()).List()
	if err != nil {
		message := err.Error()
		var corrupt *ledger.CorruptError
		if errors.As(err, &corrupt) {
			if notation := diagnoseFile(corrupt.Path); notation != "" {
				message = fmt.Sprintf("%v (contents: %s)", err, notation)
			}
		}
		return doctor.Fail("job ledger", message)
	}

	switch len(entries) {
	case 0:
		return doctor.Pass("job ledger", "empty")
	case 1:
		return doctor.Pass("job ledger", "1 recorded job")
	default:
		return doctor.Pass("job ledger", fmt.Sprintf("%d recorded jobs", len(entries)))
	}
}

// diagnoseFile renders a file in CBOR diagnostic notation, truncated
// to keep the checklist line readable. Returns "" when the contents do
// not parse as CBOR at all; the decode error already covers that case.
func diagnoseFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	notation, err := codec.Diagnose(data)
	if err != nil {
		return ""
	}
	if len(notation) > 120 {
		notation = notation[:120] + "..."
	}
	return notation
}

// --- Section 2: Notebook tooling ---

func checkJupyter(ctx context.Context) []doctor.Result {
	path, err := exec.LookPath("jupyter")
	if err != nil {
		return []doctor.Result{
			doctor.Fail("jupyter", `not on PATH — run "pip install jupyter nbconvert"`),
			doctor.Skip("nbconvert", "jupyter unavailable"),
		}
	}

	tool := jupyter.NewTool(".")

	var results []doctor.Result
	version, err := tool.Version(ctx)
	if err != nil {
		results = append(results, doctor.Warn("jupyter",
			fmt.Sprintf("found at %s but version probe failed: %v", path, err)))
	} else {
		results = append(results, doctor.Pass("jupyter",
			fmt.Sprintf("%s (%s)", path, firstLine(version))))
	}

	nbconvertVersion, err := tool.Run(ctx, "nbconvert", "--version")
	if err != nil {
		results = append(results, doctor.Fail("nbconvert",
			`missing — run "pip install nbconvert"`))
	} else {
		results = append(results, doctor.Pass("nbconvert",
			fmt.Sprintf("version %s", strings.TrimSpace(nbconvertVersion))))
	}
	return results
}

// --- Section 3: Documentation notebooks ---

func checkNotebookTree(state *checkState) []doctor.Result {
	if state.cfg == nil {
		return []doctor.Result{doctor.Skip("notebook directory", "configuration not loaded")}
	}

	dir := state.cfg.Notebooks.Dir
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		// Not every invocation happens inside a repository checkout;
		// the cloud workflow works fine without the notebook tree.
		return []doctor.Result{doctor.Warn("notebook directory",
			fmt.Sprintf("%s does not exist (not a repository checkout?)", dir))}
	}

	names, err := notebook.Scan(dir)
	if err != nil {
		return []doctor.Result{doctor.Fail("notebook directory",
			fmt.Sprintf("scanning %s: %v", dir, err))}
	}
	results := []doctor.Result{doctor.Pass("notebook directory",
		fmt.Sprintf("%s (%d notebooks)", dir, len(names)))}

	if len(names) == 0 {
		return results
	}

	dirty := 0
	for _, name := range names {
		doc, err := notebook.Load(filepath.Join(dir, name))
		if err != nil {
			dirty++
			continue
		}
		if doc.HasOutputs() || doc.HasExecutionCounts() || len(doc.StrayMetadata()) > 0 {
			dirty++
		}
	}
	if dirty > 0 {
		results = append(results, doctor.Warn("notebook hygiene",
			fmt.Sprintf("%d of %d notebooks need \"perceval-interop notebooks refresh\"", dirty, len(names))))
	} else {
		results = append(results, doctor.Pass("notebook hygiene",
			fmt.Sprintf("all %d notebooks clean", len(names))))
	}
	return results
}

// --- Section 4: Platform token ---

func checkToken(state *checkState) []doctor.Result {
	if state.cfg == nil {
		return []doctor.Result{doctor.Skip("platform token", "configuration not loaded")}
	}

	store := cloud.TokenStore(state.cfg)
	tokenValue, source, err := store.Resolve()
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return []doctor.Result{doctor.Fail("platform token",
				`none stored — run "perceval-interop auth login"`)}
		}
		return []doctor.Result{doctor.Fail("platform token", err.Error())}
	}
	state.tokenValue = tokenValue

	switch source {
	case token.SourceSealed:
		return []doctor.Result{doctor.Pass("platform token",
			fmt.Sprintf("sealed (%s)", store.SealedPath))}
	case token.SourceFile:
		return []doctor.Result{doctor.Warn("platform token",
			fmt.Sprintf("plaintext file %s — prefer \"perceval-interop auth login\"", store.PlainPath))}
	default:
		return []doctor.Result{doctor.Pass("platform token",
			fmt.Sprintf("from %s", token.EnvToken))}
	}
}

// --- Section 5: Python bridge extras ---

// Missing extras are warnings, not failures: a bridge is only needed
// when converting from that framework.
func checkPythonExtras(ctx context.Context) []doctor.Result {
	extras := bridge.Extras()

	python, err := exec.LookPath("python3")
	if err != nil {
		results := make([]doctor.Result, 0, len(extras))
		for _, extra := range extras {
			results = append(results, doctor.Skip(extra.Name, "python3 not on PATH"))
		}
		return results
	}

	var results []doctor.Result
	for _, extra := range extras {
		probe := exec.CommandContext(ctx, python, "-c", "import "+extra.Module)
		if err := probe.Run(); err != nil {
			results = append(results, doctor.Warn(extra.Name,
				fmt.Sprintf("python module %q not importable — run \"pip install perceval-interop[%s]\"",
					extra.Module, extra.Name)))
			continue
		}
		results = append(results, doctor.Pass(extra.Name,
			fmt.Sprintf("python module %q importable", extra.Module)))
	}
	return results
}

// --- Section 6: Platform API ---

func checkPlatformAPI(ctx context.Context, state *checkState, offline bool, logger *slog.Logger) []doctor.Result {
	if offline {
		return []doctor.Result{doctor.Skip("platform api", "--offline")}
	}
	if state.cfg == nil {
		return []doctor.Result{doctor.Skip("platform api", "configuration not loaded")}
	}
	if state.tokenValue == "" {
		return []doctor.Result{doctor.Skip("platform api",
			`no token — run "perceval-interop auth login" first`)}
	}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:    state.cfg.Cloud.URL,
		Token:      state.tokenValue,
		HTTPClient: &http.Client{Timeout: apiProbeTimeout},
		Logger:     logger,
	})
	if err != nil {
		return []doctor.Result{doctor.Fail("platform api", err.Error())}
	}

	platformName := state.cfg.Cloud.Platform
	details, err := client.PlatformDetails(ctx, platformName)
	if err != nil {
		if remote.IsNotFound(err) {
			return []doctor.Result{doctor.Warn("platform api",
				fmt.Sprintf("%s reachable but default platform %q not found — check cloud.platform",
					state.cfg.Cloud.URL, platformName))}
		}
		return []doctor.Result{doctor.Fail("platform api",
			fmt.Sprintf("cannot reach %s: %v", state.cfg.Cloud.URL, err))}
	}

	return []doctor.Result{doctor.Pass("platform api",
		fmt.Sprintf("%s reachable — %s is %s", state.cfg.Cloud.URL, details.Name, details.Status))}
}

// --- Guidance ---

// printGuidance prints a "next steps" section after the checklist when
// there are failures. Each failure domain gets a specific actionable
// command.
func printGuidance(results []doctor.Result) {
	type guidance struct {
		command     string
		description string
	}

	var steps []guidance
	seen := make(map[string]bool)

	addStep := func(command, description string) {
		if seen[command] {
			return
		}
		seen[command] = true
		steps = append(steps, guidance{command, description})
	}

	for _, result := range results {
		if result.Status != doctor.StatusFail {
			continue
		}

		switch result.Name {
		case "platform token":
			addStep("perceval-interop auth login", "Store a platform token")
		case "data directory":
			addStep("perceval-interop doctor --fix", "Create missing directories")
		case "jupyter", "nbconvert":
			addStep("pip install jupyter nbconvert", "Install the notebook tooling")
		}
	}

	if len(steps) == 0 {
		return
	}

	fmt.Fprintln(os.Stdout, "Next steps:")
	maxCommandLength := 0
	for _, step := range steps {
		if len(step.command) > maxCommandLength {
			maxCommandLength = len(step.command)
		}
	}
	for _, step := range steps {
		fmt.Fprintf(os.Stdout, "  %-*s  %s\n", maxCommandLength, step.command, step.description)
	}
}

// fileExists reports whether path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// firstLine returns the first non-empty line of s, for compressing
// multi-line version output into a checklist message.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return s
}
