// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package doctor

import "context"

// Status is the outcome of a single health check.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusWarn  Status = "warn"
	StatusSkip  Status = "skip"
	StatusFixed Status = "fixed"
)

// FixAction repairs a failed check. Whatever the repair needs (paths,
// clients) is captured in the closure when the check constructs it;
// the context carries cancellation.
type FixAction func(ctx context.Context) error

// Result is one health check's outcome. A fixable failure carries
// FixHint for display and the fix closure itself.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	FixHint string `json:"fix_hint,omitempty"`
	fix     FixAction
}

// HasFix reports whether this result carries a fix action.
func (r *Result) HasFix() bool {
	return r.fix != nil
}

func newResult(status Status, name, message string) Result {
	return Result{Name: name, Status: status, Message: message}
}

// Pass creates a passing check result.
func Pass(name, message string) Result { return newResult(StatusPass, name, message) }

// Fail creates a failing check result with no automatic fix.
func Fail(name, message string) Result { return newResult(StatusFail, name, message) }

// FailWithFix creates a failing check result carrying a repair action.
func FailWithFix(name, message, fixHint string, fix FixAction) Result {
	result := newResult(StatusFail, name, message)
	result.FixHint = fixHint
	result.fix = fix
	return result
}

// Warn creates a warning result. Warnings never fail the doctor run.
func Warn(name, message string) Result { return newResult(StatusWarn, name, message) }

// Skip creates a skipped result, used when a check's prerequisite is
// missing: the Python extras probes skip when python3 itself is not on
// PATH.
func Skip(name, message string) Result { return newResult(StatusSkip, name, message) }

// Outcome aggregates what a fix pass accomplished.
type Outcome struct {
	// FixedCount is the number of successfully applied fixes.
	FixedCount int

	// PermissionDenied is set when a fix failed with EPERM or EACCES,
	// a read-only checkout or an unwritable config dir being the
	// usual causes.
	PermissionDenied bool
}

// JSONOutput is the doctor command's --json document.
type JSONOutput struct {
	Checks           []Result `json:"checks"`
	OK               bool     `json:"ok"`
	DryRun           bool     `json:"dry_run,omitempty"`
	PermissionDenied bool     `json:"permission_denied,omitempty"`
}
