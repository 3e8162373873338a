// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package doctor provides the infrastructure for the perceval-interop
// doctor command: environment health checks with a consistent report
// format and optional automatic repair.
//
// Each check produces a [Result] with a status, a message, and — for
// fixable failures — a fix closure executed in --fix mode. The package
// provides:
//
//   - [Result] type with status, message, and optional fix action
//   - Constructors: [Pass], [Fail], [FailWithFix], [Warn], [Skip]
//   - [ExecuteFixes] for running fix closures
//   - [PrintChecklist] for human-readable output
//   - [BuildJSON] for machine-readable output
//   - [MarkRepaired] for check-fix-recheck repair tracking
//
// The checks themselves (jupyter probing, notebook cleanliness, config
// validation, token presence, API reachability) live in the doctor
// command package. This package provides only the workflow.
package doctor
