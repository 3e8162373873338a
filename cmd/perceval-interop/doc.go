// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Perceval-interop is the unified CLI for the Perceval interop tooling.
// It provides subcommands for documentation notebook hygiene (notebooks),
// remote job submission and tracking on the Quandela Cloud (job, platform),
// payload envelope tooling (payload), token management (auth), and
// environment diagnosis (doctor).
package main
