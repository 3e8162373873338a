// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package remote is the client for the Quandela Cloud platform API:
// platform details, job submission, status polling, results, cancel
// and rerun.
//
// Three layers:
//
//   - [Client] wraps the raw HTTP endpoints.
//   - [Processor] is a handle on one platform, caching its details.
//   - [Job] is one submission, from envelope to decoded results.
//
// The synchronous path used by the framework bridges is
// [Processor.ExecuteSync]: submit, poll until terminal, decode.
// Non-2xx responses surface as [PlatformError] values that callers
// can match with errors.As.
package remote
