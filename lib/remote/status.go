// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import "strings"

// Status is the run state of a platform job. Values are the wire
// strings the status endpoint returns.
type Status string

const (
	StatusWaiting         Status = "waiting"
	StatusRunning         Status = "running"
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusCanceled        Status = "canceled"
	StatusCancelRequested Status = "cancel_requested"
	StatusSuspended       Status = "suspended"
	StatusUnknown         Status = "unknown"
)

// ParseStatus normalizes a wire status string. Unrecognized values
// map to StatusUnknown rather than failing: new platform states must
// not break old clients mid-poll.
func ParseStatus(s string) Status {
	status := Status(strings.ToLower(s))
	switch status {
	case StatusWaiting, StatusRunning, StatusSuccess, StatusError,
		StatusCanceled, StatusCancelRequested, StatusSuspended:
		return status
	default:
		return StatusUnknown
	}
}

// Terminal reports whether the job has finished and will not change
// state again.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusCanceled:
		return true
	}
	return false
}

// Name returns the uppercase display name, matching the processor
// type convention used in bridge metadata (e.g. "SUCCESS").
func (s Status) Name() string {
	return strings.ToUpper(string(s))
}

// ProcessorType distinguishes simulators from physical QPUs.
type ProcessorType string

const (
	ProcessorSimulator ProcessorType = "SIMULATOR"
	ProcessorPhysical  ProcessorType = "PHYSICAL"
)

// ProcessorTypeFromPlatform maps the platform details "type" field
// (lowercase on the wire) to a ProcessorType. Anything that is not
// physical hardware counts as a simulator.
func ProcessorTypeFromPlatform(platformType string) ProcessorType {
	if strings.EqualFold(platformType, "physical") {
		return ProcessorPhysical
	}
	return ProcessorSimulator
}

// Name returns the metadata form of the type ("SIMULATOR" or
// "PHYSICAL").
func (t ProcessorType) Name() string {
	return string(t)
}
