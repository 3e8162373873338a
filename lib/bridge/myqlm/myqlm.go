// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package myqlm bridges myQLM-style job objects to the Quandela Cloud
// platform. The wrapper types here carry the string metadata maps the
// lib/bridge machinery writes into: a job holds its payload envelope
// under "perceval_payload", hardware specs come back under
// "platform_specs", and results land under "perceval_results". Every
// metadata value is a serialized document (the lib/serial wire form),
// so both sides of the bridge stay decoupled from each other's native
// types.
package myqlm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Quandela/Perceval-Interop/lib/bridge"
	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

// Submit failure modes.
var (
	// ErrNoPayload means the job carried neither a native circuit
	// with a shot count nor a payload envelope in its metadata.
	ErrNoPayload = errors.New("no valid payload data found")

	// ErrPlatformMismatch means the payload envelope targets a
	// different platform than the handler's processor.
	ErrPlatformMismatch = errors.New("platform name mismatch")
)

// Circuit is an opaque gate-based circuit. The bridge never inspects
// it; it is handed to the Converter as-is.
type Circuit any

// Converter converts a gate-based circuit into an equivalent photonic
// experiment. usePostselection controls whether the conversion adds
// post-selection on the heralded modes; handler submissions always
// enable it so sample counts match the logical circuit.
type Converter interface {
	Convert(circuit Circuit, usePostselection bool) (*payload.Experiment, error)
}

// Job is a myQLM-style submission unit. Either Circuit and Shots are
// set (a native circuit the handler converts on submission) or the
// Metadata carries a pre-built payload envelope under
// bridge.PayloadKey.
type Job struct {
	Circuit  Circuit
	Shots    int
	Metadata map[string]string
}

func (j *Job) Meta() map[string]string { return j.Metadata }

func (j *Job) EnsureMeta() map[string]string {
	if j.Metadata == nil {
		j.Metadata = make(map[string]string)
	}
	return j.Metadata
}

// HardwareSpecs is the specs answer crossing the bridge. The metadata
// carries serialized documents under bridge.SpecsKey, bridge.TypeKey
// and, for physical processors, bridge.PerfKey.
type HardwareSpecs struct {
	Metadata map[string]string
}

func (hw *HardwareSpecs) Meta() map[string]string { return hw.Metadata }

func (hw *HardwareSpecs) EnsureMeta() map[string]string {
	if hw.Metadata == nil {
		hw.Metadata = make(map[string]string)
	}
	return hw.Metadata
}

// Result wraps job results for the bridge. The platform results
// document sits serialized under bridge.ResultsKey.
type Result struct {
	Metadata map[string]string
}

func (r *Result) Meta() map[string]string { return r.Metadata }

func (r *Result) EnsureMeta() map[string]string {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	return r.Metadata
}

// MakeJob builds a Job carrying a payload envelope in its metadata.
// The arguments are those of payload.Generate.
func MakeJob(command string, experiment *payload.Experiment, params map[string]any, platformName string, opts ...payload.Option) (*Job, error) {
	job := &Job{}
	if err := bridge.MakeJob(job, command, experiment, params, platformName, opts...); err != nil {
		return nil, fmt.Errorf("myqlm: %w", err)
	}
	return job, nil
}

// RetrieveResults extracts the platform results document from a
// bridge Result.
func RetrieveResults(result *Result) (any, error) {
	return bridge.RetrieveResults(result)
}

// RetrieveSpecs extracts the platform specs document from a bridge
// HardwareSpecs answer.
func RetrieveSpecs(hw *HardwareSpecs) (any, error) {
	return bridge.RetrieveSpecs(hw)
}

// QPUHandler answers myQLM-side specs and submission requests against
// a remote Quandela processor.
type QPUHandler struct {
	processor *remote.Processor
	converter Converter
}

// NewQPUHandler builds a handler for the given processor. The
// converter may be nil when every submitted job carries a pre-built
// payload envelope; submitting a native circuit then fails.
func NewQPUHandler(processor *remote.Processor, converter Converter) *QPUHandler {
	return &QPUHandler{processor: processor, converter: converter}
}

// Specs fetches the processor's hardware description. The metadata
// always carries the platform specs and the processor type; the
// performance document is added only for physical hardware, where it
// exists.
func (h *QPUHandler) Specs(ctx context.Context) (*HardwareSpecs, error) {
	specs, err := h.processor.Specs(ctx)
	if err != nil {
		return nil, fmt.Errorf("myqlm: fetching specs: %w", err)
	}
	processorType, err := h.processor.Type(ctx)
	if err != nil {
		return nil, fmt.Errorf("myqlm: fetching processor type: %w", err)
	}

	hw := &HardwareSpecs{}
	if err := bridge.WriteMeta(hw, bridge.SpecsKey, specs); err != nil {
		return nil, err
	}
	if err := bridge.WriteMeta(hw, bridge.TypeKey, processorType.Name()); err != nil {
		return nil, err
	}
	if processorType == remote.ProcessorPhysical {
		performance, err := h.processor.Performance(ctx)
		if err != nil {
			return nil, fmt.Errorf("myqlm: fetching performance: %w", err)
		}
		if err := bridge.WriteMeta(hw, bridge.PerfKey, performance); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

// Submit runs a job to completion on the platform. A job carrying a
// native circuit and a shot count is converted (with post-selection)
// into a sample_count payload with max_shots and max_samples both set
// to the shot count; otherwise the payload envelope is read from the
// job metadata. The results document comes back wrapped in a bridge
// Result.
func (h *QPUHandler) Submit(ctx context.Context, job *Job) (*Result, error) {
	envelope, err := h.resolveEnvelope(job)
	if err != nil {
		return nil, err
	}
	if envelope == nil {
		return nil, fmt.Errorf("myqlm: %w", ErrNoPayload)
	}
	if envelope.PlatformName != h.processor.Name() {
		return nil, fmt.Errorf("myqlm: envelope targets %q but processor is %q: %w",
			envelope.PlatformName, h.processor.Name(), ErrPlatformMismatch)
	}

	results, err := h.processor.ExecuteSync(ctx, envelope, envelope.JobName())
	if err != nil {
		return nil, fmt.Errorf("myqlm: executing job: %w", err)
	}

	result := &Result{}
	if err := bridge.WriteMeta(result, bridge.ResultsKey, results); err != nil {
		return nil, err
	}
	return result, nil
}

// resolveEnvelope picks the payload for a submission: the converted
// native circuit when present, the metadata envelope otherwise. A job
// with neither resolves to nil.
func (h *QPUHandler) resolveEnvelope(job *Job) (*payload.Envelope, error) {
	if job.Circuit != nil && job.Shots > 0 {
		if h.converter == nil {
			return nil, fmt.Errorf("myqlm: job carries a native circuit but the handler has no converter")
		}
		experiment, err := h.converter.Convert(job.Circuit, true)
		if err != nil {
			return nil, fmt.Errorf("myqlm: converting circuit: %w", err)
		}
		envelope, err := payload.Generate("sample_count", experiment, nil, h.processor.Name(),
			payload.WithMaxShots(job.Shots), payload.WithMaxSamples(job.Shots))
		if err != nil {
			return nil, fmt.Errorf("myqlm: building payload: %w", err)
		}
		return envelope, nil
	}

	envelope, err := bridge.ExtractPayload(job)
	if err != nil {
		return nil, fmt.Errorf("myqlm: %w", err)
	}
	return envelope, nil
}
