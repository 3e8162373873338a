// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package bridge

import (
	"fmt"

	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

// Metadata keys. These are wire constants shared with every framework
// bridge: a job produced by one peer must be readable by another.
const (
	// PayloadKey holds the full platform submission envelope.
	PayloadKey = "perceval_payload"

	// SpecsKey holds the platform's hardware specs document.
	SpecsKey = "platform_specs"

	// PerfKey holds the platform's performance document. Written only
	// for physical platforms.
	PerfKey = "platform_perf"

	// TypeKey holds the processor type name (SIMULATOR or PHYSICAL).
	TypeKey = "platform_type"

	// ResultsKey holds the results document of a completed job.
	ResultsKey = "perceval_results"
)

// MetaCarrier is implemented by framework wrapper objects (jobs,
// results, hardware specs) that carry a string metadata map. The
// bridge stores every Perceval-side value in that map, encoded with
// [serial.MarshalString], so the wrapper itself stays opaque to the
// host framework.
type MetaCarrier interface {
	// Meta returns the metadata map, which may be nil on a fresh
	// object.
	Meta() map[string]string

	// EnsureMeta returns the metadata map, allocating it first when
	// nil.
	EnsureMeta() map[string]string
}

// WriteMeta serializes value and stores it under key in the object's
// metadata map.
func WriteMeta(obj MetaCarrier, key string, value any) error {
	encoded, err := serial.MarshalString(value)
	if err != nil {
		return fmt.Errorf("bridge: encoding %s: %w", key, err)
	}
	obj.EnsureMeta()[key] = encoded
	return nil
}

// ParseMeta reads and deserializes the value stored under key.
// A nil metadata map yields (nil, nil): the object simply never
// crossed the bridge. A present map without the key is an error,
// since it means the object crossed the bridge but lost the value.
func ParseMeta(obj MetaCarrier, key string) (any, error) {
	meta := obj.Meta()
	if meta == nil {
		return nil, nil
	}
	raw, ok := meta[key]
	if !ok {
		return nil, fmt.Errorf("bridge: metadata has no %q key", key)
	}
	value, err := serial.UnmarshalString(raw)
	if err != nil {
		return nil, fmt.Errorf("bridge: decoding %s: %w", key, err)
	}
	return value, nil
}

// HasMeta reports whether the object's metadata map carries key.
func HasMeta(obj MetaCarrier, key string) bool {
	meta := obj.Meta()
	if meta == nil {
		return false
	}
	_, ok := meta[key]
	return ok
}

// AttachPayload stores a submission envelope on the carrier under
// PayloadKey.
func AttachPayload(obj MetaCarrier, envelope *payload.Envelope) error {
	return WriteMeta(obj, PayloadKey, envelope.Tree())
}

// MakeJob builds a submission envelope and attaches it to the carrier.
// The arguments are those of [payload.Generate].
func MakeJob(obj MetaCarrier, command string, experiment *payload.Experiment, params map[string]any, platformName string, opts ...payload.Option) error {
	envelope, err := payload.Generate(command, experiment, params, platformName, opts...)
	if err != nil {
		return fmt.Errorf("bridge: building payload: %w", err)
	}
	return AttachPayload(obj, envelope)
}

// ExtractPayload reads the submission envelope stored under
// PayloadKey. Returns (nil, nil) when the carrier has no metadata or
// no payload entry: absence is how native (non-Perceval) jobs look.
func ExtractPayload(obj MetaCarrier) (*payload.Envelope, error) {
	meta := obj.Meta()
	if meta == nil {
		return nil, nil
	}
	raw, ok := meta[PayloadKey]
	if !ok {
		return nil, nil
	}
	envelope, err := payload.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("bridge: payload metadata: %w", err)
	}
	return envelope, nil
}

// RetrieveResults reads the Perceval results document from a
// completed job's result object.
func RetrieveResults(result MetaCarrier) (any, error) {
	if !HasMeta(result, ResultsKey) {
		return nil, fmt.Errorf("bridge: results don't come from a perceval job")
	}
	return ParseMeta(result, ResultsKey)
}

// RetrieveSpecs reads the platform specs document from a hardware
// specs object.
func RetrieveSpecs(hw MetaCarrier) (any, error) {
	if !HasMeta(hw, SpecsKey) {
		return nil, fmt.Errorf("bridge: hardware specs don't come from a quandela qpu")
	}
	return ParseMeta(hw, SpecsKey)
}
