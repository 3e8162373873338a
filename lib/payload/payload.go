// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package payload builds and decodes the envelope submitted to the
// Quandela Cloud platform. The envelope shape is fixed by the
// platform API:
//
//	{
//	  "platform_name": "sim:ascella",
//	  "pcvl_version": "0.13.1",
//	  "payload": {
//	    "command": "sample_count",
//	    "experiment": ":PCVL:zip:...",
//	    "parameters": { ... },
//	    "max_shots": 10000,
//	    "max_samples": 10000
//	  }
//	}
//
// The experiment is an opaque serialized document: this package never
// looks inside it. Building experiments from gate-based circuits is
// the job of the framework converters, which live outside this
// repository.
package payload

import (
	"fmt"

	"github.com/Quandela/Perceval-Interop/lib/serial"
	"github.com/Quandela/Perceval-Interop/lib/version"
)

// DefaultJobName is used when an envelope carries no command to name
// the job after.
const DefaultJobName = "MyJob"

// Experiment is an opaque serialized experiment document. Body holds
// whatever the producing converter serialized; Name is a display
// label and does not travel in the envelope.
type Experiment struct {
	Name string
	Body []byte
}

// EmptyExperiment returns the experiment used when a caller provides
// none: an empty document the platform fills with defaults.
func EmptyExperiment() *Experiment {
	return &Experiment{Name: "empty", Body: []byte("{}")}
}

// Envelope is the complete platform submission document.
type Envelope struct {
	PlatformName string         `json:"platform_name"`
	PcvlVersion  string         `json:"pcvl_version"`
	Payload      map[string]any `json:"payload"`
}

// Option adds an optional entry to the payload body.
type Option func(map[string]any)

// WithMaxShots sets the shot budget for the job.
func WithMaxShots(n int) Option {
	return func(body map[string]any) { body["max_shots"] = n }
}

// WithMaxSamples sets the sample budget for the job.
func WithMaxSamples(n int) Option {
	return func(body map[string]any) { body["max_samples"] = n }
}

// WithExtra adds an arbitrary key to the payload body. Reserved keys
// (command, experiment, parameters) cannot be overridden.
func WithExtra(key string, value any) Option {
	return func(body map[string]any) {
		switch key {
		case "command", "experiment", "parameters":
			return
		}
		body[key] = value
	}
}

// Generate builds an envelope. The command names the platform method
// to run and is required. A nil experiment is replaced by an empty
// one. params, when non-nil, lands under the payload's "parameters"
// key. When both max_samples and max_shots are set, max_samples is
// clamped to max_shots (the platform enforces the same bound; callers
// that care should compare and warn).
func Generate(command string, experiment *Experiment, params map[string]any, platformName string, opts ...Option) (*Envelope, error) {
	if command == "" {
		return nil, fmt.Errorf("payload: command is required")
	}
	if experiment == nil {
		experiment = EmptyExperiment()
	}

	body := map[string]any{
		"command":    command,
		"experiment": experiment.Body,
	}
	if params != nil {
		body["parameters"] = params
	}
	for _, opt := range opts {
		opt(body)
	}

	if shots, samples, ok := shotBudget(body); ok && samples > shots {
		body["max_samples"] = shots
	}

	return &Envelope{
		PlatformName: platformName,
		PcvlVersion:  version.PcvlVersion,
		Payload:      body,
	}, nil
}

// shotBudget reads max_shots and max_samples when both are present.
func shotBudget(body map[string]any) (shots, samples int, ok bool) {
	shots, haveShots := intValue(body["max_shots"])
	samples, haveSamples := intValue(body["max_samples"])
	return shots, samples, haveShots && haveSamples
}

// Command returns the payload command, or "" when absent.
func (e *Envelope) Command() string {
	command, _ := e.Payload["command"].(string)
	return command
}

// JobName returns the name a job built from this envelope should
// carry: the payload command, falling back to DefaultJobName.
func (e *Envelope) JobName() string {
	if command := e.Command(); command != "" {
		return command
	}
	return DefaultJobName
}

// MaxShots returns the shot budget, or 0 when unset.
func (e *Envelope) MaxShots() int {
	n, _ := intValue(e.Payload["max_shots"])
	return n
}

// MaxSamples returns the sample budget, or 0 when unset.
func (e *Envelope) MaxSamples() int {
	n, _ := intValue(e.Payload["max_samples"])
	return n
}

// ExperimentBody returns the opaque experiment document, or nil when
// the envelope carries none.
func (e *Envelope) ExperimentBody() []byte {
	switch body := e.Payload["experiment"].(type) {
	case []byte:
		return body
	}
	return nil
}

// Validate checks the envelope's shape: a payload map with a command.
func (e *Envelope) Validate() error {
	if e.Payload == nil {
		return fmt.Errorf("payload: envelope has no payload body")
	}
	if e.Command() == "" {
		return fmt.Errorf("payload: envelope has no command")
	}
	return nil
}

// ValidateForSubmit checks everything Validate does plus the fields
// the platform rejects submissions without.
func (e *Envelope) ValidateForSubmit() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.PlatformName == "" {
		return fmt.Errorf("payload: envelope has no platform name")
	}
	if e.PcvlVersion == "" {
		return fmt.Errorf("payload: envelope has no pcvl_version")
	}
	return nil
}

// Tree returns the envelope as a serializable value tree.
func (e *Envelope) Tree() map[string]any {
	return map[string]any{
		"platform_name": e.PlatformName,
		"pcvl_version":  e.PcvlVersion,
		"payload":       e.Payload,
	}
}

// Encode produces the wire form: the JSON encoding of the serialized
// tree, with large byte bodies packed into compression envelopes.
func (e *Envelope) Encode() (string, error) {
	return serial.MarshalString(e.Tree())
}

// Decode parses a wire-form envelope. The input may additionally be
// wrapped whole in a serial compression envelope (the form `payload
// pack` produces); that layer is stripped first.
func Decode(s string) (*Envelope, error) {
	if serial.IsPacked(s) {
		data, err := serial.Unpack(s)
		if err != nil {
			return nil, fmt.Errorf("payload: unwrapping document: %w", err)
		}
		s = string(data)
	}

	tree, err := serial.UnmarshalString(s)
	if err != nil {
		return nil, fmt.Errorf("payload: decoding: %w", err)
	}
	root, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload: envelope is %T, want object", tree)
	}

	envelope := &Envelope{}
	if name, ok := root["platform_name"]; ok {
		envelope.PlatformName, ok = name.(string)
		if !ok {
			return nil, fmt.Errorf("payload: platform_name is %T, want string", name)
		}
	}
	if pcvl, ok := root["pcvl_version"]; ok {
		envelope.PcvlVersion, ok = pcvl.(string)
		if !ok {
			return nil, fmt.Errorf("payload: pcvl_version is %T, want string", pcvl)
		}
	}
	body, ok := root["payload"]
	if !ok {
		return nil, fmt.Errorf("payload: envelope has no payload body")
	}
	envelope.Payload, ok = body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload: payload body is %T, want object", body)
	}
	return envelope, nil
}

// intValue reads an int from a decoded JSON value, accepting the
// numeric types JSON decoding and Generate produce.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
