// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package myqlm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Quandela/Perceval-Interop/lib/bridge"
	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/remote"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

// fakeConverter records its invocation and returns a fixed experiment.
type fakeConverter struct {
	called           bool
	gotCircuit       Circuit
	gotPostselection bool
	err              error
}

func (f *fakeConverter) Convert(circuit Circuit, usePostselection bool) (*payload.Experiment, error) {
	f.called = true
	f.gotCircuit = circuit
	f.gotPostselection = usePostselection
	if f.err != nil {
		return nil, f.err
	}
	return &payload.Experiment{Name: "converted", Body: []byte(`{"m": 2}`)}, nil
}

// platformFixture is the fake platform API: one platform document,
// immediate job success, fixed results.
type platformFixture struct {
	platformType string
	perfs        map[string]any

	jobRequest map[string]any
}

func (f *platformFixture) handler(t *testing.T) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case strings.HasPrefix(request.URL.Path, "/api/v1/platform/"):
			document := map[string]any{
				"name":  "sim:ascella",
				"type":  f.platformType,
				"specs": map[string]any{"max_mode_count": 12},
			}
			if f.perfs != nil {
				document["perfs"] = f.perfs
			}
			json.NewEncoder(writer).Encode(document)

		case request.URL.Path == "/api/v1/job":
			if err := json.NewDecoder(request.Body).Decode(&f.jobRequest); err != nil {
				t.Errorf("decoding job request: %v", err)
			}
			json.NewEncoder(writer).Encode(map[string]any{"job_id": "job-1"})

		case strings.HasPrefix(request.URL.Path, "/api/v1/job/status/"):
			json.NewEncoder(writer).Encode(map[string]any{"status": "SUCCESS"})

		case strings.HasPrefix(request.URL.Path, "/api/v1/job/result/"):
			wire, err := serial.MarshalString(map[string]any{"results": map[string]any{"|1,0>": 512}})
			if err != nil {
				t.Errorf("encoding results: %v", err)
			}
			json.NewEncoder(writer).Encode(map[string]any{"job_id": "job-1", "results": wire})

		default:
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
		}
	}
}

func testProcessor(t *testing.T, fixture *platformFixture) (*remote.Processor, func()) {
	t.Helper()
	server := httptest.NewServer(fixture.handler(t))
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:      server.URL,
		Token:        "test-token",
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return remote.NewProcessor(client, "sim:ascella"), server.Close
}

func TestSpecsSimulator(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	handler := NewQPUHandler(processor, nil)
	hw, err := handler.Specs(context.Background())
	if err != nil {
		t.Fatalf("Specs failed: %v", err)
	}

	if _, ok := hw.Metadata[bridge.SpecsKey]; !ok {
		t.Error("specs metadata missing")
	}
	if _, ok := hw.Metadata[bridge.PerfKey]; ok {
		t.Error("simulator specs must not carry a performance document")
	}

	platformType, err := serial.UnmarshalString(hw.Metadata[bridge.TypeKey])
	if err != nil {
		t.Fatalf("decoding type metadata: %v", err)
	}
	if platformType != "SIMULATOR" {
		t.Errorf("type = %v, want SIMULATOR", platformType)
	}

	specs, err := RetrieveSpecs(hw)
	if err != nil {
		t.Fatalf("RetrieveSpecs failed: %v", err)
	}
	if specs.(map[string]any)["max_mode_count"] != float64(12) {
		t.Errorf("specs = %v", specs)
	}
}

func TestSpecsPhysical(t *testing.T) {
	fixture := &platformFixture{
		platformType: "physical",
		perfs:        map[string]any{"transmittance": 0.07},
	}
	processor, done := testProcessor(t, fixture)
	defer done()

	handler := NewQPUHandler(processor, nil)
	hw, err := handler.Specs(context.Background())
	if err != nil {
		t.Fatalf("Specs failed: %v", err)
	}

	raw, ok := hw.Metadata[bridge.PerfKey]
	if !ok {
		t.Fatal("physical specs must carry a performance document")
	}
	perf, err := serial.UnmarshalString(raw)
	if err != nil {
		t.Fatalf("decoding performance metadata: %v", err)
	}
	if perf.(map[string]any)["transmittance"] != float64(0.07) {
		t.Errorf("perf = %v", perf)
	}
}

func TestSubmitNativeCircuit(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	converter := &fakeConverter{}
	handler := NewQPUHandler(processor, converter)

	job := &Job{Circuit: "native-circuit", Shots: 1000}
	result, err := handler.Submit(context.Background(), job)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if !converter.called {
		t.Fatal("converter not invoked for a native circuit")
	}
	if !converter.gotPostselection {
		t.Error("conversion must enable post-selection")
	}
	if converter.gotCircuit != "native-circuit" {
		t.Errorf("converter got circuit %v", converter.gotCircuit)
	}

	if fixture.jobRequest["job_name"] != "sample_count" {
		t.Errorf("job_name = %v", fixture.jobRequest["job_name"])
	}
	body, ok := fixture.jobRequest["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload body missing: %v", fixture.jobRequest)
	}
	if body["command"] != "sample_count" {
		t.Errorf("command = %v", body["command"])
	}
	if body["max_shots"] != float64(1000) || body["max_samples"] != float64(1000) {
		t.Errorf("shot budget = %v / %v", body["max_shots"], body["max_samples"])
	}

	results, err := RetrieveResults(result)
	if err != nil {
		t.Fatalf("RetrieveResults failed: %v", err)
	}
	counts := results.(map[string]any)["results"].(map[string]any)
	if counts["|1,0>"] != float64(512) {
		t.Errorf("counts = %v", counts)
	}
}

func TestSubmitPayloadMetadata(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	job, err := MakeJob("probs", nil, map[string]any{"phi": 0.5}, "sim:ascella")
	if err != nil {
		t.Fatalf("MakeJob failed: %v", err)
	}

	handler := NewQPUHandler(processor, nil)
	if _, err := handler.Submit(context.Background(), job); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The job takes its name from the payload command.
	if fixture.jobRequest["job_name"] != "probs" {
		t.Errorf("job_name = %v", fixture.jobRequest["job_name"])
	}
}

func TestSubmitNoPayload(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	handler := NewQPUHandler(processor, nil)
	_, err := handler.Submit(context.Background(), &Job{})
	if !errors.Is(err, ErrNoPayload) {
		t.Errorf("err = %v, want ErrNoPayload", err)
	}
}

func TestSubmitPlatformMismatch(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	job, err := MakeJob("sample_count", nil, nil, "qpu:belenos")
	if err != nil {
		t.Fatalf("MakeJob failed: %v", err)
	}

	handler := NewQPUHandler(processor, nil)
	_, err = handler.Submit(context.Background(), job)
	if !errors.Is(err, ErrPlatformMismatch) {
		t.Errorf("err = %v, want ErrPlatformMismatch", err)
	}
}

func TestSubmitNativeCircuitWithoutConverter(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	handler := NewQPUHandler(processor, nil)
	_, err := handler.Submit(context.Background(), &Job{Circuit: "c", Shots: 10})
	if err == nil || !strings.Contains(err.Error(), "no converter") {
		t.Errorf("err = %v, want converter error", err)
	}
}

func TestSubmitZeroShotsFallsBackToMetadata(t *testing.T) {
	fixture := &platformFixture{platformType: "simulator"}
	processor, done := testProcessor(t, fixture)
	defer done()

	// A circuit without a shot count is not submittable natively; the
	// handler must fall back to the metadata envelope.
	job, err := MakeJob("sample_count", nil, nil, "sim:ascella")
	if err != nil {
		t.Fatalf("MakeJob failed: %v", err)
	}
	job.Circuit = "native-circuit"

	converter := &fakeConverter{}
	handler := NewQPUHandler(processor, converter)
	if _, err := handler.Submit(context.Background(), job); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if converter.called {
		t.Error("converter invoked despite zero shot count")
	}
}

func TestRetrieveResultsWrongSource(t *testing.T) {
	_, err := RetrieveResults(&Result{Metadata: map[string]string{}})
	if err == nil || !strings.Contains(err.Error(), "perceval job") {
		t.Errorf("err = %v", err)
	}
}

func TestRetrieveSpecsWrongSource(t *testing.T) {
	_, err := RetrieveSpecs(&HardwareSpecs{Metadata: map[string]string{}})
	if err == nil || !strings.Contains(err.Error(), "quandela qpu") {
		t.Errorf("err = %v", err)
	}
}

func TestMakeJobRoundTrip(t *testing.T) {
	job, err := MakeJob("sample_count", nil, nil, "sim:ascella", payload.WithMaxShots(500))
	if err != nil {
		t.Fatalf("MakeJob failed: %v", err)
	}

	envelope, err := payload.Decode(job.Metadata[bridge.PayloadKey])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if envelope.PlatformName != "sim:ascella" {
		t.Errorf("platform = %q", envelope.PlatformName)
	}
	if envelope.Command() != "sample_count" {
		t.Errorf("command = %q", envelope.Command())
	}
	if envelope.MaxShots() != 500 {
		t.Errorf("max_shots = %d", envelope.MaxShots())
	}
}
