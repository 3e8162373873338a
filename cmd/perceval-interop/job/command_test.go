// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cloud"
	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/remote"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

func tempLedger(t *testing.T, entries ...ledger.Entry) *ledger.Ledger {
	t.Helper()

	ldg := ledger.Open(filepath.Join(t.TempDir(), "jobs.ledger"))
	for _, entry := range entries {
		if err := ldg.Append(entry); err != nil {
			t.Fatalf("append entry %s: %v", entry.JobID, err)
		}
	}
	return ldg
}

func TestResolveJob(t *testing.T) {
	ldg := tempLedger(t,
		ledger.Entry{JobID: "aaaa1111", Name: "sample_count"},
		ledger.Entry{JobID: "aaaa2222", Name: "probs"},
		ledger.Entry{JobID: "bbbb3333", Name: "sample_count"},
	)

	tests := []struct {
		query     string
		wantID    string
		wantEntry bool
	}{
		{"aaaa1111", "aaaa1111", true},
		{"sample_count", "bbbb3333", true}, // newest submission wins
		{"bbbb", "bbbb3333", true},
		{"last", "bbbb3333", true},
		{"unknown-platform-id", "unknown-platform-id", false}, // passthrough
	}
	for _, test := range tests {
		id, entry, err := resolveJob(ldg, test.query)
		if err != nil {
			t.Errorf("resolveJob(%q) error: %v", test.query, err)
			continue
		}
		if id != test.wantID {
			t.Errorf("resolveJob(%q) id = %q, want %q", test.query, id, test.wantID)
		}
		if (entry != nil) != test.wantEntry {
			t.Errorf("resolveJob(%q) entry = %v, want present=%v", test.query, entry, test.wantEntry)
		}
	}

	if _, _, err := resolveJob(ldg, "aaaa"); !errors.Is(err, ledger.ErrAmbiguous) {
		t.Errorf("ambiguous prefix error = %v, want ErrAmbiguous", err)
	}

	empty := tempLedger(t)
	if _, _, err := resolveJob(empty, "last"); err == nil {
		t.Error("expected error for 'last' on an empty ledger")
	}
}

func TestParseParams(t *testing.T) {
	parameters, err := parseParams(`{
		// photon threshold for coincidence counting
		"min_detected_photons": 2,
		"phase": 0.5, // trailing comma below
	}`)
	if err != nil {
		t.Fatalf("parseParams() error: %v", err)
	}
	if parameters["min_detected_photons"] != float64(2) {
		t.Errorf("min_detected_photons = %v", parameters["min_detected_photons"])
	}
	if parameters["phase"] != 0.5 {
		t.Errorf("phase = %v", parameters["phase"])
	}

	if got, err := parseParams(""); err != nil || got != nil {
		t.Errorf("parseParams(\"\") = %v, %v; want nil, nil", got, err)
	}
	if _, err := parseParams(`[1, 2]`); err == nil {
		t.Error("expected error for non-object params")
	}
	if _, err := parseParams(`{broken`); err == nil {
		t.Error("expected error for malformed params")
	}
}

func testSession() *cloud.Session {
	return &cloud.Session{Config: config.Default()}
}

func TestBuildEnvelopeFromFlags(t *testing.T) {
	params := &submitParams{
		Command:    "sample_count",
		Params:     `{"min_detected_photons": 2}`,
		MaxShots:   1000,
		MaxSamples: 500,
	}

	envelope, err := buildEnvelope(params, testSession())
	if err != nil {
		t.Fatalf("buildEnvelope() error: %v", err)
	}
	if envelope.PlatformName != "sim:ascella" {
		t.Errorf("platform = %q, want configured default", envelope.PlatformName)
	}
	if envelope.Command() != "sample_count" {
		t.Errorf("command = %q", envelope.Command())
	}
	if envelope.MaxShots() != 1000 || envelope.MaxSamples() != 500 {
		t.Errorf("budgets = %d/%d, want 1000/500", envelope.MaxShots(), envelope.MaxSamples())
	}
	if err := envelope.ValidateForSubmit(); err != nil {
		t.Errorf("ValidateForSubmit() error: %v", err)
	}
}

func TestBuildEnvelopePlatformFlagWins(t *testing.T) {
	params := &submitParams{Command: "probs"}
	params.Platform = "qpu:belenos"

	envelope, err := buildEnvelope(params, testSession())
	if err != nil {
		t.Fatalf("buildEnvelope() error: %v", err)
	}
	if envelope.PlatformName != "qpu:belenos" {
		t.Errorf("platform = %q, want flag value", envelope.PlatformName)
	}
}

func TestBuildEnvelopeFromFile(t *testing.T) {
	source, err := payload.Generate("sample_count", nil, nil, "sim:clifford",
		payload.WithMaxShots(200))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	encoded, err := source.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "envelope.json")
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	params := &submitParams{Payload: path}
	envelope, err := buildEnvelope(params, testSession())
	if err != nil {
		t.Fatalf("buildEnvelope() error: %v", err)
	}
	if envelope.PlatformName != "sim:clifford" {
		t.Errorf("platform = %q, want the file's platform", envelope.PlatformName)
	}
	if envelope.MaxShots() != 200 {
		t.Errorf("max shots = %d, want 200", envelope.MaxShots())
	}
}

func TestBuildEnvelopeFromPackedFile(t *testing.T) {
	source, err := payload.Generate("probs", nil, nil, "sim:slos")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	encoded, err := source.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	packed, err := serial.Pack([]byte(encoded), serial.KindZip)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "envelope.pcvl")
	if err := os.WriteFile(path, []byte(packed), 0o644); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	envelope, err := buildEnvelope(&submitParams{Payload: path}, testSession())
	if err != nil {
		t.Fatalf("buildEnvelope() error: %v", err)
	}
	if envelope.Command() != "probs" {
		t.Errorf("command = %q, want probs", envelope.Command())
	}
}

func TestBuildEnvelopeFlagFileConflict(t *testing.T) {
	if _, err := buildEnvelope(&submitParams{Payload: "x.json", Command: "probs"}, testSession()); err == nil {
		t.Error("expected error for --payload with --command")
	}
	if _, err := buildEnvelope(&submitParams{}, testSession()); err == nil {
		t.Error("expected error when neither --payload nor --command is given")
	}
}

func TestRenderResults(t *testing.T) {
	wire, err := serial.MarshalString(map[string]any{"results": map[string]any{"|1,0>": 512}})
	if err != nil {
		t.Fatalf("MarshalString() error: %v", err)
	}
	results := &remote.JobResults{JobID: "job-1", Results: wire}

	raw, err := renderResults(results, true)
	if err != nil {
		t.Fatalf("renderResults(raw) error: %v", err)
	}
	if strings.TrimSuffix(string(raw), "\n") != wire {
		t.Errorf("raw output = %q, want the wire form", raw)
	}

	decoded, err := renderResults(results, false)
	if err != nil {
		t.Fatalf("renderResults(decoded) error: %v", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(decoded, &tree); err != nil {
		t.Fatalf("decoded output is not JSON: %v", err)
	}
	inner, ok := tree["results"].(map[string]any)
	if !ok || inner["|1,0>"] != float64(512) {
		t.Errorf("decoded tree = %v", tree)
	}
}

func TestFormatStatusLine(t *testing.T) {
	tests := []struct {
		name   string
		status remote.JobStatus
		want   string
	}{
		{
			name:   "running with progress",
			status: remote.JobStatus{Status: remote.StatusRunning, Progress: 0.42},
			want:   "RUNNING (42%)",
		},
		{
			name:   "running with message",
			status: remote.JobStatus{Status: remote.StatusRunning, Progress: 0.1, ProgressMessage: "compiling"},
			want:   "RUNNING (10%) compiling",
		},
		{
			name:   "terminal hides progress",
			status: remote.JobStatus{Status: remote.StatusSuccess, Progress: 1},
			want:   "SUCCESS",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := formatStatusLine(&test.status); got != test.want {
				t.Errorf("formatStatusLine() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("short"); got != "short" {
		t.Errorf("shortID() = %q", got)
	}
}

func TestRecordSubmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/job" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"job_id": "job-abc-123"}`)
	}))
	defer server.Close()

	client, err := remote.NewClient(remote.ClientConfig{BaseURL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	envelope, err := payload.Generate("sample_count", nil, nil, "sim:ascella")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	job, err := remote.NewProcessor(client, "sim:ascella").NewJob(envelope, "")
	if err != nil {
		t.Fatalf("NewJob() error: %v", err)
	}
	if err := job.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	ldg := tempLedger(t)
	if err := recordSubmission(ldg, job, envelope); err != nil {
		t.Fatalf("recordSubmission() error: %v", err)
	}

	entry, err := ldg.Last()
	if err != nil {
		t.Fatalf("Last() error: %v", err)
	}
	if entry.JobID != "job-abc-123" {
		t.Errorf("entry job id = %q", entry.JobID)
	}
	if entry.Name != "sample_count" || entry.Command != "sample_count" {
		t.Errorf("entry name/command = %q/%q", entry.Name, entry.Command)
	}
	if entry.Platform != "sim:ascella" {
		t.Errorf("entry platform = %q", entry.Platform)
	}
	if entry.LastStatus != remote.StatusWaiting {
		t.Errorf("entry status = %q", entry.LastStatus)
	}
	if len(entry.PayloadDigest) != 64 {
		t.Errorf("digest = %q, want 64 hex characters", entry.PayloadDigest)
	}
}

func TestWatchPlain(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "running"
		progress := 0.5
		if calls >= 3 {
			status, progress = "success", 1.0
		}
		fmt.Fprintf(w, `{"id": "job-1", "status": %q, "progress": %g}`, status, progress)
	}))
	defer server.Close()

	client, err := remote.NewClient(remote.ClientConfig{BaseURL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	var out bytes.Buffer
	final, err := watchPlain(context.Background(), client, "job-1", 5*time.Millisecond, &out)
	if err != nil {
		t.Fatalf("watchPlain() error: %v", err)
	}
	if final.Status != remote.StatusSuccess {
		t.Errorf("final status = %q, want success", final.Status)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2 (one per status change): %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "RUNNING") || !strings.Contains(lines[1], "SUCCESS") {
		t.Errorf("output = %q", out.String())
	}
}

func TestWatchModelQuitsOnTerminalStatus(t *testing.T) {
	model := watchModel{}
	updated, cmd := model.Update(watchStatusMsg{status: &remote.JobStatus{Status: remote.StatusSuccess}})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("command message = %T, want tea.QuitMsg", cmd())
	}
	if updated.(watchModel).latest.Status != remote.StatusSuccess {
		t.Errorf("latest status not recorded")
	}
}

func TestWatchModelReschedulesWhileRunning(t *testing.T) {
	model := watchModel{interval: time.Millisecond}
	updated, cmd := model.Update(watchStatusMsg{status: &remote.JobStatus{Status: remote.StatusRunning}})
	if cmd == nil {
		t.Fatal("expected a reschedule command")
	}
	if updated.(watchModel).latest.Status != remote.StatusRunning {
		t.Errorf("latest status not recorded")
	}

	fetched := false
	model = watchModel{fetch: func() tea.Msg { fetched = true; return nil }}
	_, cmd = model.Update(watchPollMsg{})
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	cmd()
	if !fetched {
		t.Error("poll message did not trigger a fetch")
	}
}

func TestWatchModelQuitKey(t *testing.T) {
	model := watchModel{}
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("command message = %T, want tea.QuitMsg", cmd())
	}
	if !updated.(watchModel).quitting {
		t.Error("model not marked quitting")
	}
}
