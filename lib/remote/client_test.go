// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURL:      server.URL,
		Token:        "test-token",
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("valid URL", func(t *testing.T) {
		client, err := NewClient(ClientConfig{BaseURL: "https://api.cloud.quandela.com"})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client == nil {
			t.Fatal("NewClient returned nil")
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{}); err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("URL without scheme", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{BaseURL: "api.cloud.quandela.com"}); err == nil {
			t.Fatal("expected error for URL without scheme")
		}
	})
}

func TestPlatformDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v1/platform/sim:ascella" {
			t.Errorf("unexpected path: %s", request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		if got := request.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"name":  "sim:ascella",
			"type":  "simulator",
			"specs": map[string]any{"max_mode_count": 12},
		})
	}))
	defer server.Close()

	client := testClient(t, server)
	details, err := client.PlatformDetails(context.Background(), "sim:ascella")
	if err != nil {
		t.Fatalf("PlatformDetails failed: %v", err)
	}
	if details.Name != "sim:ascella" {
		t.Errorf("name = %q", details.Name)
	}
	if details.ProcessorType() != ProcessorSimulator {
		t.Errorf("type = %v", details.ProcessorType())
	}
	if details.Specs["max_mode_count"] != float64(12) {
		t.Errorf("specs = %v", details.Specs)
	}
}

func TestPlatformDetailsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		json.NewEncoder(writer).Encode(map[string]any{
			"code":    "not_found",
			"message": "no such platform",
		})
	}))
	defer server.Close()

	client := testClient(t, server)
	_, err := client.PlatformDetails(context.Background(), "sim:nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPlatformError(err, CodeNotFound) {
		t.Errorf("err = %v, want not_found platform error", err)
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestPlatformErrorDetailShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(writer).Encode(map[string]any{"detail": "invalid token"})
	}))
	defer server.Close()

	client := testClient(t, server)
	_, err := client.PlatformDetails(context.Background(), "qpu:ascella")
	if err == nil {
		t.Fatal("expected error")
	}
	var platformError *PlatformError
	if !errors.As(err, &platformError) {
		t.Fatalf("err = %T", err)
	}
	if platformError.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", platformError.StatusCode)
	}
	if platformError.Message != "invalid token" {
		t.Errorf("message = %q", platformError.Message)
	}
}

func TestCreateJob(t *testing.T) {
	var requestBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v1/job" || request.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		if err := json.NewDecoder(request.Body).Decode(&requestBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		json.NewEncoder(writer).Encode(map[string]any{"job_id": "job-123"})
	}))
	defer server.Close()

	envelope, err := payload.Generate("sample_count", nil, nil, "qpu:ascella",
		payload.WithMaxShots(1000))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	client := testClient(t, server)
	id, err := client.CreateJob(context.Background(), envelope, "")
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if id != "job-123" {
		t.Errorf("id = %q", id)
	}

	if requestBody["job_name"] != "sample_count" {
		t.Errorf("job_name = %v", requestBody["job_name"])
	}
	if requestBody["platform_name"] != "qpu:ascella" {
		t.Errorf("platform_name = %v", requestBody["platform_name"])
	}
	if _, ok := requestBody["payload"].(map[string]any); !ok {
		t.Errorf("payload body missing: %v", requestBody["payload"])
	}
}

func TestCreateJobRejectsIncompleteEnvelope(t *testing.T) {
	client, err := NewClient(ClientConfig{BaseURL: "https://api.cloud.quandela.com"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	envelope, err := payload.Generate("sample_count", nil, nil, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := client.CreateJob(context.Background(), envelope, ""); err == nil {
		t.Fatal("expected error for envelope without platform name")
	}
}

func TestJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v1/job/status/job-123" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"status":   "RUNNING",
			"progress": 0.4,
		})
	}))
	defer server.Close()

	client := testClient(t, server)
	status, err := client.JobStatus(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("JobStatus failed: %v", err)
	}
	if status.Status != StatusRunning {
		t.Errorf("status = %v", status.Status)
	}
	if status.ID != "job-123" {
		t.Errorf("id = %q", status.ID)
	}
	if status.Progress != 0.4 {
		t.Errorf("progress = %v", status.Progress)
	}
}

func TestJobResultsDecode(t *testing.T) {
	wire, err := serial.MarshalString(map[string]any{"results": map[string]any{"|1,0>": 512, "|0,1>": 488}})
	if err != nil {
		t.Fatalf("MarshalString failed: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v1/job/result/job-123" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		json.NewEncoder(writer).Encode(map[string]any{"job_id": "job-123", "results": wire})
	}))
	defer server.Close()

	client := testClient(t, server)
	results, err := client.JobResults(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("JobResults failed: %v", err)
	}
	decoded, err := results.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	counts := decoded.(map[string]any)["results"].(map[string]any)
	if counts["|1,0>"] != float64(512) {
		t.Errorf("counts = %v", counts)
	}
}

func TestCancelAndRerun(t *testing.T) {
	var canceled bool
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/v1/job/cancel/job-123":
			canceled = true
			writer.WriteHeader(http.StatusOK)
		case "/api/v1/job/rerun/job-123":
			json.NewEncoder(writer).Encode(map[string]any{"job_id": "job-456"})
		default:
			t.Errorf("unexpected path: %s", request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server)
	if err := client.CancelJob(context.Background(), "job-123"); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if !canceled {
		t.Error("cancel endpoint not called")
	}

	newID, err := client.RerunJob(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("RerunJob failed: %v", err)
	}
	if newID != "job-456" {
		t.Errorf("new id = %q", newID)
	}
}
