// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Quandela/Perceval-Interop/lib/payload"
	"github.com/Quandela/Perceval-Interop/lib/serial"
)

// DefaultPollInterval is how often ExecuteSync asks for job status.
const DefaultPollInterval = 3 * time.Second

// ClientConfig holds the dependencies for a platform API client.
type ClientConfig struct {
	// BaseURL is the platform API base, e.g. "https://api.cloud.quandela.com".
	BaseURL string

	// Token is the platform access token, sent as a bearer
	// credential. Empty means unauthenticated (platform details for
	// public platforms still work).
	Token string

	// HTTPClient is the underlying HTTP client. If nil, a client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// PollInterval is the status polling period for ExecuteSync.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Logger for request tracing. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is a Quandela Cloud platform API client.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewClient creates a platform API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remote: base URL %q needs a scheme and host", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		token:        config.Token,
		httpClient:   httpClient,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// PlatformDetails describes one platform as the API reports it.
type PlatformDetails struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	WaitingJobs int            `json:"waiting_jobs"`
	Specs       map[string]any `json:"specs"`
	Perfs       map[string]any `json:"perfs"`
}

// ProcessorType maps the details' wire type onto the metadata enum.
func (d *PlatformDetails) ProcessorType() ProcessorType {
	return ProcessorTypeFromPlatform(d.Type)
}

// PlatformDetails fetches the platform document for name.
func (c *Client) PlatformDetails(ctx context.Context, name string) (*PlatformDetails, error) {
	if name == "" {
		return nil, fmt.Errorf("remote: platform name is required")
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/platform/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("remote: fetching platform %s: %w", name, err)
	}
	var details PlatformDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("remote: decoding platform %s details: %w", name, err)
	}
	return &details, nil
}

// CreateJob submits an envelope and returns the platform's job id.
func (c *Client) CreateJob(ctx context.Context, envelope *payload.Envelope, jobName string) (string, error) {
	if err := envelope.ValidateForSubmit(); err != nil {
		return "", err
	}
	if jobName == "" {
		jobName = envelope.JobName()
	}

	tree, err := serial.Serialize(envelope.Tree())
	if err != nil {
		return "", fmt.Errorf("remote: serializing envelope: %w", err)
	}
	request := tree.(map[string]any)
	request["job_name"] = jobName

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/job", request)
	if err != nil {
		return "", fmt.Errorf("remote: creating job: %w", err)
	}
	var response struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("remote: decoding job creation response: %w", err)
	}
	if response.JobID == "" {
		return "", fmt.Errorf("remote: platform returned no job id")
	}
	c.logger.Info("job created", "job_id", response.JobID, "platform", envelope.PlatformName, "name", jobName)
	return response.JobID, nil
}

// JobStatus is the status document of a platform job.
type JobStatus struct {
	ID              string  `json:"id"`
	Status          Status  `json:"-"`
	RawStatus       string  `json:"status"`
	Progress        float64 `json:"progress"`
	ProgressMessage string  `json:"progress_message"`
	StatusMessage   string  `json:"status_message"`
	CreationTime    int64   `json:"creation_datetime"`
	StartTime       int64   `json:"start_time"`
	Duration        int64   `json:"duration"`
}

// JobStatus fetches the status of job id.
func (c *Client) JobStatus(ctx context.Context, id string) (*JobStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/job/status/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("remote: fetching status of job %s: %w", id, err)
	}
	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("remote: decoding status of job %s: %w", id, err)
	}
	status.Status = ParseStatus(status.RawStatus)
	if status.ID == "" {
		status.ID = id
	}
	return &status, nil
}

// JobResults is the results document of a completed job. Results is
// the serialized wire form; Decode unpacks it.
type JobResults struct {
	JobID    string `json:"job_id"`
	Results  string `json:"results"`
	Duration int64  `json:"duration"`
}

// Decode deserializes the results document into a value tree.
func (r *JobResults) Decode() (any, error) {
	if r.Results == "" {
		return nil, fmt.Errorf("remote: job %s has empty results", r.JobID)
	}
	value, err := serial.UnmarshalString(r.Results)
	if err != nil {
		return nil, fmt.Errorf("remote: decoding results of job %s: %w", r.JobID, err)
	}
	return value, nil
}

// JobResults fetches the results of job id. The job must have
// finished; the platform rejects the call otherwise.
func (c *Client) JobResults(ctx context.Context, id string) (*JobResults, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/job/result/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("remote: fetching results of job %s: %w", id, err)
	}
	var results JobResults
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("remote: decoding results of job %s: %w", id, err)
	}
	if results.JobID == "" {
		results.JobID = id
	}
	return &results, nil
}

// CancelJob asks the platform to cancel job id. Cancellation is
// asynchronous: the job transitions through cancel_requested before
// reaching canceled.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/v1/job/cancel/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("remote: canceling job %s: %w", id, err)
	}
	return nil
}

// RerunJob asks the platform to run a fresh copy of job id. Returns
// the new job's id.
func (c *Client) RerunJob(ctx context.Context, id string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/job/rerun/"+url.PathEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("remote: rerunning job %s: %w", id, err)
	}
	var response struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("remote: decoding rerun response for job %s: %w", id, err)
	}
	if response.JobID == "" {
		return "", fmt.Errorf("remote: rerun of job %s returned no job id", id)
	}
	return response.JobID, nil
}

// doRequest performs an HTTP request against the platform API.
// requestBody, when non-nil, is JSON-encoded. On 2xx the raw response
// body is returned; otherwise the body is decoded into a
// PlatformError.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("platform request", "method", method, "path", path)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		platformError := &PlatformError{StatusCode: response.StatusCode}
		if err := json.Unmarshal(responseBody, platformError); err != nil {
			platformError.Message = strings.TrimSpace(string(responseBody))
		}
		if platformError.Message == "" {
			platformError.Message = platformError.Detail
		}
		if platformError.Message == "" {
			platformError.Message = http.StatusText(response.StatusCode)
		}
		return nil, platformError
	}

	return responseBody, nil
}
