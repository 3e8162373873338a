// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/Quandela/Perceval-Interop/lib/payload"
)

// Job is one submission to the platform. A Job starts local (an
// envelope plus a name); Submit gives it a platform id, after which
// the status, results, cancel, and rerun calls are live.
type Job struct {
	client   *Client
	envelope *payload.Envelope
	name     string
	id       string
}

func newJob(client *Client, envelope *payload.Envelope, name string) *Job {
	if name == "" {
		name = envelope.JobName()
	}
	return &Job{client: client, envelope: envelope, name: name}
}

// AttachJob returns a handle on an already-submitted platform job.
// Status, results, cancel, and rerun work; Submit does not, since an
// attached job carries no envelope.
func AttachJob(client *Client, id string) *Job {
	return &Job{client: client, id: id}
}

// ID returns the platform job id, or "" before submission.
func (j *Job) ID() string {
	return j.id
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// Submit creates the job on the platform. Submitting twice is an
// error; rerun a finished job instead.
func (j *Job) Submit(ctx context.Context) error {
	if j.id != "" {
		return fmt.Errorf("remote: job already submitted as %s", j.id)
	}
	if j.envelope == nil {
		return fmt.Errorf("remote: attached job has no envelope to submit")
	}
	id, err := j.client.CreateJob(ctx, j.envelope, j.name)
	if err != nil {
		return err
	}
	j.id = id
	return nil
}

// Status fetches the job's current status.
func (j *Job) Status(ctx context.Context) (*JobStatus, error) {
	if j.id == "" {
		return nil, fmt.Errorf("remote: job not submitted")
	}
	return j.client.JobStatus(ctx, j.id)
}

// Results fetches and returns the job's results document.
func (j *Job) Results(ctx context.Context) (*JobResults, error) {
	if j.id == "" {
		return nil, fmt.Errorf("remote: job not submitted")
	}
	return j.client.JobResults(ctx, j.id)
}

// Cancel requests cancellation of the job.
func (j *Job) Cancel(ctx context.Context) error {
	if j.id == "" {
		return fmt.Errorf("remote: job not submitted")
	}
	return j.client.CancelJob(ctx, j.id)
}

// Rerun starts a fresh copy of this job on the platform and returns
// a handle on the new job.
func (j *Job) Rerun(ctx context.Context) (*Job, error) {
	if j.id == "" {
		return nil, fmt.Errorf("remote: job not submitted")
	}
	newID, err := j.client.RerunJob(ctx, j.id)
	if err != nil {
		return nil, err
	}
	return AttachJob(j.client, newID), nil
}

// ExecuteSync submits the job (unless already submitted) and polls
// until it reaches a terminal state. On success the decoded results
// are returned; error and canceled states become errors carrying the
// platform's status message. Context cancellation stops the poll
// loop but does not cancel the platform job.
func (j *Job) ExecuteSync(ctx context.Context) (any, error) {
	if j.id == "" {
		if err := j.Submit(ctx); err != nil {
			return nil, err
		}
	}

	status, err := j.waitTerminal(ctx)
	if err != nil {
		return nil, err
	}

	switch status.Status {
	case StatusSuccess:
		results, err := j.Results(ctx)
		if err != nil {
			return nil, err
		}
		return results.Decode()
	case StatusCanceled:
		return nil, fmt.Errorf("remote: job %s was canceled", j.id)
	default:
		message := status.StatusMessage
		if message == "" {
			message = "no status message"
		}
		return nil, fmt.Errorf("remote: job %s failed: %s", j.id, message)
	}
}

// waitTerminal polls job status at the client's poll interval until
// a terminal state is reached.
func (j *Job) waitTerminal(ctx context.Context) (*JobStatus, error) {
	ticker := time.NewTicker(j.client.pollInterval)
	defer ticker.Stop()

	for {
		status, err := j.Status(ctx)
		if err != nil {
			return nil, err
		}
		j.client.logger.Debug("job status",
			"job_id", j.id, "status", status.Status, "progress", status.Progress)
		if status.Status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("remote: waiting for job %s: %w", j.id, ctx.Err())
		case <-ticker.C:
		}
	}
}
