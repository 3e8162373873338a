// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/Quandela/Perceval-Interop/lib/payload"
)

// Processor is a handle on one remote platform. Platform details are
// fetched on first use and cached for the processor's lifetime; a
// platform's specs do not change while jobs run against it.
type Processor struct {
	client *Client
	name   string

	mu      sync.Mutex
	details *PlatformDetails
}

// NewProcessor creates a processor handle for the named platform.
// No network traffic happens until details are needed.
func NewProcessor(client *Client, name string) *Processor {
	return &Processor{client: client, name: name}
}

// Name returns the platform name.
func (p *Processor) Name() string {
	return p.name
}

// Details returns the cached platform details, fetching them on
// first call.
func (p *Processor) Details(ctx context.Context) (*PlatformDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.details == nil {
		details, err := p.client.PlatformDetails(ctx, p.name)
		if err != nil {
			return nil, err
		}
		p.details = details
	}
	return p.details, nil
}

// Type returns the processor type (SIMULATOR or PHYSICAL).
func (p *Processor) Type(ctx context.Context) (ProcessorType, error) {
	details, err := p.Details(ctx)
	if err != nil {
		return "", err
	}
	return details.ProcessorType(), nil
}

// Specs returns the platform's hardware specs document.
func (p *Processor) Specs(ctx context.Context) (map[string]any, error) {
	details, err := p.Details(ctx)
	if err != nil {
		return nil, err
	}
	return details.Specs, nil
}

// Performance returns the platform's performance document. Only
// physical platforms publish one.
func (p *Processor) Performance(ctx context.Context) (map[string]any, error) {
	details, err := p.Details(ctx)
	if err != nil {
		return nil, err
	}
	return details.Perfs, nil
}

// NewJob prepares a job running envelope on this platform. The
// envelope's platform name must match the processor's.
func (p *Processor) NewJob(envelope *payload.Envelope, jobName string) (*Job, error) {
	if envelope.PlatformName != p.name {
		return nil, fmt.Errorf("remote: envelope targets platform %q, processor is %q",
			envelope.PlatformName, p.name)
	}
	return newJob(p.client, envelope, jobName), nil
}

// ExecuteSync submits envelope as jobName and blocks until the job
// reaches a terminal state, returning the decoded results.
func (p *Processor) ExecuteSync(ctx context.Context, envelope *payload.Envelope, jobName string) (any, error) {
	job, err := p.NewJob(envelope, jobName)
	if err != nil {
		return nil, err
	}
	return job.ExecuteSync(ctx)
}
