// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package notebook provides the nbformat v4 document model used by the
// documentation tooling: parsing, directory scanning, cleanliness
// checks for CI, and content digests for change reporting. It is pure
// Go — executing notebooks is lib/jupyter's job.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Cell types in nbformat v4.
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
	CellRaw      = "raw"
)

// Notebook-level metadata keys that a clean committed notebook may
// carry. Everything else (kernel versions, widget state, execution
// timing) is machine-specific noise the refresh strips.
var allowedMetadataKeys = map[string]bool{
	"kernelspec":    true,
	"language_info": true,
}

// Document is a parsed notebook file.
type Document struct {
	Cells         []Cell                     `json:"cells"`
	Metadata      map[string]json.RawMessage `json:"metadata"`
	NBFormat      int                        `json:"nbformat"`
	NBFormatMinor int                        `json:"nbformat_minor"`
}

// Cell is one notebook cell.
type Cell struct {
	Type           string                     `json:"cell_type"`
	Source         SourceLines                `json:"source"`
	Metadata       map[string]json.RawMessage `json:"metadata,omitempty"`
	Outputs        []Output                   `json:"outputs,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
}

// Output is one stored cell output. The fields cover the four
// nbformat output types: stream, execute_result, display_data, error.
type Output struct {
	Type           string                     `json:"output_type"`
	Name           string                     `json:"name,omitempty"`
	Text           SourceLines                `json:"text,omitempty"`
	Data           map[string]json.RawMessage `json:"data,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	EName          string                     `json:"ename,omitempty"`
	EValue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

// Parse decodes a notebook document from JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("notebook: parse: %w", err)
	}
	if doc.NBFormat != 0 && doc.NBFormat < 4 {
		return nil, fmt.Errorf("notebook: nbformat %d is not supported (need v4)", doc.NBFormat)
	}
	return &doc, nil
}

// Load reads and parses a notebook file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notebook: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("notebook: %s: %w", path, err)
	}
	return doc, nil
}

// HasOutputs reports whether any code cell carries stored outputs.
// A refreshed-and-cleared notebook has none.
func (d *Document) HasOutputs() bool {
	for _, cell := range d.Cells {
		if cell.Type == CellCode && len(cell.Outputs) > 0 {
			return true
		}
	}
	return false
}

// HasExecutionCounts reports whether any code cell carries an
// execution count.
func (d *Document) HasExecutionCounts() bool {
	for _, cell := range d.Cells {
		if cell.Type == CellCode && cell.ExecutionCount != nil {
			return true
		}
	}
	return false
}

// StrayMetadata returns the notebook-level metadata keys outside the
// allowed set (kernelspec, language_info), sorted. An empty result
// means the metadata is clean.
func (d *Document) StrayMetadata() []string {
	var stray []string
	for key := range d.Metadata {
		if !allowedMetadataKeys[key] {
			stray = append(stray, key)
		}
	}
	sort.Strings(stray)
	return stray
}

// CodeCellCount returns the number of code cells.
func (d *Document) CodeCellCount() int {
	count := 0
	for _, cell := range d.Cells {
		if cell.Type == CellCode {
			count++
		}
	}
	return count
}
