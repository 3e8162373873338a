// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceLines is cell source text. The nbformat JSON encoding allows
// either a single string or an array of line strings; both decode to
// the array form here, and encoding always writes the array form (what
// jupyter itself writes).
type SourceLines []string

// UnmarshalJSON accepts both encodings.
func (s *SourceLines) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*s = lines
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("notebook: source is neither string nor string array")
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = splitAfterNewlines(single)
	return nil
}

// MarshalJSON writes the array form.
func (s SourceLines) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// Text joins the lines into the cell's full source text.
func (s SourceLines) Text() string {
	return strings.Join(s, "")
}

// splitAfterNewlines splits text into lines that keep their trailing
// newline, matching how jupyter stores multi-line sources.
func splitAfterNewlines(text string) []string {
	var lines []string
	for {
		index := strings.IndexByte(text, '\n')
		if index < 0 {
			if text != "" {
				lines = append(lines, text)
			}
			return lines
		}
		lines = append(lines, text[:index+1])
		text = text[index+1:]
	}
}
