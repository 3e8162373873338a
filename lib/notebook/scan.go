// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebook

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultDir is the documentation notebook directory the CI tooling
// operates on.
const DefaultDir = "docs/source/notebooks"

// Scan returns the names of the notebook files in dir, sorted. A file
// qualifies when it is a regular file whose name contains ".ipynb" —
// substring, not suffix, which deliberately picks up editor artifacts
// like "demo.ipynb.orig" so a refresh or check never silently skips
// them. The scan is non-recursive and reflects the directory at call
// time. A missing directory is an error.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("notebook: scan %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.Contains(entry.Name(), ".ipynb") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Digest returns the hex BLAKE3 digest of notebook content. The
// refresh command digests each file before and after to report which
// notebooks actually changed.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestFile digests a notebook file on disk.
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("notebook: digest %s: %w", path, err)
	}
	return Digest(data), nil
}
