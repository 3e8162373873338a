// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package ledger records submitted platform jobs locally so status and
// result commands work by name or id prefix instead of full job ids.
// The ledger is a stream of deterministically-encoded CBOR records;
// writes are serialized with an flock sidecar and replace the file
// atomically, so readers never observe a half-written ledger.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Quandela/Perceval-Interop/lib/codec"
	"github.com/Quandela/Perceval-Interop/lib/remote"
)

// ErrNotFound is returned when no ledger entry matches a query.
var ErrNotFound = errors.New("ledger: no matching job")

// ErrAmbiguous is returned when an id prefix matches several jobs.
var ErrAmbiguous = errors.New("ledger: ambiguous job reference")

// CorruptError reports a ledger file that exists but cannot be
// decoded. It names the path so the user knows what to inspect or
// delete.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ledger: file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Entry is one submitted job. It serializes both as CBOR (on disk)
// and as JSON (`job list --json`), so per the lib/codec tag rule it
// carries json tags only; the CBOR encoder reads them as fallback.
type Entry struct {
	// JobID is the platform-assigned job id.
	JobID string `json:"job_id"`
	// Name is the job name sent at submission.
	Name string `json:"name"`
	// Platform is the target platform name.
	Platform string `json:"platform"`
	// Command is the payload command (e.g. "sample_count").
	Command string `json:"command"`
	// CreatedAt is the local submission time.
	CreatedAt time.Time `json:"created_at"`
	// LastStatus is the most recently observed job status.
	LastStatus remote.Status `json:"last_status"`
	// PayloadDigest is the BLAKE3 digest of the submitted envelope.
	PayloadDigest string `json:"payload_digest"`
}

// Ledger reads and writes the job ledger at a fixed path. The zero
// value is not usable; call Open.
type Ledger struct {
	path string
}

// Open returns a Ledger for the given path. No file access happens
// until a read or write; a ledger file that does not exist yet reads
// as empty.
func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// List returns every entry, newest first. A missing file is an empty
// ledger, not an error.
func (l *Ledger) List() ([]Entry, error) {
	entries, err := l.read()
	if err != nil {
		return nil, err
	}

	// Entries are appended in submission order; newest first is the
	// reverse. Reversing (rather than sorting on CreatedAt) keeps
	// same-second submissions in their true order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Last returns the most recently appended entry.
func (l *Ledger) Last() (*Entry, error) {
	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[len(entries)-1], nil
}

// Find resolves a job reference: an exact job id, an exact job name
// (newest submission wins), or an unambiguous job id prefix. A prefix
// matching several distinct jobs returns [ErrAmbiguous] naming the
// candidates.
func (l *Ledger) Find(query string) (*Entry, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	entries, err := l.read()
	if err != nil {
		return nil, err
	}

	// Exact id.
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].JobID == query {
			return &entries[i], nil
		}
	}

	// Exact name, newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Name == query {
			return &entries[i], nil
		}
	}

	// Id prefix.
	var matches []*Entry
	seen := map[string]bool{}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := &entries[i]
		if strings.HasPrefix(entry.JobID, query) && !seen[entry.JobID] {
			seen[entry.JobID] = true
			matches = append(matches, entry)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, match := range matches {
			ids[i] = match.JobID
		}
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, query, strings.Join(ids, ", "))
	}
}

// Append adds an entry to the ledger.
func (l *Ledger) Append(entry Entry) error {
	return l.mutate(func(entries []Entry) ([]Entry, error) {
		return append(entries, entry), nil
	})
}

// Update sets the last observed status of the job with the given id.
func (l *Ledger) Update(jobID string, status remote.Status) error {
	return l.mutate(func(entries []Entry) ([]Entry, error) {
		for i := range entries {
			if entries[i].JobID == jobID {
				entries[i].LastStatus = status
				return entries, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, jobID)
	})
}

// mutate applies fn to the decoded entries and atomically replaces the
// ledger file, all under the write lock.
func (l *Ledger) mutate(fn func([]Entry) ([]Entry, error)) error {
	unlock, err := l.lock()
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}

	entries, err = fn(entries)
	if err != nil {
		return err
	}

	return l.writeAll(entries)
}

// read decodes the full entry stream. Missing file means empty.
func (l *Ledger) read() ([]Entry, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", l.path, err)
	}
	defer file.Close()

	var entries []Entry
	decoder := codec.NewDecoder(file)
	for {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			if err == io.EOF {
				break
			}
			return nil, &CorruptError{Path: l.path, Err: err}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// writeAll writes the entries to a temp file and renames it over the
// ledger, so readers only ever see complete files.
func (l *Ledger) writeAll(entries []Entry) error {
	dir := filepath.Dir(l.path)
	temp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("ledger: temp file in %s: %w", dir, err)
	}
	tempPath := temp.Name()

	encoder := codec.NewEncoder(temp)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			temp.Close()
			os.Remove(tempPath)
			return fmt.Errorf("ledger: encode entry %s: %w", entry.JobID, err)
		}
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("ledger: close temp: %w", err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("ledger: replace %s: %w", l.path, err)
	}
	return nil
}

// lock takes the exclusive write lock. The sidecar file is separate
// from the data file because writeAll renames a fresh inode into
// place — a lock on the data file itself would travel with the old
// inode.
func (l *Ledger) lock() (func(), error) {
	lockPath := l.path + ".lock"
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open lock %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		return nil, fmt.Errorf("ledger: lock %s: %w", lockPath, err)
	}
	return func() { file.Close() }, nil
}
