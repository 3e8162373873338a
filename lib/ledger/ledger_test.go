// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Quandela/Perceval-Interop/lib/remote"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "jobs.ledger"))
}

func entry(id, name string) Entry {
	return Entry{
		JobID:         id,
		Name:          name,
		Platform:      "sim:ascella",
		Command:       "sample_count",
		CreatedAt:     time.Now(),
		LastStatus:    remote.StatusWaiting,
		PayloadDigest: "0011aabb",
	}
}

func TestAppendAndList(t *testing.T) {
	ledger := testLedger(t)

	for _, id := range []string{"job-aaa", "job-bbb", "job-ccc"} {
		if err := ledger.Append(entry(id, "run-"+id)); err != nil {
			t.Fatalf("Append(%s) error: %v", id, err)
		}
	}

	entries, err := ledger.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() count = %d, want 3", len(entries))
	}

	// Newest first.
	wantOrder := []string{"job-ccc", "job-bbb", "job-aaa"}
	for index, want := range wantOrder {
		if entries[index].JobID != want {
			t.Errorf("List()[%d] = %s, want %s", index, entries[index].JobID, want)
		}
	}
}

func TestListMissingFileIsEmpty(t *testing.T) {
	ledger := testLedger(t)

	entries, err := ledger.List()
	if err != nil {
		t.Fatalf("List() on missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() = %v, want empty", entries)
	}
}

func TestLast(t *testing.T) {
	ledger := testLedger(t)

	if _, err := ledger.Last(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Last() on empty ledger = %v, want ErrNotFound", err)
	}

	ledger.Append(entry("job-first", "one"))
	ledger.Append(entry("job-second", "two"))

	last, err := ledger.Last()
	if err != nil {
		t.Fatalf("Last() error: %v", err)
	}
	if last.JobID != "job-second" {
		t.Errorf("Last() = %s, want job-second", last.JobID)
	}
}

func TestUpdate(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("job-aaa", "run"))

	if err := ledger.Update("job-aaa", remote.StatusSuccess); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	found, err := ledger.Find("job-aaa")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if found.LastStatus != remote.StatusSuccess {
		t.Errorf("LastStatus = %s, want success", found.LastStatus)
	}

	if err := ledger.Update("job-zzz", remote.StatusError); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(unknown) = %v, want ErrNotFound", err)
	}
}

func TestFindExactID(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("a1b2c3", "conversion-run"))
	ledger.Append(entry("a1ffff", "other-run"))

	found, err := ledger.Find("a1b2c3")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if found.Name != "conversion-run" {
		t.Errorf("Find() = %s, want conversion-run", found.Name)
	}
}

func TestFindByName(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("job-old", "nightly"))
	ledger.Append(entry("job-new", "nightly"))

	found, err := ledger.Find("nightly")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	// Newest submission with that name wins.
	if found.JobID != "job-new" {
		t.Errorf("Find(name) = %s, want job-new", found.JobID)
	}
}

func TestFindByPrefix(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("a1b2c3d4", "one"))
	ledger.Append(entry("ff00aa11", "two"))

	found, err := ledger.Find("a1b2")
	if err != nil {
		t.Fatalf("Find(prefix) error: %v", err)
	}
	if found.JobID != "a1b2c3d4" {
		t.Errorf("Find(prefix) = %s, want a1b2c3d4", found.JobID)
	}
}

func TestFindAmbiguousPrefix(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("a1b2c3d4", "one"))
	ledger.Append(entry("a1b9ff00", "two"))

	_, err := ledger.Find("a1b")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("Find(ambiguous) = %v, want ErrAmbiguous", err)
	}
	// The error should name both candidates.
	for _, id := range []string{"a1b2c3d4", "a1b9ff00"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("ambiguous error %q missing candidate %s", err, id)
		}
	}
}

func TestFindNotFound(t *testing.T) {
	ledger := testLedger(t)
	ledger.Append(entry("a1b2c3", "one"))

	if _, err := ledger.Find("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := ledger.Find(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(empty) = %v, want ErrNotFound", err)
	}
}

func TestCorruptFile(t *testing.T) {
	ledger := testLedger(t)
	if err := os.WriteFile(ledger.Path(), []byte("\xff\xff not cbor at all"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := ledger.List()
	if err == nil {
		t.Fatal("expected error for corrupt ledger")
	}
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("error type = %T, want *CorruptError", err)
	}
	if corrupt.Path != ledger.Path() {
		t.Errorf("CorruptError.Path = %s, want %s", corrupt.Path, ledger.Path())
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	ledger := testLedger(t)

	original := Entry{
		JobID:         "c0ffee00",
		Name:          "qiskit-ghz",
		Platform:      "qpu:ascella",
		Command:       "probs",
		CreatedAt:     time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		LastStatus:    remote.StatusRunning,
		PayloadDigest: "deadbeef",
	}
	if err := ledger.Append(original); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	found, err := ledger.Find("c0ffee00")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if found.Name != original.Name || found.Platform != original.Platform ||
		found.Command != original.Command || found.LastStatus != original.LastStatus ||
		found.PayloadDigest != original.PayloadDigest {
		t.Errorf("round-trip mismatch: %+v", found)
	}
	if found.CreatedAt.Unix() != original.CreatedAt.Unix() {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, original.CreatedAt)
	}
}
