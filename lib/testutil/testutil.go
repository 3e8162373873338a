// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package testutil provides shared test helpers.
//
// The Require helpers wrap channel operations in a timeout select, so
// a test whose producing goroutine is broken fails with a message
// instead of hanging the suite. [UniqueID] hands out monotonically
// increasing names for tests that need distinct job or file names.
//
// Helpers fail the test via Fatalf rather than returning errors; a
// broken test fixture is not a condition the test can recover from.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TB is the subset of testing.TB the helpers need. Both *testing.T
// and *testing.B satisfy it.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test.
//
//	status := testutil.RequireReceive(t, updates, 5*time.Second, "waiting for status")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before delivering a value: %s", describe(msgAndArgs))
		}
		return v
	case <-timer.C:
		t.Fatalf("timed out after %v: %s", timeout, describe(msgAndArgs))
	}
	panic("unreachable")
}

// RequireSend sends v on ch within timeout, or fails the test.
func RequireSend[T any](t TB, ch chan<- T, v T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- v:
	case <-timer.C:
		t.Fatalf("send blocked for %v: %s", timeout, describe(msgAndArgs))
	}
}

// RequireClosed waits for ch to be closed (or to yield a value) within
// timeout, or fails the test. Use this for done channels that signal
// by closing.
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("channel still open after %v: %s", timeout, describe(msgAndArgs))
	}
}

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix-N" with N drawn from a process-wide
// counter, so parallel tests never collide.
//
//	name := testutil.UniqueID("job") // "job-1", "job-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// describe renders the trailing message arguments: a lone string (or
// any value) prints as-is, a format string with arguments goes
// through Sprintf.
func describe(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return "(no message)"
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs)
}
