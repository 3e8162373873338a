// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package jupyter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// ErrRefreshRunning is returned by AcquireRefreshLock when another
// refresh of the same directory holds the lock.
var ErrRefreshRunning = errors.New("jupyter: another refresh is running for this directory")

// RefreshLock is an advisory lock serializing notebook refreshes of a
// directory. Executing a notebook rewrites it in place; two concurrent
// refreshes of the same tree would interleave half-written files.
//
// The lock is advisory (flock) and non-blocking: a second refresh
// fails fast with [ErrRefreshRunning] rather than queueing behind a
// multi-minute execution.
type RefreshLock struct {
	path string
	file *os.File
}

// AcquireRefreshLock takes the exclusive refresh lock for dir. The
// lock file is .refresh.lock inside the directory and records the
// holder's PID for debugging. Release must be called when the refresh
// finishes.
func AcquireRefreshLock(dir string) (*RefreshLock, error) {
	path := filepath.Join(dir, ".refresh.lock")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jupyter: opening refresh lock %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrRefreshRunning
		}
		return nil, fmt.Errorf("jupyter: locking %s: %w", path, err)
	}

	// Record the holder for debugging. Failures here don't matter;
	// the flock is what serializes.
	file.Truncate(0)
	file.Seek(0, 0)
	fmt.Fprintf(file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))

	return &RefreshLock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *RefreshLock) Release() error {
	if l.file == nil {
		return nil
	}
	// Remove before unlocking so a waiter never sees an unlocked
	// stale file.
	os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the lock file location.
func (l *RefreshLock) Path() string {
	return l.path
}
